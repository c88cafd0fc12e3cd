package enums

import "fmt"

// AdminAction is the decision recorded in admin_approvals.
type AdminAction string

const (
	AdminActionApprove AdminAction = "approve"
	AdminActionReject  AdminAction = "reject"
	AdminActionRevoke  AdminAction = "revoke"
)

var validAdminActions = []AdminAction{
	AdminActionApprove,
	AdminActionReject,
	AdminActionRevoke,
}

// String implements fmt.Stringer.
func (a AdminAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AdminAction.
func (a AdminAction) IsValid() bool {
	for _, candidate := range validAdminActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAdminAction converts raw input into an AdminAction.
func ParseAdminAction(value string) (AdminAction, error) {
	for _, candidate := range validAdminActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid admin action %q", value)
}
