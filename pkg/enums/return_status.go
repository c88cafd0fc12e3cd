package enums

import "fmt"

// ReturnStatus tracks the lifecycle of a return request.
type ReturnStatus string

const (
	ReturnStatusRequested   ReturnStatus = "requested"
	ReturnStatusApproved    ReturnStatus = "approved"
	ReturnStatusRejected    ReturnStatus = "rejected"
	ReturnStatusShippedBack ReturnStatus = "shipped_back"
	ReturnStatusReceived    ReturnStatus = "received"
	ReturnStatusInspecting  ReturnStatus = "inspecting"
	ReturnStatusRefunded    ReturnStatus = "refunded"
	ReturnStatusReplaced    ReturnStatus = "replaced"
	ReturnStatusClosed      ReturnStatus = "closed"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusShippedBack,
	ReturnStatusReceived,
	ReturnStatusInspecting,
	ReturnStatusRefunded,
	ReturnStatusReplaced,
	ReturnStatusClosed,
}

// ReturnStatuses returns every known return status.
func ReturnStatuses() []ReturnStatus {
	out := make([]ReturnStatus, len(validReturnStatuses))
	copy(out, validReturnStatuses)
	return out
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
