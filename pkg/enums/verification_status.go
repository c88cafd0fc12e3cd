package enums

import "fmt"

// VerificationStatus tracks a brand verification request through review.
type VerificationStatus string

const (
	VerificationStatusPending        VerificationStatus = "pending"
	VerificationStatusApproved       VerificationStatus = "approved"
	VerificationStatusRejected       VerificationStatus = "rejected"
	VerificationStatusMoreInfoNeeded VerificationStatus = "more_info_needed"
)

var validVerificationStatuses = []VerificationStatus{
	VerificationStatusPending,
	VerificationStatusApproved,
	VerificationStatusRejected,
	VerificationStatusMoreInfoNeeded,
}

// String implements fmt.Stringer.
func (v VerificationStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VerificationStatus.
func (v VerificationStatus) IsValid() bool {
	for _, candidate := range validVerificationStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVerificationStatus converts raw input into a VerificationStatus.
func ParseVerificationStatus(value string) (VerificationStatus, error) {
	for _, candidate := range validVerificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid verification status %q", value)
}
