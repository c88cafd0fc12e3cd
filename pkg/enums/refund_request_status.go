package enums

import "fmt"

// RefundRequestStatus tracks a refund request raised against an order.
type RefundRequestStatus string

const (
	RefundRequestStatusPending   RefundRequestStatus = "pending"
	RefundRequestStatusApproved  RefundRequestStatus = "approved"
	RefundRequestStatusRejected  RefundRequestStatus = "rejected"
	RefundRequestStatusProcessed RefundRequestStatus = "processed"
)

var validRefundRequestStatuses = []RefundRequestStatus{
	RefundRequestStatusPending,
	RefundRequestStatusApproved,
	RefundRequestStatusRejected,
	RefundRequestStatusProcessed,
}

// String implements fmt.Stringer.
func (r RefundRequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundRequestStatus.
func (r RefundRequestStatus) IsValid() bool {
	for _, candidate := range validRefundRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundRequestStatus converts raw input into a RefundRequestStatus.
func ParseRefundRequestStatus(value string) (RefundRequestStatus, error) {
	for _, candidate := range validRefundRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund request status %q", value)
}
