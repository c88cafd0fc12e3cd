package enums

import "fmt"

// DisputeStatus tracks the lifecycle of a dispute between order parties.
type DisputeStatus string

const (
	DisputeStatusOpen                   DisputeStatus = "open"
	DisputeStatusAwaitingSellerResponse DisputeStatus = "awaiting_seller_response"
	DisputeStatusAwaitingBuyerResponse  DisputeStatus = "awaiting_buyer_response"
	DisputeStatusUnderReview            DisputeStatus = "under_review"
	DisputeStatusEscalated              DisputeStatus = "escalated"
	DisputeStatusResolved               DisputeStatus = "resolved"
	DisputeStatusClosed                 DisputeStatus = "closed"
	DisputeStatusCancelled              DisputeStatus = "cancelled"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusAwaitingSellerResponse,
	DisputeStatusAwaitingBuyerResponse,
	DisputeStatusUnderReview,
	DisputeStatusEscalated,
	DisputeStatusResolved,
	DisputeStatusClosed,
	DisputeStatusCancelled,
}

// DisputeStatuses returns every known dispute status.
func DisputeStatuses() []DisputeStatus {
	out := make([]DisputeStatus, len(validDisputeStatuses))
	copy(out, validDisputeStatuses)
	return out
}

// String implements fmt.Stringer.
func (d DisputeStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeStatus.
func (d DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeStatus converts raw input into a DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}
