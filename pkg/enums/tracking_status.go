package enums

import "fmt"

// TrackingStatus tracks a shipment as reported by the carrier.
type TrackingStatus string

const (
	TrackingStatusLabelCreated     TrackingStatus = "label_created"
	TrackingStatusPickedUp         TrackingStatus = "picked_up"
	TrackingStatusInTransit        TrackingStatus = "in_transit"
	TrackingStatusOutForDelivery   TrackingStatus = "out_for_delivery"
	TrackingStatusDelivered        TrackingStatus = "delivered"
	TrackingStatusDeliveryFailed   TrackingStatus = "delivery_failed"
	TrackingStatusReturnedToSender TrackingStatus = "returned_to_sender"
)

var validTrackingStatuses = []TrackingStatus{
	TrackingStatusLabelCreated,
	TrackingStatusPickedUp,
	TrackingStatusInTransit,
	TrackingStatusOutForDelivery,
	TrackingStatusDelivered,
	TrackingStatusDeliveryFailed,
	TrackingStatusReturnedToSender,
}

// String implements fmt.Stringer.
func (t TrackingStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TrackingStatus.
func (t TrackingStatus) IsValid() bool {
	for _, candidate := range validTrackingStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTrackingStatus converts raw input into a TrackingStatus.
func ParseTrackingStatus(value string) (TrackingStatus, error) {
	for _, candidate := range validTrackingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tracking status %q", value)
}
