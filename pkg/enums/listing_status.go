package enums

import "fmt"

// ListingStatus tracks the lifecycle of a listing.
type ListingStatus string

const (
	ListingStatusDraft     ListingStatus = "draft"
	ListingStatusActive    ListingStatus = "active"
	ListingStatusReserved  ListingStatus = "reserved"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusArchived  ListingStatus = "archived"
	ListingStatusSuspended ListingStatus = "suspended"
)

var validListingStatuses = []ListingStatus{
	ListingStatusDraft,
	ListingStatusActive,
	ListingStatusReserved,
	ListingStatusSold,
	ListingStatusArchived,
	ListingStatusSuspended,
}

// String implements fmt.Stringer.
func (l ListingStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known ListingStatus.
func (l ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}

// ListingCondition grades the physical state of an item.
type ListingCondition string

const (
	ListingConditionNewWithTags    ListingCondition = "new_with_tags"
	ListingConditionNewWithoutTags ListingCondition = "new_without_tags"
	ListingConditionVeryGood       ListingCondition = "very_good"
	ListingConditionGood           ListingCondition = "good"
	ListingConditionFair           ListingCondition = "fair"
)

var validListingConditions = []ListingCondition{
	ListingConditionNewWithTags,
	ListingConditionNewWithoutTags,
	ListingConditionVeryGood,
	ListingConditionGood,
	ListingConditionFair,
}

// String implements fmt.Stringer.
func (l ListingCondition) String() string {
	return string(l)
}

// IsValid reports whether the value is a known ListingCondition.
func (l ListingCondition) IsValid() bool {
	for _, candidate := range validListingConditions {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseListingCondition converts raw input into a ListingCondition.
func ParseListingCondition(value string) (ListingCondition, error) {
	for _, candidate := range validListingConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing condition %q", value)
}
