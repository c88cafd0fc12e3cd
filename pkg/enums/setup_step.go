package enums

import "fmt"

// SetupStep identifies one step of the profile onboarding checklist.
type SetupStep string

const (
	SetupStepProfileInfo     SetupStep = "profile_info"
	SetupStepAvatar          SetupStep = "avatar"
	SetupStepShippingAddress SetupStep = "shipping_address"
	SetupStepPayoutDetails   SetupStep = "payout_details"
	SetupStepFirstListing    SetupStep = "first_listing"
)

var validSetupSteps = []SetupStep{
	SetupStepProfileInfo,
	SetupStepAvatar,
	SetupStepShippingAddress,
	SetupStepPayoutDetails,
	SetupStepFirstListing,
}

// requiredSetupSteps is the subset that gates profiles.setup_completed.
// payout_details and first_listing are optional nudges.
var requiredSetupSteps = []SetupStep{
	SetupStepProfileInfo,
	SetupStepAvatar,
	SetupStepShippingAddress,
}

// RequiredSetupSteps returns the steps that must all be completed before a
// profile is marked setup_completed.
func RequiredSetupSteps() []SetupStep {
	out := make([]SetupStep, len(requiredSetupSteps))
	copy(out, requiredSetupSteps)
	return out
}

// AllSetupSteps returns every step in checklist order.
func AllSetupSteps() []SetupStep {
	out := make([]SetupStep, len(validSetupSteps))
	copy(out, validSetupSteps)
	return out
}

// IsRequired reports whether the step participates in the completion check.
func (s SetupStep) IsRequired() bool {
	for _, candidate := range requiredSetupSteps {
		if candidate == s {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (s SetupStep) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SetupStep.
func (s SetupStep) IsValid() bool {
	for _, candidate := range validSetupSteps {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSetupStep converts raw input into a SetupStep.
func ParseSetupStep(value string) (SetupStep, error) {
	for _, candidate := range validSetupSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid setup step %q", value)
}
