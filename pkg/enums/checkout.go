package enums

import "fmt"

// CheckoutOutcome labels the three terminal results of a submission.
type CheckoutOutcome string

const (
	CheckoutOutcomeSuccess         CheckoutOutcome = "success"
	CheckoutOutcomeNeedsCorrection CheckoutOutcome = "needs_correction"
	CheckoutOutcomeBlocked         CheckoutOutcome = "blocked"
)

var validCheckoutOutcomes = []CheckoutOutcome{
	CheckoutOutcomeSuccess,
	CheckoutOutcomeNeedsCorrection,
	CheckoutOutcomeBlocked,
}

// String implements fmt.Stringer.
func (c CheckoutOutcome) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutOutcome.
func (c CheckoutOutcome) IsValid() bool {
	for _, candidate := range validCheckoutOutcomes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutOutcome converts raw input into a CheckoutOutcome.
func ParseCheckoutOutcome(value string) (CheckoutOutcome, error) {
	for _, candidate := range validCheckoutOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout outcome %q", value)
}

// CheckoutPhase is the client-side checkout state.
type CheckoutPhase string

const (
	CheckoutPhaseIdle            CheckoutPhase = "idle"
	CheckoutPhaseSubmitting      CheckoutPhase = "submitting"
	CheckoutPhaseSuccess         CheckoutPhase = "success"
	CheckoutPhaseNeedsCorrection CheckoutPhase = "needs_correction"
	CheckoutPhaseBlocked         CheckoutPhase = "blocked"
)

var validCheckoutPhases = []CheckoutPhase{
	CheckoutPhaseIdle,
	CheckoutPhaseSubmitting,
	CheckoutPhaseSuccess,
	CheckoutPhaseNeedsCorrection,
	CheckoutPhaseBlocked,
}

// String implements fmt.Stringer.
func (c CheckoutPhase) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutPhase.
func (c CheckoutPhase) IsValid() bool {
	for _, candidate := range validCheckoutPhases {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutPhase converts raw input into a CheckoutPhase.
func ParseCheckoutPhase(value string) (CheckoutPhase, error) {
	for _, candidate := range validCheckoutPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout phase %q", value)
}

// ShippingPhase is the state of the shipping quote negotiation.
type ShippingPhase string

const (
	ShippingPhaseIdle       ShippingPhase = "idle"
	ShippingPhaseDebouncing ShippingPhase = "debouncing"
	ShippingPhaseFetching   ShippingPhase = "fetching"
	ShippingPhaseResolved   ShippingPhase = "resolved"
	ShippingPhaseFailed     ShippingPhase = "failed"
)

var validShippingPhases = []ShippingPhase{
	ShippingPhaseIdle,
	ShippingPhaseDebouncing,
	ShippingPhaseFetching,
	ShippingPhaseResolved,
	ShippingPhaseFailed,
}

// String implements fmt.Stringer.
func (s ShippingPhase) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShippingPhase.
func (s ShippingPhase) IsValid() bool {
	for _, candidate := range validShippingPhases {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShippingPhase converts raw input into a ShippingPhase.
func ParseShippingPhase(value string) (ShippingPhase, error) {
	for _, candidate := range validShippingPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping phase %q", value)
}
