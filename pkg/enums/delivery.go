package enums

import "fmt"

// DeliveryType is the checkout-level fulfilment choice.
type DeliveryType string

const (
	DeliveryTypeShipping DeliveryType = "shipping"
	DeliveryTypePickup   DeliveryType = "pickup"
)

var validDeliveryTypes = []DeliveryType{
	DeliveryTypeShipping,
	DeliveryTypePickup,
}

// String implements fmt.Stringer.
func (d DeliveryType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryType.
func (d DeliveryType) IsValid() bool {
	for _, candidate := range validDeliveryTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryType converts raw input into a DeliveryType.
func ParseDeliveryType(value string) (DeliveryType, error) {
	for _, candidate := range validDeliveryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery type %q", value)
}

// DeliveryMethod is the speed option used when quoting shipping.
type DeliveryMethod string

const (
	DeliveryMethodPickup  DeliveryMethod = "pickup"
	DeliveryMethodNormal  DeliveryMethod = "normal"
	DeliveryMethodExpress DeliveryMethod = "express"
)

var validDeliveryMethods = []DeliveryMethod{
	DeliveryMethodPickup,
	DeliveryMethodNormal,
	DeliveryMethodExpress,
}

// String implements fmt.Stringer.
func (d DeliveryMethod) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryMethod.
func (d DeliveryMethod) IsValid() bool {
	for _, candidate := range validDeliveryMethods {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryMethod converts raw input into a DeliveryMethod.
func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	for _, candidate := range validDeliveryMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery method %q", value)
}

// QuoteSource records which endpoint produced a shipping quote.
type QuoteSource string

const (
	QuoteSourcePickup        QuoteSource = "pickup"
	QuoteSourceAuthenticated QuoteSource = "authenticated"
	QuoteSourceGuest         QuoteSource = "guest"
)

var validQuoteSources = []QuoteSource{
	QuoteSourcePickup,
	QuoteSourceAuthenticated,
	QuoteSourceGuest,
}

// String implements fmt.Stringer.
func (q QuoteSource) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QuoteSource.
func (q QuoteSource) IsValid() bool {
	for _, candidate := range validQuoteSources {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuoteSource converts raw input into a QuoteSource.
func ParseQuoteSource(value string) (QuoteSource, error) {
	for _, candidate := range validQuoteSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid quote source %q", value)
}
