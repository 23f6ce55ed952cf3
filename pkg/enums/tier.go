package enums

import "fmt"

// TierStrategy describes how a volume tier derives its base price.
type TierStrategy string

const (
	TierStrategyFixedPrice TierStrategy = "fixedPrice"
	TierStrategyPercentOff TierStrategy = "percentOff"
	TierStrategyAmountOff  TierStrategy = "amountOff"
)

var validTierStrategies = []TierStrategy{
	TierStrategyFixedPrice,
	TierStrategyPercentOff,
	TierStrategyAmountOff,
}

// String implements fmt.Stringer.
func (t TierStrategy) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TierStrategy.
func (t TierStrategy) IsValid() bool {
	for _, candidate := range validTierStrategies {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTierStrategy converts raw input into a TierStrategy.
func ParseTierStrategy(value string) (TierStrategy, error) {
	for _, candidate := range validTierStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tier strategy %q", value)
}
