package pricing

import (
	"math"
	"sort"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
)

// Tier is a volume price band. MaxQty nil means open ended.
type Tier struct {
	MinQty   int                `json:"minQty"`
	MaxQty   *int               `json:"maxQty,omitempty"`
	Strategy enums.TierStrategy `json:"strategy"`
	Value    float64            `json:"value"`
}

// Contains reports whether qty falls inside the inclusive band.
func (t Tier) Contains(qty int) bool {
	if qty < t.MinQty {
		return false
	}
	return t.MaxQty == nil || qty <= *t.MaxQty
}

// NormalizeTiers returns a copy sorted by MinQty. Equal MinQty keeps the
// original order, so overlapping bands resolve to whichever was listed first.
// Non-finite values are zeroed and MinQty is floored at 1.
func NormalizeTiers(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	for i := range out {
		if !finite(out[i].Value) {
			out[i].Value = 0
			if out[i].Strategy == enums.TierStrategyFixedPrice {
				// a fixed price that cannot be read falls back to base
				out[i].Strategy = enums.TierStrategyAmountOff
			}
		}
		if out[i].MinQty < 1 {
			out[i].MinQty = 1
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinQty < out[j].MinQty
	})
	return out
}

// FindTier returns the first tier in ascending MinQty order containing qty.
func FindTier(tiers []Tier, qty int) *Tier {
	for _, tier := range NormalizeTiers(tiers) {
		if tier.Contains(qty) {
			found := tier
			return &found
		}
	}
	return nil
}

// CalculateTierBasePrice applies tier to base. A nil tier leaves base untouched.
func CalculateTierBasePrice(base float64, tier *Tier) float64 {
	base = nonNegative(base)
	if tier == nil || !finite(tier.Value) {
		return base
	}
	value := tier.Value
	switch tier.Strategy {
	case enums.TierStrategyFixedPrice:
		return nonNegative(value)
	case enums.TierStrategyPercentOff:
		return math.Max(0, base*(1-nonNegative(value)/100))
	case enums.TierStrategyAmountOff:
		return math.Max(0, base-nonNegative(value))
	default:
		return base
	}
}
