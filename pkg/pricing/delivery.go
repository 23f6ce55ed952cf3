package pricing

import (
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/shopspring/decimal"
)

// ExpressMultiplier is applied to the resolved normal shipping cost.
const ExpressMultiplier = 1.5

// ApplyDeliverySurcharge turns a normal-speed shipping quote into the cost for
// method. Pickup is always free and express is rounded to two decimals.
func ApplyDeliverySurcharge(method enums.DeliveryMethod, normalCost float64) float64 {
	cost := nonNegative(normalCost)
	switch method {
	case enums.DeliveryMethodPickup:
		return 0
	case enums.DeliveryMethodExpress:
		return decimal.NewFromFloat(cost).
			Mul(decimal.NewFromFloat(ExpressMultiplier)).
			Round(2).
			InexactFloat64()
	default:
		return cost
	}
}
