package storefront

import (
	"testing"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func intPtr(v int) *int { return &v }

// saleProduct prices at 1000 with a standing 20% sale and a 10% tier for 1-4
// units, so three units cost 720 each.
func saleProduct(id string) types.ProductSnapshot {
	return types.ProductSnapshot{
		ID:         id,
		Name:       "Ankara Tote",
		CategoryID: "bags",
		BasePrice:  1000,
		Currency:   "NGN",
		Stock:      10,
		Attributes: []types.AttributeOptions{{Name: "Color", Values: []string{"Red", "Green"}}},
		Sale: &pricing.Sale{
			Type:         enums.SaleTypeNormal,
			DiscountType: enums.SaleDiscountTypePercent,
			Discount:     20,
		},
		Tiers: []pricing.Tier{{MinQty: 1, MaxQty: intPtr(4), Strategy: enums.TierStrategyPercentOff, Value: 10}},
	}
}

func plainProduct(id string, price float64) types.ProductSnapshot {
	return types.ProductSnapshot{ID: id, Name: "Plain " + id, BasePrice: price, Currency: "NGN", Stock: 10}
}

func lagos() types.Destination {
	return types.Destination{CountryName: "Nigeria", StateName: "Lagos", StateCode: "LA", LGAName: "Ikeja"}
}
