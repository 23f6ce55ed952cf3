package pricing

import (
	"math"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngine(WithClock(func() time.Time { return fixedNow }))
}

func intPtr(v int) *int { return &v }

func TestEngineComposesVariantSaleAndPercentTier(t *testing.T) {
	item := Item{
		BasePrice: 1000,
		Selected:  []Attribute{{Name: "Color", Value: "Red"}},
		Sale: &Sale{
			Type: enums.SaleTypeNormal,
			Variants: []SaleVariant{{
				AttributeName:  "Color",
				AttributeValue: "Red",
				DiscountType:   enums.SaleDiscountTypePercent,
				Discount:       20,
				MaxBuys:        50,
				BoughtCount:    10,
			}},
		},
		Tiers: []Tier{{MinQty: 1, MaxQty: intPtr(4), Strategy: enums.TierStrategyPercentOff, Value: 10}},
	}

	line := testEngine().Price(item, 3)

	assert.InDelta(t, 900, line.TierBasePrice, 1e-9)
	assert.InDelta(t, 720, line.UnitPrice, 1e-9)
	assert.InDelta(t, 2160, line.TotalPrice, 1e-9)
	assert.InDelta(t, 100, line.TierDiscount, 1e-9)
	assert.InDelta(t, 180, line.SaleDiscount, 1e-9)
	assert.InDelta(t, 840, line.AppliedDiscount, 1e-9)
	require.NotNil(t, line.PricingTier)
	assert.Equal(t, 0, line.Sale.VariantIndex)
	assert.Equal(t, 20, line.Sale.PercentOff)
}

func TestEngineFixedTierWithHalfOffSale(t *testing.T) {
	item := Item{
		BasePrice: 40,
		Sale:      &Sale{Type: enums.SaleTypeNormal, DiscountType: enums.SaleDiscountTypePercent, Discount: 50},
		Tiers:     []Tier{{MinQty: 10, Strategy: enums.TierStrategyFixedPrice, Value: 10}},
	}

	line := testEngine().Price(item, 12)

	assert.InDelta(t, 5, line.UnitPrice, 1e-9)
	assert.InDelta(t, 60, line.TotalPrice, 1e-9)
}

func TestEngineUsesFirstSelectedAttributeOverride(t *testing.T) {
	item := Item{
		BasePrice: 100,
		AttributePrices: []AttributePrice{
			{Name: "Size", Value: "XL", Price: 140},
			{Name: "Color", Value: "Gold", Price: 200},
		},
		Selected: []Attribute{{Name: "Color", Value: "Gold"}, {Name: "Size", Value: "XL"}},
	}

	line := testEngine().Price(item, 1)

	assert.InDelta(t, 200, line.BasePrice, 1e-9)
	assert.InDelta(t, 200, line.UnitPrice, 1e-9)
}

func TestEngineTierAndSaleCommute(t *testing.T) {
	tiers := []Tier{{MinQty: 5, Strategy: enums.TierStrategyAmountOff, Value: 30}}
	sale := &Sale{Type: enums.SaleTypeNormal, DiscountType: enums.SaleDiscountTypePercent, Discount: 25}

	withBoth := testEngine().Price(Item{BasePrice: 200, Sale: sale, Tiers: tiers}, 6)
	tierOnly := testEngine().Price(Item{BasePrice: 200, Tiers: tiers}, 6)
	saleOnly := testEngine().Price(Item{BasePrice: 200, Sale: sale}, 6)

	// (tier first, then sale) and (sale multiplier, then tier) agree
	assert.InDelta(t, tierOnly.UnitPrice*saleOnly.Sale.Multiplier, withBoth.UnitPrice, 1e-9)
	assert.InDelta(t, 127.5, withBoth.UnitPrice, 1e-9)
}

func TestEngineIsTotalOverBadInputs(t *testing.T) {
	cases := []struct {
		name string
		item Item
		qty  int
	}{
		{name: "nan base", item: Item{BasePrice: math.NaN()}, qty: 2},
		{name: "negative base", item: Item{BasePrice: -50}, qty: 2},
		{name: "infinite override", item: Item{
			BasePrice:       10,
			AttributePrices: []AttributePrice{{Name: "a", Value: "b", Price: math.Inf(1)}},
			Selected:        []Attribute{{Name: "a", Value: "b"}},
		}, qty: 1},
		{name: "sale over 100 percent", item: Item{
			BasePrice: 80,
			Sale:      &Sale{Type: enums.SaleTypeNormal, DiscountType: enums.SaleDiscountTypePercent, Discount: 150},
		}, qty: 3},
		{name: "amount sale larger than price", item: Item{
			BasePrice: 80,
			Sale:      &Sale{Type: enums.SaleTypeNormal, DiscountType: enums.SaleDiscountTypeAmount, Discount: 500},
		}, qty: 3},
		{name: "negative tier", item: Item{
			BasePrice: 80,
			Tiers:     []Tier{{MinQty: 1, Strategy: enums.TierStrategyFixedPrice, Value: -20}},
		}, qty: 3},
		{name: "nan tier", item: Item{
			BasePrice: 80,
			Tiers:     []Tier{{MinQty: 1, Strategy: enums.TierStrategyPercentOff, Value: math.NaN()}},
		}, qty: 3},
		{name: "negative quantity", item: Item{BasePrice: 80}, qty: -4},
		{name: "zero quantity", item: Item{BasePrice: 80}, qty: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line := testEngine().Price(tc.item, tc.qty)
			assert.False(t, math.IsNaN(line.UnitPrice), "unit price is NaN")
			assert.False(t, math.IsNaN(line.TotalPrice), "total is NaN")
			assert.GreaterOrEqual(t, line.UnitPrice, 0.0)
			assert.GreaterOrEqual(t, line.TotalPrice, 0.0)
			assert.GreaterOrEqual(t, line.Quantity, 0)
		})
	}
}

func TestEngineNanTierIsTreatedAsNoDiscount(t *testing.T) {
	item := Item{
		BasePrice: 80,
		Tiers:     []Tier{{MinQty: 1, Strategy: enums.TierStrategyFixedPrice, Value: math.NaN()}},
	}

	line := testEngine().Price(item, 1)

	assert.InDelta(t, 80, line.UnitPrice, 1e-9)
}

func TestRoundMoneyAndFormat(t *testing.T) {
	assert.Equal(t, 10.13, RoundMoney(10.125))
	assert.Equal(t, 0.0, RoundMoney(math.NaN()))
	assert.Equal(t, "50,000.00", FormatAmount(50000))
	assert.Equal(t, "999.50", FormatAmount(999.5))
	assert.Equal(t, "1,234,567.89", FormatAmount(1234567.891))
}

func TestApplyDeliverySurcharge(t *testing.T) {
	assert.Equal(t, 0.0, ApplyDeliverySurcharge(enums.DeliveryMethodPickup, 2500))
	assert.Equal(t, 2500.0, ApplyDeliverySurcharge(enums.DeliveryMethodNormal, 2500))
	assert.Equal(t, 3750.0, ApplyDeliverySurcharge(enums.DeliveryMethodExpress, 2500))
	assert.Equal(t, 15.52, ApplyDeliverySurcharge(enums.DeliveryMethodExpress, 10.345))
	assert.Equal(t, 0.0, ApplyDeliverySurcharge(enums.DeliveryMethodExpress, -3))
}

func TestEnginePricesNonPositiveQuantityAsEmptyLine(t *testing.T) {
	item := Item{BasePrice: 250}

	for _, qty := range []int{0, -3} {
		line := testEngine().Price(item, qty)
		if line.Quantity != 0 {
			t.Fatalf("qty %d: expected quantity floored to 0, got %d", qty, line.Quantity)
		}
		if line.TotalPrice != 0 || line.AppliedDiscount != 0 {
			t.Fatalf("qty %d: expected empty line, got %+v", qty, line)
		}
		if line.UnitPrice != 250 {
			t.Fatalf("qty %d: unit price should still be quoted, got %v", qty, line.UnitPrice)
		}
	}
}
