package pricing

import "time"

// Item is everything the engine needs to price one cart line.
type Item struct {
	BasePrice       float64          `json:"basePrice"`
	AttributePrices []AttributePrice `json:"attributePrices,omitempty"`
	Selected        []Attribute      `json:"selectedAttributes,omitempty"`
	Sale            *Sale            `json:"sale,omitempty"`
	Tiers           []Tier           `json:"tiers,omitempty"`
}

// LinePrice is the unrounded price breakdown of a line. Discounts other than
// AppliedDiscount are per unit.
type LinePrice struct {
	Quantity        int        `json:"quantity"`
	BasePrice       float64    `json:"basePrice"`
	TierBasePrice   float64    `json:"tierBasePrice"`
	UnitPrice       float64    `json:"unitPrice"`
	TotalPrice      float64    `json:"totalPrice"`
	SaleDiscount    float64    `json:"saleDiscount"`
	TierDiscount    float64    `json:"tierDiscount"`
	AppliedDiscount float64    `json:"appliedDiscount"`
	PricingTier     *Tier      `json:"pricingTier,omitempty"`
	Sale            SaleResult `json:"sale"`
}

type Option func(*Engine)

// WithClock overrides the time source used for flash sale windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine composes attribute overrides, sales and volume tiers into a unit price.
type Engine struct {
	now func() time.Time
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EffectiveBasePrice returns the override of the first selected attribute
// that has one, or the product base price.
func EffectiveBasePrice(item Item) float64 {
	for _, attr := range item.Selected {
		for _, override := range item.AttributePrices {
			if attr.matches(override.Name, override.Value) && finite(override.Price) {
				return nonNegative(override.Price)
			}
		}
	}
	return nonNegative(item.BasePrice)
}

// Price computes the line for quantity. The sale multiplier is resolved
// against the effective base, the tier against the same pre-sale base, and the
// two are then combined. Nothing is rounded here.
func (e *Engine) Price(item Item, quantity int) LinePrice {
	if quantity < 0 {
		quantity = 0
	}
	base := EffectiveBasePrice(item)

	sale := ResolveSale(item.Sale, base, item.Selected, e.now())
	tier := FindTier(item.Tiers, quantity)
	tierBase := CalculateTierBasePrice(base, tier)

	unit := nonNegative(tierBase * sale.Multiplier)
	total := unit * float64(quantity)

	return LinePrice{
		Quantity:        quantity,
		BasePrice:       base,
		TierBasePrice:   tierBase,
		UnitPrice:       unit,
		TotalPrice:      total,
		SaleDiscount:    nonNegative(tierBase - unit),
		TierDiscount:    nonNegative(base - tierBase),
		AppliedDiscount: nonNegative(base*float64(quantity) - total),
		PricingTier:     tier,
		Sale:            sale,
	}
}
