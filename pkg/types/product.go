package types

import "github.com/angelmondragon/storefront-checkout/pkg/pricing"

// AttributeOptions lists the values offered for one attribute name. Stock holds
// the remaining units of values that track their own stock; values absent from
// it only follow the product stock.
type AttributeOptions struct {
	Name   string         `json:"name"`
	Values []string       `json:"values"`
	Stock  map[string]int `json:"stock,omitempty"`
}

// ProductSnapshot is the pricing view of a product that clients copy into
// cart lines and the server returns when prices move.
type ProductSnapshot struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	CategoryID      string                   `json:"categoryId"`
	BasePrice       float64                  `json:"basePrice"`
	Currency        string                   `json:"currency"`
	Stock           int                      `json:"stock"`
	AttributePrices []pricing.AttributePrice `json:"attributePrices,omitempty"`
	Attributes      []AttributeOptions       `json:"attributes,omitempty"`
	Sale            *pricing.Sale            `json:"sale,omitempty"`
	Tiers           []pricing.Tier           `json:"tiers,omitempty"`
}

// PricingItem builds the engine input for a selection of this product.
func (p ProductSnapshot) PricingItem(selected []pricing.Attribute) pricing.Item {
	return pricing.Item{
		BasePrice:       p.BasePrice,
		AttributePrices: p.AttributePrices,
		Selected:        selected,
		Sale:            p.Sale,
		Tiers:           p.Tiers,
	}
}

// OptionStock reports the stock of the selected value when it tracks its own.
func (p ProductSnapshot) OptionStock(attr pricing.Attribute) (int, bool) {
	for _, opt := range p.Attributes {
		if opt.Name != attr.Name {
			continue
		}
		if stock, ok := opt.Stock[attr.Value]; ok {
			return stock, true
		}
	}
	return 0, false
}

// PriceQuoteRequest asks the server to price one product selection.
type PriceQuoteRequest struct {
	ProductID          string              `json:"productId" validate:"required,uuid"`
	Quantity           int                 `json:"quantity" validate:"min=1"`
	SelectedAttributes []pricing.Attribute `json:"selectedAttributes"`
}
