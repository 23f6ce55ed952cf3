package models

// All lists every model in dependency order for AutoMigrate on sqlite.
// Postgres schemas come from the goose migrations.
func All() []any {
	return []any{
		&Product{},
		&AttributeOption{},
		&PricingTier{},
		&ProductSale{},
		&SaleVariant{},
		&Coupon{},
		&ShippingRate{},
		&Order{},
		&OrderLineItem{},
		&WishlistItem{},
	}
}
