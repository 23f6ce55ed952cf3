package catalog

import (
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// ToSnapshot converts a loaded product into the pricing view shared with clients.
// Inactive products map to nil. Only options that can still be sold are offered,
// but every attribute name is listed so a fully sold-out attribute shows up empty.
func ToSnapshot(p *models.Product, defaultCurrency string) *types.ProductSnapshot {
	if p == nil || !p.IsActive {
		return nil
	}
	currency := p.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	snap := &types.ProductSnapshot{
		ID:         p.ID.String(),
		Name:       p.Name,
		CategoryID: p.CategoryID,
		BasePrice:  p.BasePrice,
		Currency:   currency,
		Stock:      p.Stock,
		Sale:       toSale(p.Sale),
		Tiers:      toTiers(p.Tiers),
	}

	index := map[string]int{}
	for _, opt := range p.Attributes {
		pos, ok := index[opt.Name]
		if !ok {
			pos = len(snap.Attributes)
			index[opt.Name] = pos
			snap.Attributes = append(snap.Attributes, types.AttributeOptions{Name: opt.Name, Values: []string{}})
		}
		if !opt.Available() {
			continue
		}
		snap.Attributes[pos].Values = append(snap.Attributes[pos].Values, opt.Value)
		if opt.Stock != nil {
			if snap.Attributes[pos].Stock == nil {
				snap.Attributes[pos].Stock = map[string]int{}
			}
			snap.Attributes[pos].Stock[opt.Value] = *opt.Stock
		}
		if opt.PriceOverride != nil {
			snap.AttributePrices = append(snap.AttributePrices, pricing.AttributePrice{
				Name:  opt.Name,
				Value: opt.Value,
				Price: *opt.PriceOverride,
			})
		}
	}
	return snap
}

func toSale(s *models.ProductSale) *pricing.Sale {
	if s == nil {
		return nil
	}
	sale := &pricing.Sale{
		Type:         enums.SaleType(s.Type),
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		DiscountType: enums.SaleDiscountType(s.DiscountType),
		Discount:     s.Discount,
		IsHot:        s.IsHot,
	}
	for _, v := range s.Variants {
		sale.Variants = append(sale.Variants, pricing.SaleVariant{
			AttributeName:  v.AttributeName,
			AttributeValue: v.AttributeValue,
			DiscountType:   enums.SaleDiscountType(v.DiscountType),
			Discount:       v.Discount,
			MaxBuys:        v.MaxBuys,
			BoughtCount:    v.BoughtCount,
		})
	}
	return sale
}

func toTiers(rows []models.PricingTier) []pricing.Tier {
	if len(rows) == 0 {
		return nil
	}
	out := make([]pricing.Tier, 0, len(rows))
	for _, t := range rows {
		out = append(out, pricing.Tier{
			MinQty:   t.MinQty,
			MaxQty:   t.MaxQty,
			Strategy: enums.TierStrategy(t.Strategy),
			Value:    t.Value,
		})
	}
	return out
}
