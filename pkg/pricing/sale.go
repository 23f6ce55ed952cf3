package pricing

import (
	"math"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
)

// Sale is a time-boxed or standing discount on a product. Start and end dates
// are only honoured for flash sales.
type Sale struct {
	Type         enums.SaleType         `json:"type"`
	StartDate    *time.Time             `json:"startDate,omitempty"`
	EndDate      *time.Time             `json:"endDate,omitempty"`
	DiscountType enums.SaleDiscountType `json:"discountType"`
	Discount     float64                `json:"discount"`
	IsHot        bool                   `json:"isHot"`
	Variants     []SaleVariant          `json:"variants,omitempty"`
}

// SaleVariant scopes a discount to one attribute name/value pair. MaxBuys <= 0
// means the variant is uncapped.
type SaleVariant struct {
	AttributeName  string                 `json:"attributeName"`
	AttributeValue string                 `json:"attributeValue"`
	DiscountType   enums.SaleDiscountType `json:"discountType"`
	Discount       float64                `json:"discount"`
	MaxBuys        int                    `json:"maxBuys"`
	BoughtCount    int                    `json:"boughtCount"`
}

// SaleResult describes the discount a sale contributes to one unit.
type SaleResult struct {
	HasActiveSale   bool       `json:"hasActiveSale"`
	OriginalPrice   float64    `json:"originalPrice"`
	DiscountedPrice float64    `json:"discountedPrice"`
	DiscountAmount  float64    `json:"discountAmount"`
	Multiplier      float64    `json:"multiplier"`
	PercentOff      int        `json:"percentOff"`
	VariantIndex    int        `json:"variantIndex"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	ShowProgress    bool       `json:"showProgress"`
	SoldQuantity    int        `json:"soldQuantity,omitempty"`
	AvailableStock  int        `json:"availableStock,omitempty"`
	PercentSold     int        `json:"percentSold,omitempty"`
}

func (v SaleVariant) Exhausted() bool {
	return v.MaxBuys > 0 && v.BoughtCount >= v.MaxBuys
}

// Matches reports whether any selected attribute carries the variant's exact
// name and value.
func (v SaleVariant) Matches(selected []Attribute) bool {
	for _, attr := range selected {
		if attr.matches(v.AttributeName, v.AttributeValue) {
			return true
		}
	}
	return false
}

// InWindow reports whether the sale is live at now.
func (s *Sale) InWindow(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.Type != enums.SaleTypeFlash {
		return true
	}
	if s.StartDate != nil && now.Before(*s.StartDate) {
		return false
	}
	if s.EndDate != nil && now.After(*s.EndDate) {
		return false
	}
	return true
}

// SoldOut reports whether the sale has capped variants and all of them are spent.
func (s *Sale) SoldOut() bool {
	if s == nil || len(s.Variants) == 0 {
		return false
	}
	for _, v := range s.Variants {
		if !v.Exhausted() {
			return false
		}
	}
	return true
}

// ResolveSale picks the discount that applies to basePrice for the selected
// attributes. A matching, non-exhausted variant wins over the general
// discount; between matching variants the larger discount wins.
func ResolveSale(sale *Sale, basePrice float64, selected []Attribute, now time.Time) SaleResult {
	base := nonNegative(basePrice)
	result := SaleResult{
		OriginalPrice:   base,
		DiscountedPrice: base,
		Multiplier:      1,
		VariantIndex:    -1,
	}
	if sale == nil || !sale.InWindow(now) || sale.SoldOut() {
		return result
	}

	discountType, discount := sale.DiscountType, sale.Discount
	var best float64
	for i, variant := range sale.Variants {
		if variant.Exhausted() || !variant.Matches(selected) {
			continue
		}
		amount := discountAmount(variant.DiscountType, variant.Discount, base)
		if result.VariantIndex == -1 || amount > best {
			best = amount
			result.VariantIndex = i
			discountType, discount = variant.DiscountType, variant.Discount
		}
	}

	amount := discountAmount(discountType, discount, base)
	multiplier := saleMultiplier(discountType, discount, base, amount)
	if amount <= 0 && multiplier >= 1 {
		result.VariantIndex = -1
		return result
	}

	result.HasActiveSale = true
	result.DiscountAmount = amount
	result.DiscountedPrice = base - amount
	result.Multiplier = multiplier
	result.PercentOff = percentOff(discountType, discount, base, amount)
	if sale.Type == enums.SaleTypeFlash {
		result.ExpiresAt = sale.EndDate
	}
	applyProgress(&result, sale, selected)
	return result
}

func discountAmount(kind enums.SaleDiscountType, value, base float64) float64 {
	value = nonNegative(value)
	var amount float64
	switch kind {
	case enums.SaleDiscountTypeAmount:
		amount = value
	default:
		amount = base * value / 100
	}
	return math.Min(amount, base)
}

// saleMultiplier is the factor later applied to the tier base. Percent
// discounts are scale free; flat amounts are expressed relative to base using
// the raw amount, never the rounded percent.
func saleMultiplier(kind enums.SaleDiscountType, value, base, amount float64) float64 {
	switch kind {
	case enums.SaleDiscountTypeAmount:
		if base <= 0 {
			return 1
		}
		return (base - amount) / base
	default:
		return math.Max(0, 1-nonNegative(value)/100)
	}
}

func percentOff(kind enums.SaleDiscountType, value, base, amount float64) int {
	var pct float64
	switch {
	case kind == enums.SaleDiscountTypeAmount && base > 0:
		pct = amount / base * 100
	case kind == enums.SaleDiscountTypeAmount:
		pct = 0
	default:
		pct = nonNegative(value)
	}
	rounded := int(math.Round(pct))
	if rounded > 100 {
		return 100
	}
	return rounded
}

// applyProgress fills the "x sold / y left" metrics. They describe the variants
// matching the selection, or every variant when none match, and are only shown
// for hot sales that still have capacity.
func applyProgress(result *SaleResult, sale *Sale, selected []Attribute) {
	var relevant []SaleVariant
	for _, v := range sale.Variants {
		if v.Matches(selected) {
			relevant = append(relevant, v)
		}
	}
	if len(relevant) == 0 {
		relevant = sale.Variants
	}

	var total, sold int
	for _, v := range relevant {
		if v.MaxBuys <= 0 {
			continue
		}
		total += v.MaxBuys
		sold += max(0, min(v.BoughtCount, v.MaxBuys))
	}
	if !sale.IsHot || total == 0 || sold >= total {
		return
	}

	result.ShowProgress = true
	result.SoldQuantity = sold
	result.AvailableStock = total - sold
	result.PercentSold = sold * 100 / total
}
