package checkout

import (
	"fmt"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// LineCheck is the server's verdict on one submitted line.
type LineCheck struct {
	Issues []types.ProductIssue
	// Removed is set when nothing about the line can be fulfilled.
	Removed bool
	// Quantity is what the server would accept for the line.
	Quantity int
	// Price is the authoritative price at Quantity.
	Price pricing.LinePrice
}

// IsBlocking reports whether an issue must be reviewed before resubmitting.
// Critical issues and anything touching availability or attributes block;
// price and sale notices do not.
func IsBlocking(issue types.ProductIssue) bool {
	if issue.Severity == enums.IssueSeverityCritical {
		return true
	}
	switch issue.Type {
	case enums.ProductIssueTypeOutOfStock,
		enums.ProductIssueTypeQuantityReduced,
		enums.ProductIssueTypeAttributeUnavailable:
		return true
	}
	return false
}

// CheckLine compares a client line against the product as the server sees it.
// product is nil when the product no longer exists or is unpublished.
func CheckLine(item types.CheckoutItem, product *types.ProductSnapshot, engine *pricing.Engine, tolerance float64) LineCheck {
	base := types.ProductIssue{
		ItemKey:            item.ItemKey,
		ProductID:          item.Product,
		RequestedQty:       item.Qty,
		SelectedAttributes: item.SelectedAttributes,
	}

	if product == nil || product.Stock <= 0 {
		issue := base
		if product != nil {
			issue.Name = product.Name
		}
		issue.Type = enums.ProductIssueTypeOutOfStock
		issue.Severity = enums.IssueSeverityCritical
		issue.Message = "This item is out of stock"
		issue.AvailableStock = intPtr(0)
		return LineCheck{Issues: []types.ProductIssue{issue}, Removed: true}
	}
	base.Name = product.Name

	check := LineCheck{Quantity: item.Qty}

	if attrIssue, removed := checkAttributes(base, item.SelectedAttributes, product.Attributes); attrIssue != nil {
		if removed {
			return LineCheck{Issues: []types.ProductIssue{*attrIssue}, Removed: true}
		}
		check.Issues = append(check.Issues, *attrIssue)
	}

	requested := engine.Price(product.PricingItem(item.SelectedAttributes), item.Qty)

	if available, reason := availableUnits(product, item.SelectedAttributes, requested.Sale); item.Qty > available {
		issue := base
		issue.Type = enums.ProductIssueTypeQuantityReduced
		issue.Severity = enums.IssueSeverityWarning
		issue.Message = reason
		issue.AvailableStock = intPtr(available)
		check.Issues = append(check.Issues, issue)
		check.Quantity = available
	}
	if !pricing.WithinTolerance(item.UnitPrice, requested.UnitPrice, tolerance) {
		issue := base
		issue.Severity = enums.IssueSeverityInfo
		issue.OldPrice = floatPtr(pricing.RoundMoney(item.UnitPrice))
		issue.NewPrice = floatPtr(pricing.RoundMoney(requested.UnitPrice))
		snapshot := *product
		issue.Product = &snapshot
		if item.Sale && !requested.Sale.HasActiveSale {
			issue.Type = enums.ProductIssueTypeSaleExpired
			issue.Message = "The sale on this item has ended"
		} else {
			issue.Type = enums.ProductIssueTypePriceChanged
			issue.Message = fmt.Sprintf("Price changed from %s to %s",
				pricing.FormatAmount(item.UnitPrice), pricing.FormatAmount(requested.UnitPrice))
		}
		check.Issues = append(check.Issues, issue)
	}

	if check.Quantity == item.Qty {
		check.Price = requested
	} else {
		check.Price = engine.Price(product.PricingItem(item.SelectedAttributes), check.Quantity)
	}
	return check
}

// availableUnits is the most the line can take: product stock, the stock of
// every selected option that tracks its own, and the capacity left on the sale
// variant the line is priced through.
func availableUnits(product *types.ProductSnapshot, selected []pricing.Attribute, sale pricing.SaleResult) (int, string) {
	available := product.Stock
	reason := fmt.Sprintf("Only %d left in stock", available)
	for _, attr := range selected {
		if stock, tracked := product.OptionStock(attr); tracked && stock < available {
			available = max(stock, 0)
			reason = fmt.Sprintf("Only %d left in %s %s", available, attr.Name, attr.Value)
		}
	}
	if !sale.HasActiveSale || product.Sale == nil || sale.VariantIndex < 0 || sale.VariantIndex >= len(product.Sale.Variants) {
		return available, reason
	}
	if v := product.Sale.Variants[sale.VariantIndex]; v.MaxBuys > 0 && v.MaxBuys-v.BoughtCount < available {
		available = max(v.MaxBuys-v.BoughtCount, 0)
		reason = fmt.Sprintf("Only %d left at the sale price", available)
	}
	return available, reason
}

// checkAttributes returns an attributeUnavailable issue with alternatives, or
// an outOfStock issue (removed=true) when the attribute has no values left.
func checkAttributes(base types.ProductIssue, selected []pricing.Attribute, offered []types.AttributeOptions) (*types.ProductIssue, bool) {
	var alternatives []types.AttributeOptions
	for _, attr := range selected {
		values, known := optionValues(offered, attr.Name)
		if contains(values, attr.Value) {
			continue
		}
		if !known || len(values) == 0 {
			issue := base
			issue.Type = enums.ProductIssueTypeOutOfStock
			issue.Severity = enums.IssueSeverityCritical
			issue.Message = fmt.Sprintf("No %s options are available", attr.Name)
			issue.AvailableStock = intPtr(0)
			return &issue, true
		}
		alternatives = append(alternatives, types.AttributeOptions{Name: attr.Name, Values: values})
	}
	if len(alternatives) == 0 {
		return nil, false
	}

	issue := base
	issue.Type = enums.ProductIssueTypeAttributeUnavailable
	issue.Severity = enums.IssueSeverityWarning
	issue.Message = fmt.Sprintf("Selected %s is no longer available", alternatives[0].Name)
	issue.Alternatives = alternatives
	return &issue, false
}

func optionValues(offered []types.AttributeOptions, name string) ([]string, bool) {
	for _, opt := range offered {
		if opt.Name == name {
			return opt.Values, true
		}
	}
	return nil, false
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// DetectIssues checks every line against the products the server could load.
// products is keyed by product id; missing entries are treated as out of stock.
func DetectIssues(items []types.CheckoutItem, products map[string]*types.ProductSnapshot, engine *pricing.Engine, tolerance float64) []LineCheck {
	out := make([]LineCheck, 0, len(items))
	for _, item := range items {
		out = append(out, CheckLine(item, products[item.Product], engine, tolerance))
	}
	return out
}

// Issues flattens the issues of every line in submission order.
func Issues(lines []LineCheck) []types.ProductIssue {
	var out []types.ProductIssue
	for _, line := range lines {
		out = append(out, line.Issues...)
	}
	return out
}
