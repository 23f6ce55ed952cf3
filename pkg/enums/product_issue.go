package enums

import "fmt"

// ProductIssueType enumerates the problems the server can report for a checkout line.
type ProductIssueType string

const (
	ProductIssueTypeOutOfStock           ProductIssueType = "outOfStock"
	ProductIssueTypeQuantityReduced      ProductIssueType = "quantityReduced"
	ProductIssueTypeAttributeUnavailable ProductIssueType = "attributeUnavailable"
	ProductIssueTypePriceChanged         ProductIssueType = "priceChanged"
	ProductIssueTypeSaleExpired          ProductIssueType = "saleExpired"
)

var validProductIssueTypes = []ProductIssueType{
	ProductIssueTypeOutOfStock,
	ProductIssueTypeQuantityReduced,
	ProductIssueTypeAttributeUnavailable,
	ProductIssueTypePriceChanged,
	ProductIssueTypeSaleExpired,
}

// String implements fmt.Stringer.
func (p ProductIssueType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductIssueType.
func (p ProductIssueType) IsValid() bool {
	for _, candidate := range validProductIssueTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductIssueType converts raw input into a ProductIssueType.
func ParseProductIssueType(value string) (ProductIssueType, error) {
	for _, candidate := range validProductIssueTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product issue type %q", value)
}

// IssueSeverity ranks product issues. Critical issues always block checkout.
type IssueSeverity string

const (
	IssueSeverityCritical IssueSeverity = "critical"
	IssueSeverityWarning  IssueSeverity = "warning"
	IssueSeverityInfo     IssueSeverity = "info"
)

var validIssueSeverities = []IssueSeverity{
	IssueSeverityCritical,
	IssueSeverityWarning,
	IssueSeverityInfo,
}

// String implements fmt.Stringer.
func (i IssueSeverity) String() string {
	return string(i)
}

// IsValid reports whether the value is a known IssueSeverity.
func (i IssueSeverity) IsValid() bool {
	for _, candidate := range validIssueSeverities {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIssueSeverity converts raw input into a IssueSeverity.
func ParseIssueSeverity(value string) (IssueSeverity, error) {
	for _, candidate := range validIssueSeverities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid issue severity %q", value)
}
