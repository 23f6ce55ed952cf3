package enums

import "fmt"

// SaleType classifies a product sale. Only flash sales honour start/end windows.
type SaleType string

const (
	SaleTypeFlash   SaleType = "flash"
	SaleTypeLimited SaleType = "limited"
	SaleTypeNormal  SaleType = "normal"
)

var validSaleTypes = []SaleType{
	SaleTypeFlash,
	SaleTypeLimited,
	SaleTypeNormal,
}

// String implements fmt.Stringer.
func (s SaleType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleType.
func (s SaleType) IsValid() bool {
	for _, candidate := range validSaleTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleType converts raw input into a SaleType.
func ParseSaleType(value string) (SaleType, error) {
	for _, candidate := range validSaleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale type %q", value)
}

// SaleDiscountType says whether a sale or variant discount is a percentage or a flat amount.
type SaleDiscountType string

const (
	SaleDiscountTypePercent SaleDiscountType = "percent"
	SaleDiscountTypeAmount  SaleDiscountType = "amount"
)

var validSaleDiscountTypes = []SaleDiscountType{
	SaleDiscountTypePercent,
	SaleDiscountTypeAmount,
}

// String implements fmt.Stringer.
func (s SaleDiscountType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleDiscountType.
func (s SaleDiscountType) IsValid() bool {
	for _, candidate := range validSaleDiscountTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleDiscountType converts raw input into a SaleDiscountType.
func ParseSaleDiscountType(value string) (SaleDiscountType, error) {
	for _, candidate := range validSaleDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale discount type %q", value)
}
