package enums

import "fmt"

// CouponDiscountType controls how a coupon discount is computed from the order total.
type CouponDiscountType string

const (
	CouponDiscountTypePercentage  CouponDiscountType = "percentage"
	CouponDiscountTypeFixedAmount CouponDiscountType = "fixedAmount"
)

var validCouponDiscountTypes = []CouponDiscountType{
	CouponDiscountTypePercentage,
	CouponDiscountTypeFixedAmount,
}

// String implements fmt.Stringer.
func (c CouponDiscountType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CouponDiscountType.
func (c CouponDiscountType) IsValid() bool {
	for _, candidate := range validCouponDiscountTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponDiscountType converts raw input into a CouponDiscountType.
func ParseCouponDiscountType(value string) (CouponDiscountType, error) {
	for _, candidate := range validCouponDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon discount type %q", value)
}

// CouponScope restricts which cart lines make a coupon applicable.
type CouponScope string

const (
	CouponScopeAll        CouponScope = "all"
	CouponScopeProducts   CouponScope = "products"
	CouponScopeCategories CouponScope = "categories"
)

var validCouponScopes = []CouponScope{
	CouponScopeAll,
	CouponScopeProducts,
	CouponScopeCategories,
}

// String implements fmt.Stringer.
func (c CouponScope) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CouponScope.
func (c CouponScope) IsValid() bool {
	for _, candidate := range validCouponScopes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponScope converts raw input into a CouponScope.
func ParseCouponScope(value string) (CouponScope, error) {
	for _, candidate := range validCouponScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon scope %q", value)
}

// CouponRejection is the typed reason a coupon was not applied.
type CouponRejection string

const (
	CouponRejectionNotFound       CouponRejection = "not_found"
	CouponRejectionInactive       CouponRejection = "inactive"
	CouponRejectionNotStarted     CouponRejection = "not_started"
	CouponRejectionExpired        CouponRejection = "expired"
	CouponRejectionUsageExhausted CouponRejection = "usage_exhausted"
	CouponRejectionBelowMinimum   CouponRejection = "below_minimum"
	CouponRejectionOutOfScope     CouponRejection = "out_of_scope"
	CouponRejectionNotStackable   CouponRejection = "not_stackable"
)

var validCouponRejections = []CouponRejection{
	CouponRejectionNotFound,
	CouponRejectionInactive,
	CouponRejectionNotStarted,
	CouponRejectionExpired,
	CouponRejectionUsageExhausted,
	CouponRejectionBelowMinimum,
	CouponRejectionOutOfScope,
	CouponRejectionNotStackable,
}

// String implements fmt.Stringer.
func (c CouponRejection) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CouponRejection.
func (c CouponRejection) IsValid() bool {
	for _, candidate := range validCouponRejections {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponRejection converts raw input into a CouponRejection.
func ParseCouponRejection(value string) (CouponRejection, error) {
	for _, candidate := range validCouponRejections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon rejection %q", value)
}
