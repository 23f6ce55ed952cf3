package coupon

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
)

// Coupon is the rule set behind a discount code.
type Coupon struct {
	Code          string
	DiscountType  enums.CouponDiscountType
	Discount      float64
	MinOrderValue float64
	AppliesTo     enums.CouponScope
	ProductIDs    []string
	CategoryIDs   []string
	Stackable     bool
	Active        bool
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	UsageLimit    int
	UsedCount     int
}

// Input is the cart context a coupon is checked against.
type Input struct {
	OrderTotal  float64
	ProductIDs  []string
	CategoryIDs []string
}

// Result is returned for accepted and rejected coupons alike. Rejections are
// data, never errors.
type Result struct {
	Valid    bool
	Code     string
	Discount float64
	Message  string
	Reason   enums.CouponRejection
}

// NormalizeCode uppercases and trims a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func reject(code string, reason enums.CouponRejection, msg string) Result {
	return Result{Code: code, Reason: reason, Message: msg}
}

// Validate runs the coupon checks in order and stops at the first failure:
// existence and validity window, minimum order value, then scope.
func Validate(c *Coupon, in Input, now time.Time) Result {
	if c == nil {
		return reject("", enums.CouponRejectionNotFound, "Coupon not found")
	}
	code := NormalizeCode(c.Code)

	switch {
	case !c.Active:
		return reject(code, enums.CouponRejectionInactive, "Coupon is no longer active")
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return reject(code, enums.CouponRejectionNotStarted, "Coupon is not valid yet")
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return reject(code, enums.CouponRejectionExpired, "Coupon has expired")
	case c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit:
		return reject(code, enums.CouponRejectionUsageExhausted, "Coupon usage limit reached")
	}

	total := clamp(in.OrderTotal)
	if total < clamp(c.MinOrderValue) {
		return reject(code, enums.CouponRejectionBelowMinimum,
			fmt.Sprintf("Minimum order must be %s", pricing.FormatAmount(c.MinOrderValue)))
	}

	if !inScope(c, in) {
		return reject(code, enums.CouponRejectionOutOfScope, scopeMessage(c.AppliesTo))
	}

	discount := Discount(c, total)
	return Result{
		Valid:    true,
		Code:     code,
		Discount: discount,
		Message:  fmt.Sprintf("Coupon applied: %s off", pricing.FormatAmount(discount)),
	}
}

// Discount computes the coupon amount for total. Fixed amounts never exceed
// the total.
func Discount(c *Coupon, total float64) float64 {
	if c == nil {
		return 0
	}
	total = clamp(total)
	value := clamp(c.Discount)
	switch c.DiscountType {
	case enums.CouponDiscountTypeFixedAmount:
		return math.Min(value, total)
	default:
		return math.Min(total*value/100, total)
	}
}

func inScope(c *Coupon, in Input) bool {
	switch c.AppliesTo {
	case enums.CouponScopeProducts:
		return intersects(c.ProductIDs, in.ProductIDs)
	case enums.CouponScopeCategories:
		return intersects(c.CategoryIDs, in.CategoryIDs)
	default:
		return true
	}
}

func scopeMessage(scope enums.CouponScope) string {
	if scope == enums.CouponScopeCategories {
		return "Coupon does not apply to any category in your cart"
	}
	return "Coupon does not apply to any product in your cart"
}

func intersects(allowed, present []string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	for _, id := range present {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
