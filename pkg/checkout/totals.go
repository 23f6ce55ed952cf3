package checkout

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// ArithmeticViolation describes a client figure that disagrees with the
// client's own lines.
type ArithmeticViolation struct {
	Field    string  `json:"field"`
	ItemKey  string  `json:"item_key,omitempty"`
	Expected float64 `json:"expected"`
	Received float64 `json:"received"`
}

// VerifyArithmetic checks the request is internally consistent: each line
// total is unit × qty, the subtotal is the sum of lines and the total is
// subtotal − discount + shipping. A mismatch here has no per-item fix.
func VerifyArithmetic(req types.CheckoutRequest, tolerance float64) error {
	var violations []ArithmeticViolation

	var subtotal float64
	for _, item := range req.Items {
		expected := item.UnitPrice * float64(item.Qty)
		if !pricing.WithinTolerance(expected, item.TotalPrice, tolerance) {
			violations = append(violations, ArithmeticViolation{
				Field:    "totalPrice",
				ItemKey:  item.ItemKey,
				Expected: pricing.RoundMoney(expected),
				Received: item.TotalPrice,
			})
		}
		subtotal += item.TotalPrice
	}

	if !pricing.WithinTolerance(subtotal, req.Subtotal, tolerance) {
		violations = append(violations, ArithmeticViolation{
			Field:    "subtotal",
			Expected: pricing.RoundMoney(subtotal),
			Received: req.Subtotal,
		})
	}

	total := req.Subtotal - req.TotalDiscount + req.ShippingCost
	if total < 0 {
		total = 0
	}
	if !pricing.WithinTolerance(total, req.Total, tolerance) {
		violations = append(violations, ArithmeticViolation{
			Field:    "total",
			Expected: pricing.RoundMoney(total),
			Received: req.Total,
		})
	}

	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeIntegrity, fmt.Sprintf("cart totals inconsistent in %d place(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

// Totals are the authoritative cart-level figures.
type Totals struct {
	Subtotal       float64
	CouponDiscount float64
	ShippingCost   float64
	Total          float64
	ItemCount      int
	ItemsRemaining int
}

// ComputeTotals sums line checks that survive correction.
func ComputeTotals(lines []LineCheck, couponDiscount, shippingCost float64) Totals {
	var t Totals
	for _, line := range lines {
		if line.Removed {
			continue
		}
		t.ItemsRemaining++
		t.ItemCount += line.Quantity
		t.Subtotal += line.Price.TotalPrice
	}
	if couponDiscount > t.Subtotal {
		couponDiscount = t.Subtotal
	}
	t.CouponDiscount = couponDiscount
	t.ShippingCost = shippingCost
	t.Total = t.Subtotal - couponDiscount + shippingCost
	if t.Total < 0 {
		t.Total = 0
	}
	return t
}
