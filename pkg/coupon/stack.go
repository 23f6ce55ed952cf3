package coupon

import (
	"math"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
)

// Applied is a coupon that made it into the active set.
type Applied struct {
	Coupon   *Coupon
	Discount float64
}

// Stacked is the outcome of applying several codes in order.
type Stacked struct {
	Applied  []Applied
	Rejected []Result
	Total    float64
}

// Codes lists the active codes in application order.
func (s Stacked) Codes() []string {
	out := make([]string, 0, len(s.Applied))
	for _, a := range s.Applied {
		out = append(out, NormalizeCode(a.Coupon.Code))
	}
	return out
}

// Stack applies coupons in order. A valid coupon joins the active set only if
// it and every coupon already in the set are stackable; otherwise it replaces
// the set. The combined discount never exceeds the order total.
func Stack(coupons []*Coupon, in Input, now time.Time) Stacked {
	var out Stacked
	for _, c := range coupons {
		res := Validate(c, in, now)
		if !res.Valid {
			out.Rejected = append(out.Rejected, res)
			continue
		}
		if canJoin(out.Applied, c) {
			out.Applied = append(out.Applied, Applied{Coupon: c, Discount: res.Discount})
			continue
		}
		for _, dropped := range out.Applied {
			out.Rejected = append(out.Rejected, Result{
				Code:    NormalizeCode(dropped.Coupon.Code),
				Reason:  enums.CouponRejectionNotStackable,
				Message: "Replaced by a coupon that cannot be combined",
			})
		}
		out.Applied = []Applied{{Coupon: c, Discount: res.Discount}}
	}

	var sum float64
	for _, a := range out.Applied {
		sum += a.Discount
	}
	out.Total = math.Min(sum, clamp(in.OrderTotal))
	return out
}

func canJoin(active []Applied, next *Coupon) bool {
	if len(active) == 0 {
		return true
	}
	if !next.Stackable {
		return false
	}
	for _, a := range active {
		if !a.Coupon.Stackable {
			return false
		}
	}
	return true
}
