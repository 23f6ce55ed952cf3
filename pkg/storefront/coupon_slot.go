package storefront

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// ErrStaleCoupon is returned when the slot was cleared or re-applied while a
// validation was in flight. The late result is discarded.
var ErrStaleCoupon = errors.New("storefront: coupon result superseded")

// CouponValidator is the remote check behind Apply.
type CouponValidator interface {
	ValidateCoupon(ctx context.Context, req types.CouponValidateRequest) (*types.CouponValidateResponse, error)
}

// CouponCart is the cart context a code is validated against.
type CouponCart struct {
	OrderTotal  float64
	ProductIDs  []string
	CategoryIDs []string
}

// CartContext derives the coupon context from the cart's current lines.
func CartContext(cart *Cart) CouponCart {
	out := CouponCart{}
	seenP := map[string]struct{}{}
	seenC := map[string]struct{}{}
	for _, line := range cart.Lines() {
		out.OrderTotal += line.Price.TotalPrice
		p := line.Item.Product
		if _, ok := seenP[p.ID]; !ok {
			seenP[p.ID] = struct{}{}
			out.ProductIDs = append(out.ProductIDs, p.ID)
		}
		if p.CategoryID == "" {
			continue
		}
		if _, ok := seenC[p.CategoryID]; !ok {
			seenC[p.CategoryID] = struct{}{}
			out.CategoryIDs = append(out.CategoryIDs, p.CategoryID)
		}
	}
	return out
}

// AppliedCoupon is the code occupying the slot and the discount the server
// computed for the cart it was validated against.
type AppliedCoupon struct {
	Code     string
	Discount float64
	Coupon   types.CouponView
}

// ThresholdPromo is an automatic spend-based discount shown alongside the slot.
type ThresholdPromo struct {
	Label  string
	Amount float64
}

// CouponSlot holds at most one manually entered coupon. A successful Apply
// replaces whatever was there and clears any threshold promo.
type CouponSlot struct {
	mu        sync.Mutex
	validator CouponValidator
	applied   *AppliedCoupon
	promo     *ThresholdPromo
	gen       uint64
}

func NewCouponSlot(validator CouponValidator) *CouponSlot {
	return &CouponSlot{validator: validator}
}

// Apply validates code against cart. A rejection is returned as data and
// leaves the slot untouched.
func (s *CouponSlot) Apply(ctx context.Context, code string, cart CouponCart) (*types.CouponValidateResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("storefront: coupon code is required")
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	resp, err := s.validator.ValidateCoupon(ctx, types.CouponValidateRequest{
		Code:        code,
		OrderTotal:  cart.OrderTotal,
		ProductIDs:  cart.ProductIDs,
		CategoryIDs: cart.CategoryIDs,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return resp, ErrStaleCoupon
	}
	if !resp.Valid || resp.Data == nil {
		return resp, nil
	}
	applied := &AppliedCoupon{
		Code:     resp.Data.Coupon.Code,
		Discount: resp.Data.Discount,
		Coupon:   resp.Data.Coupon,
	}
	if applied.Code == "" {
		applied.Code = strings.ToUpper(code)
	}
	s.applied = applied
	s.promo = nil
	return resp, nil
}

// Clear empties the slot and discards in-flight validations.
func (s *CouponSlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.applied = nil
}

func (s *CouponSlot) Applied() *AppliedCoupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied == nil {
		return nil
	}
	cp := *s.applied
	return &cp
}

// SetThresholdPromo records an automatic promo. It does not touch the slot.
func (s *CouponSlot) SetThresholdPromo(p *ThresholdPromo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.promo = nil
		return
	}
	cp := *p
	s.promo = &cp
}

func (s *CouponSlot) ThresholdPromo() *ThresholdPromo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.promo == nil {
		return nil
	}
	cp := *s.promo
	return &cp
}

// Codes lists the slot's code for a checkout request.
func (s *CouponSlot) Codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied == nil {
		return nil
	}
	return []string{s.applied.Code}
}

// CouponDiscount is the slot's discount capped at orderTotal. Threshold promos
// are display-only and never part of what the server verifies.
func (s *CouponSlot) CouponDiscount(orderTotal float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied == nil || orderTotal <= 0 {
		return 0
	}
	if s.applied.Discount > orderTotal {
		return orderTotal
	}
	return s.applied.Discount
}

// Revalidate re-applies the slot's code against a changed cart. If the code no
// longer qualifies the slot is emptied and the rejection returned.
func (s *CouponSlot) Revalidate(ctx context.Context, cart CouponCart) (*types.CouponValidateResponse, error) {
	current := s.Applied()
	if current == nil {
		return nil, nil
	}
	resp, err := s.Apply(ctx, current.Code, cart)
	if err != nil {
		return resp, err
	}
	if !resp.Valid {
		s.mu.Lock()
		if s.applied != nil && s.applied.Code == current.Code {
			s.applied = nil
		}
		s.mu.Unlock()
	}
	return resp, nil
}
