package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/coupon"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// Service validates discount codes against a cart.
type Service interface {
	Validate(ctx context.Context, req types.CouponValidateRequest) (*types.CouponValidateResponse, error)
	Resolve(ctx context.Context, codes []string, in coupon.Input) (coupon.Stacked, error)
}

type service struct {
	repo    *Repository
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// Option customizes the coupon service.
type Option func(*service)

// WithClock overrides the clock used for validity windows.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a coupon service instance.
func NewService(repo *Repository, m *metrics.CheckoutMetrics, logg *logger.Logger, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &service{repo: repo, metrics: m, logg: logg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Validate answers a single-code lookup. Rejections are returned as data.
func (s *service) Validate(ctx context.Context, req types.CouponValidateRequest) (*types.CouponValidateResponse, error) {
	code := coupon.NormalizeCode(req.Code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}

	row, err := s.repo.FindByCode(ctx, code)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if row == nil {
		s.metrics.IncCouponValidation(enums.CouponRejectionNotFound.String())
		return &types.CouponValidateResponse{
			Success: true,
			Valid:   false,
			Message: "Coupon not found",
			Reason:  enums.CouponRejectionNotFound,
		}, nil
	}

	c := ToCoupon(row)
	res := coupon.Validate(c, coupon.Input{
		OrderTotal:  req.OrderTotal,
		ProductIDs:  req.ProductIDs,
		CategoryIDs: req.CategoryIDs,
	}, s.now())

	if !res.Valid {
		s.metrics.IncCouponValidation(res.Reason.String())
		s.logg.Debug(ctx, fmt.Sprintf("coupon %s rejected: %s", code, res.Reason))
		return &types.CouponValidateResponse{
			Success: true,
			Valid:   false,
			Message: res.Message,
			Reason:  res.Reason,
		}, nil
	}

	s.metrics.IncCouponValidation("valid")
	return &types.CouponValidateResponse{
		Success: true,
		Valid:   true,
		Message: res.Message,
		Data: &types.CouponValidateData{
			Discount: res.Discount,
			Coupon:   View(c),
		},
	}, nil
}

// Resolve stacks codes in submission order. Unknown codes are reported as
// not_found rejections.
func (s *service) Resolve(ctx context.Context, codes []string, in coupon.Input) (coupon.Stacked, error) {
	if len(codes) == 0 {
		return coupon.Stacked{}, nil
	}
	rows, err := s.repo.FindByCodes(ctx, codes)
	if err != nil {
		return coupon.Stacked{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupons")
	}

	var (
		known   []*coupon.Coupon
		missing []coupon.Result
		seen    = map[string]struct{}{}
	)
	for _, raw := range codes {
		code := coupon.NormalizeCode(raw)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		row, ok := rows[code]
		if !ok {
			missing = append(missing, coupon.Result{Code: code, Reason: enums.CouponRejectionNotFound, Message: "Coupon not found"})
			continue
		}
		known = append(known, ToCoupon(row))
	}

	stacked := coupon.Stack(known, in, s.now())
	stacked.Rejected = append(missing, stacked.Rejected...)
	return stacked, nil
}

// ToCoupon converts the persisted row into the rule set used for validation.
func ToCoupon(row *models.Coupon) *coupon.Coupon {
	if row == nil {
		return nil
	}
	return &coupon.Coupon{
		Code:          row.Code,
		DiscountType:  enums.CouponDiscountType(row.DiscountType),
		Discount:      row.Discount,
		MinOrderValue: row.MinOrderValue,
		AppliesTo:     enums.CouponScope(row.AppliesTo),
		ProductIDs:    row.ProductIDs,
		CategoryIDs:   row.CategoryIDs,
		Stackable:     row.Stackable,
		Active:        row.IsActive,
		ValidFrom:     row.ValidFrom,
		ValidUntil:    row.ValidUntil,
		UsageLimit:    row.UsageLimit,
		UsedCount:     row.UsedCount,
	}
}

// View is the public description of c.
func View(c *coupon.Coupon) types.CouponView {
	return types.CouponView{
		Code:          coupon.NormalizeCode(c.Code),
		DiscountType:  c.DiscountType,
		Discount:      c.Discount,
		MinOrderValue: c.MinOrderValue,
		AppliesTo:     c.AppliesTo,
		Stackable:     c.Stackable,
		ValidUntil:    c.ValidUntil,
	}
}
