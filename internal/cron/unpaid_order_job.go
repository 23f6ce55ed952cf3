package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/catalog"
	"github.com/angelmondragon/storefront-checkout/internal/checkout"
	"github.com/angelmondragon/storefront-checkout/internal/coupons"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
)

const (
	defaultUnpaidTTL   = 48 * time.Hour
	defaultExpiryBatch = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// UnpaidOrderJobParams configure the unpaid order expiry job.
type UnpaidOrderJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Orders      *checkout.Repository
	CatalogRepo *catalog.Repository
	CouponRepo  *coupons.Repository
	Metrics     *metrics.CronJobMetrics
	TTL         time.Duration
	BatchSize   int
	Now         func() time.Time
}

// NewUnpaidOrderJob builds the job that expires orders whose hosted payment was
// never completed and gives their stock, sale capacity and coupon uses back.
func NewUnpaidOrderJob(params UnpaidOrderJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.CatalogRepo == nil:
		return nil, fmt.Errorf("catalog repository required")
	case params.CouponRepo == nil:
		return nil, fmt.Errorf("coupon repository required")
	}
	job := &unpaidOrderJob{
		logg:    params.Logger,
		db:      params.DB,
		orders:  params.Orders,
		catalog: params.CatalogRepo,
		coupons: params.CouponRepo,
		metrics: params.Metrics,
		ttl:     params.TTL,
		batch:   params.BatchSize,
		now:     params.Now,
	}
	if job.ttl <= 0 {
		job.ttl = defaultUnpaidTTL
	}
	if job.batch <= 0 {
		job.batch = defaultExpiryBatch
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job, nil
}

type unpaidOrderJob struct {
	logg    *logger.Logger
	db      txRunner
	orders  *checkout.Repository
	catalog *catalog.Repository
	coupons *coupons.Repository
	metrics *metrics.CronJobMetrics
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *unpaidOrderJob) Name() string { return "unpaid-order-expiry" }

// Run expires one batch per cycle. A failing order does not stop the rest.
func (j *unpaidOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.orders.FindUnpaidBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query unpaid orders: %w", err)
	}

	var errs error
	expired := 0
	for _, order := range stale {
		ok, err := j.expire(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}
	j.metrics.AddExpiredOrders(expired)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(stale),
		"expired":    expired,
		"cutoff":     cutoff.Format(time.RFC3339),
	})
	j.logg.Info(logCtx, "unpaid order expiry pass complete")
	return errs
}

func (j *unpaidOrderJob) expire(ctx context.Context, order models.Order) (bool, error) {
	expired := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		orders := j.orders.WithTx(tx)
		products := j.catalog.WithTx(tx)
		couponRepo := j.coupons.WithTx(tx)

		moved, err := orders.TransitionStatus(ctx, order.ID, enums.OrderStatusPendingPayment, enums.OrderStatusExpired)
		if err != nil {
			return err
		}
		if !moved {
			// paid or cancelled since the query
			return nil
		}
		current, err := orders.FindOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		for _, li := range current.LineItems {
			if err := products.Restock(ctx, li.ProductID, li.SelectedAttributes, li.Quantity); err != nil {
				return err
			}
			if li.SaleVariantIndex != nil {
				if err := products.ReleaseSaleVariantAt(ctx, li.ProductID, *li.SaleVariantIndex, li.Quantity); err != nil {
					return err
				}
			}
		}
		for _, code := range current.CouponCodes {
			if err := couponRepo.ReleaseUsage(ctx, code); err != nil {
				return err
			}
		}
		expired = true
		return nil
	})
	return expired, err
}
