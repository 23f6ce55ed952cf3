package cron

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/catalog"
	"github.com/angelmondragon/storefront-checkout/internal/checkout"
	"github.com/angelmondragon/storefront-checkout/internal/coupons"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

var jobNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func openJobDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:cron_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func newUnpaidJob(t *testing.T, conn *gorm.DB) Job {
	t.Helper()
	job, err := NewUnpaidOrderJob(UnpaidOrderJobParams{
		Logger:      logger.Nop(),
		DB:          db.Wrap(conn),
		Orders:      checkout.NewRepository(conn),
		CatalogRepo: catalog.NewRepository(conn),
		CouponRepo:  coupons.NewRepository(conn),
		TTL:         48 * time.Hour,
		Now:         func() time.Time { return jobNow },
	})
	require.NoError(t, err)
	return job
}

func seedOrder(t *testing.T, conn *gorm.DB, product *models.Product, status enums.OrderStatus, age time.Duration, codes ...string) *models.Order {
	t.Helper()
	variant := 0
	order := &models.Order{
		Status:         status.String(),
		PaymentMethod:  enums.PaymentMethodCard.String(),
		DeliveryType:   enums.DeliveryTypePickup.String(),
		DeliveryMethod: enums.DeliveryMethodPickup.String(),
		Subtotal:       1000,
		Total:          1000,
		Currency:       "NGN",
		CouponCodes:    codes,
		CreatedAt:      jobNow.Add(-age),
		LineItems: []models.OrderLineItem{{
			ProductID:          product.ID,
			ProductName:        product.Name,
			SelectedAttributes: types.SelectedAttributes{{Name: "Color", Value: "Green"}},
			Quantity:           2,
			UnitPrice:          500,
			TotalPrice:         1000,
			SaleVariantIndex:   &variant,
		}},
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func TestUnpaidOrderJobExpiresStaleOrdersAndReleasesHolds(t *testing.T) {
	conn := openJobDB(t)
	ctx := context.Background()

	greenStock := 1
	product := &models.Product{
		Name:       "Ankara Tote",
		CategoryID: "bags",
		BasePrice:  1000,
		Currency:   "NGN",
		Stock:      5,
		IsActive:   true,
		Attributes: []models.AttributeOption{{Name: "Color", Value: "Green", Stock: &greenStock}},
		Sale: &models.ProductSale{
			Type:         "normal",
			DiscountType: "percent",
			Discount:     10,
			Variants: []models.SaleVariant{
				{AttributeName: "Color", AttributeValue: "Green", DiscountType: "percent", Discount: 50, MaxBuys: 5, BoughtCount: 3},
			},
		},
	}
	require.NoError(t, conn.Create(product).Error)
	require.NoError(t, conn.Create(&models.Coupon{
		Code: "SAVE10", DiscountType: "percent", Discount: 10, AppliesTo: "all",
		IsActive: true, UsageLimit: 5, UsedCount: 1,
	}).Error)

	stale := seedOrder(t, conn, product, enums.OrderStatusPendingPayment, 72*time.Hour, "SAVE10")
	fresh := seedOrder(t, conn, product, enums.OrderStatusPendingPayment, time.Hour)
	paid := seedOrder(t, conn, product, enums.OrderStatusConfirmed, 72*time.Hour)

	job := newUnpaidJob(t, conn)
	require.NoError(t, job.Run(ctx))

	statusOf := func(id uuid.UUID) string {
		var o models.Order
		require.NoError(t, conn.First(&o, "id = ?", id).Error)
		return o.Status
	}
	assert.Equal(t, enums.OrderStatusExpired.String(), statusOf(stale.ID))
	assert.Equal(t, enums.OrderStatusPendingPayment.String(), statusOf(fresh.ID))
	assert.Equal(t, enums.OrderStatusConfirmed.String(), statusOf(paid.ID))

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 7, reloaded.Stock)

	var option models.AttributeOption
	require.NoError(t, conn.First(&option, "product_id = ? AND value = ?", product.ID, "Green").Error)
	require.NotNil(t, option.Stock)
	assert.Equal(t, 3, *option.Stock)

	var variant models.SaleVariant
	require.NoError(t, conn.First(&variant, "attribute_value = ?", "Green").Error)
	assert.Equal(t, 1, variant.BoughtCount)

	var coupon models.Coupon
	require.NoError(t, conn.First(&coupon, "code = ?", "SAVE10").Error)
	assert.Equal(t, 0, coupon.UsedCount)

	// A second pass finds nothing left to release.
	require.NoError(t, job.Run(ctx))
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 7, reloaded.Stock)
}

func TestUnpaidOrderJobRequiresDependencies(t *testing.T) {
	_, err := NewUnpaidOrderJob(UnpaidOrderJobParams{Logger: logger.Nop()})
	require.Error(t, err)
}

func TestRestockIgnoresUntrackedOptions(t *testing.T) {
	conn := openJobDB(t)
	ctx := context.Background()
	product := &models.Product{
		Name: "Plain Tee", CategoryID: "apparel", BasePrice: 500, Currency: "NGN", Stock: 0, IsActive: true,
		Attributes: []models.AttributeOption{{Name: "Size", Value: "M"}},
	}
	require.NoError(t, conn.Create(product).Error)

	repo := catalog.NewRepository(conn)
	require.NoError(t, repo.Restock(ctx, product.ID, []pricing.Attribute{{Name: "Size", Value: "M"}}, 4))

	var reloaded models.Product
	require.NoError(t, conn.Preload("Attributes").First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, 4, reloaded.Stock)
	require.Len(t, reloaded.Attributes, 1)
	assert.Nil(t, reloaded.Attributes[0].Stock)
}
