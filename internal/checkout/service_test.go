package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-checkout/internal/catalog"
	"github.com/angelmondragon/storefront-checkout/internal/coupons"
	"github.com/angelmondragon/storefront-checkout/internal/shipping"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakePayments struct {
	calls []PaymentRequest
	err   error
}

func (f *fakePayments) Initiate(_ context.Context, req PaymentRequest) (*types.PaymentInitiation, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &types.PaymentInitiation{
		PaymentURL:    "https://pay.test/" + req.OrderID.String(),
		Reference:     fmt.Sprintf("REF-%d", len(f.calls)),
		TransactionID: req.OrderID.String(),
		AccessCode:    "code",
	}, nil
}

type harness struct {
	conn     *gorm.DB
	svc      Service
	payments *fakePayments
	orders   *Repository
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dsn := fmt.Sprintf("file:checkout_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clock := func() time.Time { return fixedNow }
	engine := pricing.NewEngine(pricing.WithClock(clock))

	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalogRepo, engine, "NGN")
	require.NoError(t, err)

	couponRepo := coupons.NewRepository(conn)
	couponSvc, err := coupons.NewService(couponRepo, nil, nil, coupons.WithClock(clock))
	require.NoError(t, err)

	shippingSvc, err := shipping.NewService(shipping.NewRepository(conn), nil, shipping.Config{DefaultCountry: "Nigeria", Currency: "NGN"}, nil, nil)
	require.NoError(t, err)

	payments := &fakePayments{}
	orders := NewRepository(conn)
	svc, err := NewService(Deps{
		Tx:          db.Wrap(conn),
		Catalog:     catalogSvc,
		CatalogRepo: catalogRepo,
		Coupons:     couponSvc,
		CouponRepo:  couponRepo,
		Shipping:    shippingSvc,
		Orders:      orders,
		Payments:    payments,
		Engine:      engine,
		Currency:    "NGN",
		Tolerance:   0.01,
		Now:         clock,
	})
	require.NoError(t, err)

	require.NoError(t, conn.Create(&models.ShippingRate{
		CountryName: "Nigeria", StateCode: "LA", StateName: "Lagos",
		BaseCost: 2000, PerItemCost: 500, FlatRate: 3500, EstimatedDays: 2, Currency: "NGN",
	}).Error)

	return &harness{conn: conn, svc: svc, payments: payments, orders: orders}
}

func (h *harness) product(t *testing.T, stock int, sale *models.ProductSale) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:       "Ankara Tote",
		CategoryID: "bags",
		BasePrice:  1000,
		Currency:   "NGN",
		Stock:      stock,
		IsActive:   true,
		Attributes: []models.AttributeOption{
			{Name: "Color", Value: "Red", Position: 0},
			{Name: "Color", Value: "Blue", Position: 1},
		},
		Sale: sale,
	}
	require.NoError(t, h.conn.Create(p).Error)
	return p
}

func line(p *models.Product, key string, qty int, unit float64, attrs ...pricing.Attribute) types.CheckoutItem {
	return types.CheckoutItem{
		ItemKey:            key,
		Product:            p.ID.String(),
		Qty:                qty,
		SelectedAttributes: attrs,
		UnitPrice:          unit,
		TotalPrice:         unit * float64(qty),
	}
}

func pickupRequest(items ...types.CheckoutItem) types.CheckoutRequest {
	var subtotal float64
	for _, it := range items {
		subtotal += it.TotalPrice
	}
	return types.CheckoutRequest{
		Items:         items,
		PaymentMethod: enums.PaymentMethodCard,
		Subtotal:      subtotal,
		Total:         subtotal,
		DeliveryType:  enums.DeliveryTypePickup,
	}
}

var lagosAddress = &types.ShippingAddress{
	Destination: types.Destination{CountryName: "Nigeria", StateName: "Lagos", StateCode: "LA", LGAName: "Ikeja"},
	FullName:    "Ada Obi",
	Phone:       "+2348000000000",
	Line1:       "1 Allen Avenue",
}

func TestSubmitReducesQuantityThenSucceeds(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, 3, nil)
	ctx := context.Background()

	res, err := h.svc.Submit(ctx, nil, pickupRequest(line(p, "k1", 5, 1000)))
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeNeedsCorrection, res.Outcome)
	require.NotNil(t, res.Correction)
	assert.True(t, res.Correction.NeedsUpdate)
	require.Len(t, res.Correction.Errors.Items, 1)
	issue := res.Correction.Errors.Items[0]
	assert.Equal(t, enums.ProductIssueTypeQuantityReduced, issue.Type)
	require.NotNil(t, issue.AvailableStock)
	assert.Equal(t, 3, *issue.AvailableStock)
	assert.InDelta(t, 3000, res.Correction.Summary.NewSubtotal, 1e-9)
	assert.Equal(t, 1, res.Correction.Summary.ItemsRemaining)
	assert.Empty(t, h.payments.calls)

	res, err = h.svc.Submit(ctx, nil, pickupRequest(line(p, "k1", 3, 1000)))
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeSuccess, res.Outcome)
	require.NotNil(t, res.Success.Payment)
	assert.Equal(t, 3, res.Success.Summary.ItemCount)
	assert.InDelta(t, 3000, res.Success.Summary.Total, 1e-9)

	orderID := uuid.MustParse(res.Success.OrderID)
	order, err := h.orders.FindOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment.String(), order.Status)
	assert.Equal(t, "REF-1", order.PaymentReference)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, 3, order.LineItems[0].Quantity)

	var stored models.Product
	require.NoError(t, h.conn.First(&stored, "id = ?", p.ID).Error)
	assert.Zero(t, stored.Stock)
}

func TestSubmitBlocksInconsistentTotals(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, 10, nil)

	req := pickupRequest(line(p, "k1", 2, 1000))
	req.Total = 1500

	_, err := h.svc.Submit(context.Background(), nil, req)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIntegrity))
	assert.Empty(t, h.payments.calls)
}

func TestSubmitPriceChangeCarriesSnapshotAndResubmitSucceeds(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, 10, nil)
	ctx := context.Background()

	res, err := h.svc.Submit(ctx, nil, pickupRequest(line(p, "k1", 1, 900)))
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeNeedsCorrection, res.Outcome)
	issue := res.Correction.Errors.Items[0]
	assert.Equal(t, enums.ProductIssueTypePriceChanged, issue.Type)
	assert.Equal(t, enums.IssueSeverityInfo, issue.Severity)
	require.NotNil(t, issue.Product)
	require.NotNil(t, issue.NewPrice)

	corrected := line(p, "k1", 1, *issue.NewPrice)
	res, err = h.svc.Submit(ctx, nil, pickupRequest(corrected))
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutOutcomeSuccess, res.Outcome)
}

func TestSubmitRecomputesExpressSurcharge(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, 10, nil)
	ctx := context.Background()

	req := pickupRequest(line(p, "k1", 2, 1000))
	req.DeliveryType = enums.DeliveryTypeShipping
	req.DeliveryMethod = enums.DeliveryMethodExpress
	req.ShippingAddress = lagosAddress
	req.ShippingCost = 3500
	req.Total = req.Subtotal + req.ShippingCost

	res, err := h.svc.Submit(ctx, nil, req)
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeNeedsCorrection, res.Outcome)
	require.NotNil(t, res.Correction.Errors.CartTotal)
	assert.Empty(t, res.Correction.Errors.Items)
	assert.InDelta(t, 5250, res.Correction.Summary.ShippingCost, 1e-9)
	assert.InDelta(t, 7250, res.Correction.Errors.CartTotal.Expected, 1e-9)

	req.AcceptChanges = true
	res, err = h.svc.Submit(ctx, nil, req)
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeSuccess, res.Outcome)
	assert.InDelta(t, 5250, res.Success.Summary.ShippingCost, 1e-9)
	assert.InDelta(t, 7250, res.Success.Summary.Total, 1e-9)
}

func TestSubmitAuthenticatedShippingUsesPerItemRate(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, 10, nil)
	user := uuid.New()

	req := pickupRequest(line(p, "k1", 3, 1000))
	req.DeliveryType = enums.DeliveryTypeShipping
	req.ShippingAddress = lagosAddress
	req.ShippingCost = 3000
	req.Total = req.Subtotal + req.ShippingCost

	res, err := h.svc.Submit(context.Background(), &user, req)
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeSuccess, res.Outcome)

	order, err := h.orders.FindOrder(context.Background(), uuid.MustParse(res.Success.OrderID))
	require.NoError(t, err)
	require.NotNil(t, order.UserID)
	assert.Equal(t, user, *order.UserID)
	require.NotNil(t, order.ShippingAddress)
	assert.Equal(t, "LA", order.ShippingAddress.StateCode)
}

func TestSubmitAppliesCouponAndRecordsSaleCapacity(t *testing.T) {
	h := newHarness(t)
	sale := &models.ProductSale{
		Type:         enums.SaleTypeNormal.String(),
		DiscountType: enums.SaleDiscountTypePercent.String(),
		Variants: []models.SaleVariant{
			{AttributeName: "Color", AttributeValue: "Red", DiscountType: "percent", Discount: 20, MaxBuys: 10},
		},
	}
	p := h.product(t, 10, sale)
	require.NoError(t, h.conn.Create(&models.Coupon{
		Code: "SAVE10", DiscountType: "percentage", Discount: 10, AppliesTo: "all", IsActive: true, UsageLimit: 5,
	}).Error)

	item := line(p, "k1", 2, 800, pricing.Attribute{Name: "Color", Value: "Red"})
	item.Sale = true
	req := pickupRequest(item)
	req.CouponCodes = []string{"save10"}
	req.TotalDiscount = 160
	req.Total = req.Subtotal - req.TotalDiscount

	res, err := h.svc.Submit(context.Background(), nil, req)
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeSuccess, res.Outcome)
	assert.InDelta(t, 1440, res.Success.Summary.Total, 1e-9)

	var variant models.SaleVariant
	require.NoError(t, h.conn.First(&variant, "attribute_value = ?", "Red").Error)
	assert.Equal(t, 2, variant.BoughtCount)

	var c models.Coupon
	require.NoError(t, h.conn.First(&c, "code = ?", "SAVE10").Error)
	assert.Equal(t, 1, c.UsedCount)
}

func TestSubmitOptionStockReturnsCorrection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	red := 2
	p := &models.Product{
		Name: "Ankara Tote", CategoryID: "bags", BasePrice: 1000, Currency: "NGN", Stock: 100, IsActive: true,
		Attributes: []models.AttributeOption{
			{Name: "Color", Value: "Red", Stock: &red, Position: 0},
			{Name: "Color", Value: "Blue", Position: 1},
		},
	}
	require.NoError(t, h.conn.Create(p).Error)
	attr := pricing.Attribute{Name: "Color", Value: "Red"}

	res, err := h.svc.Submit(ctx, nil, pickupRequest(line(p, "k1", 5, 1000, attr)))
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeNeedsCorrection, res.Outcome)
	require.Len(t, res.Correction.Errors.Items, 1)
	issue := res.Correction.Errors.Items[0]
	assert.Equal(t, enums.ProductIssueTypeQuantityReduced, issue.Type)
	require.NotNil(t, issue.AvailableStock)
	assert.Equal(t, 2, *issue.AvailableStock)
	assert.Empty(t, h.payments.calls)

	res, err = h.svc.Submit(ctx, nil, pickupRequest(line(p, "k1", 2, 1000, attr)))
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeSuccess, res.Outcome)

	var option models.AttributeOption
	require.NoError(t, h.conn.First(&option, "product_id = ? AND value = ?", p.ID, "Red").Error)
	require.NotNil(t, option.Stock)
	assert.Zero(t, *option.Stock)
}

func TestSubmitSaleCapacityReturnsCorrection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sale := &models.ProductSale{
		Type:         enums.SaleTypeNormal.String(),
		DiscountType: enums.SaleDiscountTypePercent.String(),
		Variants: []models.SaleVariant{
			{AttributeName: "Color", AttributeValue: "Red", DiscountType: "percent", Discount: 50, MaxBuys: 10, BoughtCount: 8},
		},
	}
	p := h.product(t, 50, sale)
	attr := pricing.Attribute{Name: "Color", Value: "Red"}

	item := line(p, "k1", 5, 500, attr)
	item.Sale = true
	res, err := h.svc.Submit(ctx, nil, pickupRequest(item))
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeNeedsCorrection, res.Outcome)
	require.Len(t, res.Correction.Errors.Items, 1)
	issue := res.Correction.Errors.Items[0]
	assert.Equal(t, enums.ProductIssueTypeQuantityReduced, issue.Type)
	require.NotNil(t, issue.AvailableStock)
	assert.Equal(t, 2, *issue.AvailableStock)

	item = line(p, "k1", 2, 500, attr)
	item.Sale = true
	res, err = h.svc.Submit(ctx, nil, pickupRequest(item))
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeSuccess, res.Outcome)

	var variant models.SaleVariant
	require.NoError(t, h.conn.First(&variant, "attribute_value = ?", "Red").Error)
	assert.Equal(t, 10, variant.BoughtCount)
	assert.LessOrEqual(t, variant.BoughtCount, variant.MaxBuys)
}

func TestSubmitCashOnDeliverySkipsPayment(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, 10, nil)

	req := pickupRequest(line(p, "k1", 1, 1000))
	req.PaymentMethod = enums.PaymentMethodCashOnDelivery

	res, err := h.svc.Submit(context.Background(), nil, req)
	require.NoError(t, err)
	require.Equal(t, enums.CheckoutOutcomeSuccess, res.Outcome)
	assert.Nil(t, res.Success.Payment)
	assert.Empty(t, h.payments.calls)

	order, err := h.orders.FindOrder(context.Background(), uuid.MustParse(res.Success.OrderID))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed.String(), order.Status)
}

func TestSubmitPaymentFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.payments.err = errors.New("gateway down")
	p := h.product(t, 10, nil)

	_, err := h.svc.Submit(context.Background(), nil, pickupRequest(line(p, "k1", 2, 1000)))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var count int64
	require.NoError(t, h.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	var stored models.Product
	require.NoError(t, h.conn.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, 10, stored.Stock)
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, 10, nil)
	ctx := context.Background()

	_, err := h.svc.Submit(ctx, nil, types.CheckoutRequest{PaymentMethod: enums.PaymentMethodCard, DeliveryType: enums.DeliveryTypePickup})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req := pickupRequest(line(p, "k1", 1, 1000))
	req.DeliveryType = enums.DeliveryTypeShipping
	_, err = h.svc.Submit(ctx, nil, req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	dup := pickupRequest(line(p, "k1", 1, 1000), line(p, "k1", 1, 1000))
	_, err = h.svc.Submit(ctx, nil, dup)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestHostedPageInitiator(t *testing.T) {
	initiator, err := NewHostedPageInitiator("https://pay.example.com/checkout")
	require.NoError(t, err)

	orderID := uuid.New()
	res, err := initiator.Initiate(context.Background(), PaymentRequest{OrderID: orderID, Amount: 50000, Currency: "NGN", Method: enums.PaymentMethodCard})
	require.NoError(t, err)
	assert.Contains(t, res.PaymentURL, "amount=50%2C000.00")
	assert.Contains(t, res.PaymentURL, "reference="+res.Reference)
	assert.Equal(t, orderID.String(), res.TransactionID)
	assert.Len(t, res.AccessCode, 16)

	_, err = NewHostedPageInitiator("not a url")
	assert.Error(t, err)
}
