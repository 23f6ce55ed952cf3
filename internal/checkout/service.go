package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-checkout/internal/catalog"
	"github.com/angelmondragon/storefront-checkout/internal/coupons"
	"github.com/angelmondragon/storefront-checkout/internal/shipping"
	pkgcheckout "github.com/angelmondragon/storefront-checkout/pkg/checkout"
	"github.com/angelmondragon/storefront-checkout/pkg/coupon"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type snapshotLoader interface {
	Snapshots(ctx context.Context, productIDs []string) (map[string]*types.ProductSnapshot, error)
}

type couponResolver interface {
	Resolve(ctx context.Context, codes []string, in coupon.Input) (coupon.Stacked, error)
}

type shippingCoster interface {
	CostFor(ctx context.Context, dest types.Destination, units int, method enums.DeliveryMethod, source enums.QuoteSource) (shipping.Cost, error)
}

// Result is the non-error outcome of a submission. Exactly one of Success and
// Correction is set. Blocked submissions surface as CHECKOUT_INTEGRITY errors.
type Result struct {
	Outcome    enums.CheckoutOutcome
	Success    *types.CheckoutSuccess
	Correction *types.CheckoutCorrection
}

// Service reconciles client checkout snapshots against the catalog.
type Service interface {
	Submit(ctx context.Context, userID *uuid.UUID, req types.CheckoutRequest) (*Result, error)
}

// Deps groups the collaborators of the checkout service.
type Deps struct {
	Tx          txRunner
	Catalog     snapshotLoader
	CatalogRepo *catalog.Repository
	Coupons     couponResolver
	CouponRepo  *coupons.Repository
	Shipping    shippingCoster
	Orders      *Repository
	Payments    PaymentInitiator
	Engine      *pricing.Engine
	Metrics     *metrics.CheckoutMetrics
	Logger      *logger.Logger
	Currency    string
	Tolerance   float64
	Now         func() time.Time
}

type service struct {
	Deps
}

// NewService builds the checkout service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog service required")
	case deps.CatalogRepo == nil:
		return nil, fmt.Errorf("catalog repository required")
	case deps.Coupons == nil:
		return nil, fmt.Errorf("coupon service required")
	case deps.CouponRepo == nil:
		return nil, fmt.Errorf("coupon repository required")
	case deps.Shipping == nil:
		return nil, fmt.Errorf("shipping service required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Payments == nil:
		return nil, fmt.Errorf("payment initiator required")
	}
	if deps.Engine == nil {
		deps.Engine = pricing.NewEngine()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Currency == "" {
		deps.Currency = "NGN"
	}
	return &service{Deps: deps}, nil
}

// reconciliation is the server's recomputation of a submitted cart.
type reconciliation struct {
	lines    []pkgcheckout.LineCheck
	issues   []types.ProductIssue
	coupons  coupon.Stacked
	shipping shipping.Cost
	totals   pkgcheckout.Totals
	method   enums.DeliveryMethod
	products map[string]*types.ProductSnapshot
}

func (s *service) Submit(ctx context.Context, userID *uuid.UUID, req types.CheckoutRequest) (*Result, error) {
	started := s.Now()

	method, err := validateRequest(req)
	if err != nil {
		return nil, err
	}

	if err := pkgcheckout.VerifyArithmetic(req, s.Tolerance); err != nil {
		s.Metrics.ObserveOutcome(enums.CheckoutOutcomeBlocked.String(), s.Now().Sub(started))
		s.Logger.Warn(ctx, "checkout blocked: client totals inconsistent")
		return nil, err
	}

	rec, err := s.reconcile(ctx, userID, req, method)
	if err != nil {
		return nil, err
	}
	for _, issue := range rec.issues {
		s.Metrics.IncIssue(issue.Type.String())
	}

	if correction := s.correction(req, rec); correction != nil {
		s.Metrics.ObserveOutcome(enums.CheckoutOutcomeNeedsCorrection.String(), s.Now().Sub(started))
		return &Result{Outcome: enums.CheckoutOutcomeNeedsCorrection, Correction: correction}, nil
	}

	success, err := s.placeOrder(ctx, userID, req, rec)
	if err != nil {
		return nil, err
	}
	s.Metrics.ObserveOutcome(enums.CheckoutOutcomeSuccess.String(), s.Now().Sub(started))
	return &Result{Outcome: enums.CheckoutOutcomeSuccess, Success: success}, nil
}

func validateRequest(req types.CheckoutRequest) (enums.DeliveryMethod, error) {
	if len(req.Items) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	if !req.PaymentMethod.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", req.PaymentMethod))
	}
	if !req.DeliveryType.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery type %q", req.DeliveryType))
	}
	keys := map[string]struct{}{}
	for _, item := range req.Items {
		if _, dup := keys[item.ItemKey]; dup {
			return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate item key %q", item.ItemKey))
		}
		keys[item.ItemKey] = struct{}{}
	}
	if req.DeliveryType == enums.DeliveryTypePickup {
		return enums.DeliveryMethodPickup, nil
	}
	if req.ShippingAddress == nil || req.ShippingAddress.IsZero() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required for delivery")
	}
	method := req.DeliveryMethod
	if method == "" {
		method = enums.DeliveryMethodNormal
	}
	if !method.IsValid() || method == enums.DeliveryMethodPickup {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery method %q", req.DeliveryMethod))
	}
	return method, nil
}

func (s *service) reconcile(ctx context.Context, userID *uuid.UUID, req types.CheckoutRequest, method enums.DeliveryMethod) (*reconciliation, error) {
	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.Product)
	}
	products, err := s.Catalog.Snapshots(ctx, ids)
	if err != nil {
		return nil, err
	}

	rec := &reconciliation{products: products, method: method}
	rec.lines = pkgcheckout.DetectIssues(req.Items, products, s.Engine, s.Tolerance)
	rec.issues = pkgcheckout.Issues(rec.lines)

	itemsOnly := pkgcheckout.ComputeTotals(rec.lines, 0, 0)

	in := coupon.Input{OrderTotal: itemsOnly.Subtotal}
	for i, line := range rec.lines {
		if line.Removed {
			continue
		}
		in.ProductIDs = append(in.ProductIDs, req.Items[i].Product)
		if p := products[req.Items[i].Product]; p != nil && p.CategoryID != "" {
			in.CategoryIDs = append(in.CategoryIDs, p.CategoryID)
		}
	}
	rec.coupons, err = s.Coupons.Resolve(ctx, req.CouponCodes, in)
	if err != nil {
		return nil, err
	}

	if method != enums.DeliveryMethodPickup && itemsOnly.ItemCount > 0 {
		source := enums.QuoteSourceGuest
		if userID != nil {
			source = enums.QuoteSourceAuthenticated
		}
		rec.shipping, err = s.Shipping.CostFor(ctx, req.ShippingAddress.Destination, itemsOnly.ItemCount, method, source)
		if err != nil {
			return nil, err
		}
	}

	rec.totals = pkgcheckout.ComputeTotals(rec.lines, rec.coupons.Total, rec.shipping.Amount)
	return rec, nil
}

// correction returns the payload for a snapshot the server will not accept
// as-is, or nil when the order can be placed.
func (s *service) correction(req types.CheckoutRequest, rec *reconciliation) *types.CheckoutCorrection {
	summary := types.CorrectionSummary{
		ItemsRemaining: rec.totals.ItemsRemaining,
		NewSubtotal:    pricing.RoundMoney(rec.totals.Subtotal),
		NewTotal:       pricing.RoundMoney(rec.totals.Total),
		ShippingCost:   pricing.RoundMoney(rec.totals.ShippingCost),
		DeliveryType:   req.DeliveryType,
		CouponDiscount: pricing.RoundMoney(rec.totals.CouponDiscount),
	}

	if len(rec.issues) > 0 {
		return &types.CheckoutCorrection{
			NeedsUpdate: true,
			Errors:      &types.CheckoutErrors{Items: rec.issues},
			Summary:     summary,
		}
	}
	if req.AcceptChanges {
		return nil
	}

	shippingDrift := !pricing.WithinTolerance(req.ShippingCost, rec.totals.ShippingCost, s.Tolerance)
	couponDrift := !pricing.WithinTolerance(req.TotalDiscount, rec.totals.CouponDiscount, s.Tolerance)
	if !shippingDrift && !couponDrift {
		return nil
	}

	var reasons []string
	if shippingDrift {
		reasons = append(reasons, fmt.Sprintf("shipping is now %s", pricing.FormatAmount(rec.totals.ShippingCost)))
	}
	if couponDrift {
		reasons = append(reasons, fmt.Sprintf("coupon discount is now %s", pricing.FormatAmount(rec.totals.CouponDiscount)))
	}
	return &types.CheckoutCorrection{
		NeedsUpdate: true,
		Errors: &types.CheckoutErrors{
			CartTotal: &types.CartTotalIssue{
				Message:  "Your total changed: " + strings.Join(reasons, ", "),
				Severity: enums.IssueSeverityInfo,
				Expected: pricing.RoundMoney(rec.totals.Total),
				Received: req.Total,
			},
		},
		Summary: summary,
	}
}

func (s *service) placeOrder(ctx context.Context, userID *uuid.UUID, req types.CheckoutRequest, rec *reconciliation) (*types.CheckoutSuccess, error) {
	order := &models.Order{
		ID:             uuid.New(),
		UserID:         userID,
		Status:         enums.OrderStatusPendingPayment.String(),
		PaymentMethod:  req.PaymentMethod.String(),
		DeliveryType:   req.DeliveryType.String(),
		DeliveryMethod: rec.method.String(),
		Subtotal:       pricing.RoundMoney(rec.totals.Subtotal),
		CouponDiscount: pricing.RoundMoney(rec.totals.CouponDiscount),
		ShippingCost:   pricing.RoundMoney(rec.totals.ShippingCost),
		Total:          pricing.RoundMoney(rec.totals.Total),
		Currency:       s.Currency,
		CouponCodes:    rec.coupons.Codes(),
		Notes:          strings.TrimSpace(req.Notes),
	}
	if req.PaymentMethod == enums.PaymentMethodCashOnDelivery {
		order.Status = enums.OrderStatusConfirmed.String()
	}
	if req.DeliveryType == enums.DeliveryTypeShipping {
		addr := *req.ShippingAddress
		order.ShippingAddress = &addr
	}
	if p := rec.products[req.Items[0].Product]; p != nil && p.Currency != "" {
		order.Currency = p.Currency
	}

	for i, line := range rec.lines {
		item := req.Items[i]
		productID, err := uuid.Parse(item.Product)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product id %q", item.Product))
		}
		li := models.OrderLineItem{
			ProductID:          productID,
			ProductName:        rec.products[item.Product].Name,
			SelectedAttributes: item.SelectedAttributes,
			Quantity:           line.Quantity,
			UnitPrice:          pricing.RoundMoney(line.Price.UnitPrice),
			TotalPrice:         pricing.RoundMoney(line.Price.TotalPrice),
			SaleDiscount:       pricing.RoundMoney(line.Price.SaleDiscount),
			TierDiscount:       pricing.RoundMoney(line.Price.TierDiscount),
		}
		if idx := line.Price.Sale.VariantIndex; line.Price.Sale.HasActiveSale && idx >= 0 {
			li.SaleVariantIndex = &idx
		}
		order.LineItems = append(order.LineItems, li)
	}

	ctx = s.Logger.WithOrderID(ctx, order.ID.String())

	var payment *types.PaymentInitiation
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		orders := s.Orders.WithTx(tx)
		products := s.CatalogRepo.WithTx(tx)
		couponRepo := s.CouponRepo.WithTx(tx)

		if err := orders.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for _, li := range order.LineItems {
			if err := products.DecrementStock(ctx, li.ProductID, li.Quantity); err != nil {
				return err
			}
			if err := products.DecrementOptionStock(ctx, li.ProductID, li.SelectedAttributes, li.Quantity); err != nil {
				return err
			}
			if li.SaleVariantIndex != nil {
				if err := products.IncrementSaleVariantAt(ctx, li.ProductID, *li.SaleVariantIndex, li.Quantity); err != nil {
					if pkgerrors.As(err) != nil {
						return err
					}
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale purchase")
				}
			}
		}
		for _, code := range order.CouponCodes {
			if err := couponRepo.IncrementUsage(ctx, code); err != nil {
				return err
			}
		}

		// the payment link is created before commit so a failed initiation leaves no order behind
		if req.PaymentMethod == enums.PaymentMethodCashOnDelivery {
			return nil
		}
		initiated, err := s.Payments.Initiate(ctx, PaymentRequest{
			OrderID:  order.ID,
			Amount:   order.Total,
			Currency: order.Currency,
			Method:   req.PaymentMethod,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initiate payment")
		}
		payment = initiated
		order.PaymentReference = initiated.Reference
		return orders.SetPaymentReference(ctx, order.ID, initiated.Reference)
	})
	if err != nil {
		s.Logger.Error(ctx, "checkout order placement failed", err)
		return nil, err
	}

	s.Logger.Info(ctx, "checkout order placed")
	return &types.CheckoutSuccess{
		OrderID: order.ID.String(),
		Payment: payment,
		Summary: types.CheckoutSummary{
			Total:          order.Total,
			Subtotal:       order.Subtotal,
			CouponDiscount: order.CouponDiscount,
			ShippingCost:   order.ShippingCost,
			ItemCount:      rec.totals.ItemCount,
			DeliveryType:   req.DeliveryType,
		},
	}, nil
}
