package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/pkg/checkout"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

var (
	ErrSubmitInProgress      = errors.New("storefront: checkout already submitting")
	ErrCorrectionPending     = errors.New("storefront: resolve the flagged items before resubmitting")
	ErrCheckoutBlocked       = errors.New("storefront: checkout blocked, refresh the cart")
	ErrQuoteStale            = errors.New("storefront: shipping quote does not match the current cart")
	ErrAlternativeRequired   = errors.New("storefront: choose an available attribute value")
	ErrAlternativeNotOffered = errors.New("storefront: attribute value is not one of the offered alternatives")
	ErrNoIssue               = errors.New("storefront: item has no unresolved issue")
	ErrEmptyCart             = errors.New("storefront: cart is empty")
)

// Outcome is one of Success, NeedsCorrection or Blocked.
type Outcome interface {
	Kind() enums.CheckoutOutcome
}

// Success means the order exists. Payment is nil for cash on delivery.
type Success struct {
	OrderID string
	Payment *types.PaymentInitiation
	Summary types.CheckoutSummary
}

func (Success) Kind() enums.CheckoutOutcome { return enums.CheckoutOutcomeSuccess }

// NeedsCorrection carries the server's per-item issues. Blocking is set when
// any issue needs a cart change before resubmitting.
type NeedsCorrection struct {
	Issues    []types.ProductIssue
	CartTotal *types.CartTotalIssue
	Summary   types.CorrectionSummary
	Blocking  bool
}

func (NeedsCorrection) Kind() enums.CheckoutOutcome { return enums.CheckoutOutcomeNeedsCorrection }

// Blocked means the server rejected the request as inconsistent. The cart must
// be refreshed before another attempt.
type Blocked struct {
	Err error
}

func (Blocked) Kind() enums.CheckoutOutcome { return enums.CheckoutOutcomeBlocked }

// CheckoutAPI is the submission endpoint.
type CheckoutAPI interface {
	SubmitCheckout(ctx context.Context, req types.CheckoutRequest, idempotencyKey string) (*CheckoutReply, error)
}

type ReconcilerOption func(*CheckoutReconciler)

// WithIdempotencyKeys overrides key generation, mainly for tests.
func WithIdempotencyKeys(fn func() string) ReconcilerOption {
	return func(r *CheckoutReconciler) {
		if fn != nil {
			r.newKey = fn
		}
	}
}

func WithReconcilerLogger(l *logger.Logger) ReconcilerOption {
	return func(r *CheckoutReconciler) {
		if l != nil {
			r.logg = l
		}
	}
}

// CheckoutReconciler submits checkouts and walks the user through the
// server's corrections. Nothing is resubmitted automatically.
type CheckoutReconciler struct {
	mu         sync.Mutex
	api        CheckoutAPI
	cart       *Cart
	logg       *logger.Logger
	newKey     func() string
	phase      enums.CheckoutPhase
	correction *NeedsCorrection
	unresolved map[string][]types.ProductIssue
	blocked    error
	// attemptKey is reused until the server answers so a retried transport
	// failure cannot place a second order.
	attemptKey string
}

func NewCheckoutReconciler(api CheckoutAPI, cart *Cart, opts ...ReconcilerOption) *CheckoutReconciler {
	r := &CheckoutReconciler{
		api:        api,
		cart:       cart,
		logg:       logger.Nop(),
		newKey:     uuid.NewString,
		phase:      enums.CheckoutPhaseIdle,
		unresolved: map[string][]types.ProductIssue{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CheckoutReconciler) Phase() enums.CheckoutPhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// BlockedReason is the integrity error that blocked checkout, if any.
func (r *CheckoutReconciler) BlockedReason() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocked
}

// Correction is the last correction received, nil once dismissed or resolved.
func (r *CheckoutReconciler) Correction() *NeedsCorrection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.correction == nil {
		return nil
	}
	cp := *r.correction
	cp.Issues = append([]types.ProductIssue(nil), r.correction.Issues...)
	return &cp
}

// Unresolved lists blocking issues still waiting for ApplyCorrection.
func (r *CheckoutReconciler) Unresolved() []types.ProductIssue {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.ProductIssue
	for _, issue := range r.correction.issuesOrNil() {
		if _, open := r.unresolved[issue.ItemKey]; open && checkout.IsBlocking(issue) {
			out = append(out, issue)
		}
	}
	return out
}

func (c *NeedsCorrection) issuesOrNil() []types.ProductIssue {
	if c == nil {
		return nil
	}
	return c.Issues
}

// Submit sends req once. Transport failures return an error and leave the
// reconciler ready to retry with the same idempotency key.
func (r *CheckoutReconciler) Submit(ctx context.Context, req types.CheckoutRequest) (Outcome, error) {
	r.mu.Lock()
	switch {
	case r.phase == enums.CheckoutPhaseSubmitting:
		r.mu.Unlock()
		return nil, ErrSubmitInProgress
	case r.phase == enums.CheckoutPhaseBlocked:
		r.mu.Unlock()
		return nil, ErrCheckoutBlocked
	case len(r.unresolved) > 0:
		r.mu.Unlock()
		return nil, ErrCorrectionPending
	}
	if r.attemptKey == "" {
		r.attemptKey = r.newKey()
	}
	key := r.attemptKey
	r.phase = enums.CheckoutPhaseSubmitting
	r.mu.Unlock()

	ctx = r.logg.WithIdempotencyKey(ctx, key)
	reply, err := r.api.SubmitCheckout(ctx, req, key)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			// The server answered, so the next attempt is a new request.
			r.attemptKey = ""
			if apiErr.IsIntegrity() {
				r.phase = enums.CheckoutPhaseBlocked
				r.blocked = err
				r.correction = nil
				r.logg.Warn(ctx, "checkout.blocked: "+apiErr.Message)
				return Blocked{Err: err}, nil
			}
		}
		r.phase = enums.CheckoutPhaseIdle
		return nil, err
	}
	r.attemptKey = ""

	switch {
	case reply.Success != nil:
		r.phase = enums.CheckoutPhaseSuccess
		r.correction = nil
		r.unresolved = map[string][]types.ProductIssue{}
		if r.cart != nil {
			if cerr := r.cart.Clear(ctx); cerr != nil {
				r.logg.Error(ctx, "checkout.cart_clear_failed", cerr)
			}
		}
		return Success{
			OrderID: reply.Success.OrderID,
			Payment: reply.Success.Payment,
			Summary: reply.Success.Summary,
		}, nil
	case reply.Correction != nil:
		return r.receiveCorrectionLocked(ctx, reply.Correction), nil
	}
	r.phase = enums.CheckoutPhaseIdle
	return nil, fmt.Errorf("storefront: empty checkout reply")
}

func (r *CheckoutReconciler) receiveCorrectionLocked(ctx context.Context, corr *types.CheckoutCorrection) NeedsCorrection {
	out := NeedsCorrection{Summary: corr.Summary}
	if corr.Errors != nil {
		out.Issues = append(out.Issues, corr.Errors.Items...)
		out.CartTotal = corr.Errors.CartTotal
	}

	r.unresolved = map[string][]types.ProductIssue{}
	for _, issue := range out.Issues {
		if checkout.IsBlocking(issue) {
			out.Blocking = true
			r.unresolved[issue.ItemKey] = append(r.unresolved[issue.ItemKey], issue)
			continue
		}
		// Price and sale notices only refresh the line's snapshot.
		if issue.Product != nil && r.cart != nil {
			if _, err := r.cart.RefreshProduct(ctx, *issue.Product); err != nil {
				r.logg.Error(ctx, "checkout.snapshot_refresh_failed", err)
			}
		}
	}

	r.correction = &out
	r.phase = enums.CheckoutPhaseNeedsCorrection
	if !out.Blocking {
		// Non-blocking notices leave the user free to resubmit.
		r.phase = enums.CheckoutPhaseIdle
	}
	return out
}

// ApplyCorrection performs the single cart mutation each issue on itemKey maps
// to: remove the line, clamp its quantity, or switch to alt. alt is required
// only for attributeUnavailable and must be one of the offered alternatives.
func (r *CheckoutReconciler) ApplyCorrection(ctx context.Context, itemKey string, alt *pricing.Attribute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	issues, ok := r.unresolved[itemKey]
	if !ok {
		return ErrNoIssue
	}
	if r.cart == nil {
		return errors.New("storefront: reconciler has no cart")
	}

	if mut := mutationFor(issues); mut.remove {
		if err := r.cart.Remove(ctx, itemKey); err != nil && !errors.Is(err, ErrItemNotFound) {
			return err
		}
	} else {
		if mut.attribute != nil {
			if alt == nil {
				return ErrAlternativeRequired
			}
			if alt.Name != mut.attribute.Name || !offers(mut.attribute, alt.Value) {
				return ErrAlternativeNotOffered
			}
			if err := r.cart.SelectAttribute(ctx, itemKey, alt.Name, alt.Value); err != nil {
				return err
			}
		}
		if mut.clampTo > 0 {
			if err := r.cart.SetQuantity(ctx, itemKey, mut.clampTo); err != nil {
				return err
			}
		}
	}

	delete(r.unresolved, itemKey)
	if len(r.unresolved) == 0 {
		r.correction = nil
		if r.phase == enums.CheckoutPhaseNeedsCorrection {
			r.phase = enums.CheckoutPhaseIdle
		}
	}
	return nil
}

type mutation struct {
	remove    bool
	clampTo   int
	attribute *types.AttributeOptions
}

func mutationFor(issues []types.ProductIssue) mutation {
	var m mutation
	for _, issue := range issues {
		switch issue.Type {
		case enums.ProductIssueTypeOutOfStock:
			return mutation{remove: true}
		case enums.ProductIssueTypeQuantityReduced:
			if issue.AvailableStock == nil || *issue.AvailableStock < 1 {
				return mutation{remove: true}
			}
			m.clampTo = *issue.AvailableStock
		case enums.ProductIssueTypeAttributeUnavailable:
			if len(issue.Alternatives) == 0 {
				return mutation{remove: true}
			}
			alt := issue.Alternatives[0]
			m.attribute = &alt
		}
	}
	return m
}

func offers(opts *types.AttributeOptions, value string) bool {
	for _, v := range opts.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Dismiss hides a non-blocking notice. Blocking corrections stay until applied.
func (r *CheckoutReconciler) Dismiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.unresolved) == 0 {
		r.correction = nil
	}
}

// Reset clears a blocked or finished checkout after the cart was refreshed.
func (r *CheckoutReconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == enums.CheckoutPhaseSubmitting {
		return
	}
	r.phase = enums.CheckoutPhaseIdle
	r.blocked = nil
	r.correction = nil
	r.unresolved = map[string][]types.ProductIssue{}
	r.attemptKey = ""
}

// CheckoutOptions are the user's non-cart choices.
type CheckoutOptions struct {
	DeliveryType   enums.DeliveryType
	DeliveryMethod enums.DeliveryMethod
	Address        *types.ShippingAddress
	PaymentMethod  enums.PaymentMethod
	Notes          string
	AcceptChanges  bool
}

// BuildCheckoutRequest assembles a request from the client stores. Shipping
// orders need a resolved quote for exactly the current cart and address.
func BuildCheckoutRequest(cart *Cart, shipping *ShippingNegotiator, slot *CouponSlot, opts CheckoutOptions) (types.CheckoutRequest, error) {
	lines := cart.Lines()
	if len(lines) == 0 {
		return types.CheckoutRequest{}, ErrEmptyCart
	}

	req := types.CheckoutRequest{
		PaymentMethod: opts.PaymentMethod,
		DeliveryType:  opts.DeliveryType,
		Notes:         opts.Notes,
		AcceptChanges: opts.AcceptChanges,
	}
	if req.DeliveryType == "" {
		req.DeliveryType = enums.DeliveryTypeShipping
	}

	subtotal := 0.0
	for _, line := range lines {
		p := line.Price
		unit := pricing.RoundMoney(p.UnitPrice)
		lineTotal := pricing.RoundMoney(unit * float64(line.Item.Quantity))
		subtotal += lineTotal
		req.Items = append(req.Items, types.CheckoutItem{
			ItemKey:            line.Item.Key,
			Product:            line.Item.Product.ID,
			Qty:                line.Item.Quantity,
			SelectedAttributes: line.Item.Selected,
			UnitPrice:          unit,
			TotalPrice:         lineTotal,
			Sale:               p.Sale.HasActiveSale,
			SaleVariantIndex:   p.Sale.VariantIndex,
			AppliedDiscount:    pricing.RoundMoney(p.AppliedDiscount),
			SaleDiscount:       pricing.RoundMoney(p.SaleDiscount),
			TierDiscount:       pricing.RoundMoney(p.TierDiscount),
			PricingTier:        p.PricingTier,
			DiscountAmount:     pricing.RoundMoney(p.AppliedDiscount),
		})
	}

	shippingCost := 0.0
	switch req.DeliveryType {
	case enums.DeliveryTypePickup:
		req.DeliveryMethod = enums.DeliveryMethodPickup
	default:
		if opts.Address == nil {
			return types.CheckoutRequest{}, errors.New("storefront: shipping address is required")
		}
		method := opts.DeliveryMethod
		if method == "" {
			method = enums.DeliveryMethodNormal
		}
		quote, ok := shipping.QuoteFor(ShippingInputFor(cart, opts.Address.Destination, method))
		if !ok {
			return types.CheckoutRequest{}, ErrQuoteStale
		}
		addr := *opts.Address
		req.ShippingAddress = &addr
		req.DeliveryMethod = method
		shippingCost = quote.Cost
		req.EstimatedShipping = types.EstimatedShipping{Cost: quote.Cost, Days: quote.EstimatedDays}
	}

	discount := 0.0
	if slot != nil {
		discount = slot.CouponDiscount(subtotal)
		req.CouponCodes = slot.Codes()
	}

	req.Subtotal = pricing.RoundMoney(subtotal)
	req.TotalDiscount = pricing.RoundMoney(discount)
	req.ShippingCost = pricing.RoundMoney(shippingCost)
	total := subtotal - discount + shippingCost
	if total < 0 {
		total = 0
	}
	req.Total = pricing.RoundMoney(total)
	return req, nil
}
