package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
	"github.com/google/uuid"
)

// PaymentRequest is what the payment provider needs to start collecting.
type PaymentRequest struct {
	OrderID  uuid.UUID
	Amount   float64
	Currency string
	Method   enums.PaymentMethod
}

// PaymentInitiator starts payment for an accepted order. The returned
// descriptor is passed to the client untouched.
type PaymentInitiator interface {
	Initiate(ctx context.Context, req PaymentRequest) (*types.PaymentInitiation, error)
}

// HostedPageInitiator builds a hosted payment page link for card and bank
// transfer orders.
type HostedPageInitiator struct {
	BaseURL string
}

// NewHostedPageInitiator validates the base URL of the hosted payment page.
func NewHostedPageInitiator(baseURL string) (*HostedPageInitiator, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid payment base url %q", baseURL)
	}
	return &HostedPageInitiator{BaseURL: parsed.String()}, nil
}

func (h *HostedPageInitiator) Initiate(_ context.Context, req PaymentRequest) (*types.PaymentInitiation, error) {
	if req.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id required")
	}
	base, err := url.Parse(h.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse payment base url: %w", err)
	}

	reference := "SF-" + strings.ToUpper(strings.ReplaceAll(req.OrderID.String(), "-", "")[:12])
	accessCode := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]

	q := base.Query()
	q.Set("reference", reference)
	q.Set("access_code", accessCode)
	q.Set("amount", pricing.FormatAmount(req.Amount))
	q.Set("currency", req.Currency)
	q.Set("method", req.Method.String())
	base.RawQuery = q.Encode()

	return &types.PaymentInitiation{
		PaymentURL:    base.String(),
		Reference:     reference,
		TransactionID: req.OrderID.String(),
		AccessCode:    accessCode,
	}, nil
}
