package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-checkout/api/middleware"
	"github.com/angelmondragon/storefront-checkout/api/responses"
	"github.com/angelmondragon/storefront-checkout/api/validators"
	checkoutsvc "github.com/angelmondragon/storefront-checkout/internal/checkout"
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

const idempotencyHeader = "Idempotency-Key"

// Checkout submits a cart snapshot. Guests and signed-in shoppers are both
// accepted. Success and correction are 200 responses; an inconsistent
// snapshot is a 409 CHECKOUT_INTEGRITY error.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		ctx := r.Context()
		key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		if key == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		}
		if logg != nil {
			ctx = logg.WithIdempotencyKey(ctx, key)
		}

		var userID *uuid.UUID
		if raw := middleware.UserIDFromContext(ctx); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
				return
			}
			userID = &id
		}

		var payload types.CheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payload.Notes = validators.SanitizeString(payload.Notes, 1000)

		result, err := svc.Submit(ctx, userID, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		switch result.Outcome {
		case enums.CheckoutOutcomeSuccess:
			if logg != nil {
				logg.Info(logg.WithOrderID(ctx, result.Success.OrderID), "checkout.order_placed")
			}
			responses.WriteSuccess(w, result.Success)
		case enums.CheckoutOutcomeNeedsCorrection:
			if logg != nil {
				issues := 0
				if result.Correction.Errors != nil {
					issues = len(result.Correction.Errors.Items)
				}
				logg.Info(logg.WithField(ctx, "issues", issues), "checkout.needs_correction")
			}
			responses.WriteSuccess(w, result.Correction)
		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "unknown checkout outcome"))
		}
	}
}
