package types

import (
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
)

// CheckoutItem is one client-priced line of a checkout submission.
type CheckoutItem struct {
	ItemKey            string              `json:"itemKey" validate:"required"`
	Product            string              `json:"product" validate:"required,uuid"`
	Qty                int                 `json:"qty" validate:"min=1"`
	SelectedAttributes []pricing.Attribute `json:"selectedAttributes"`
	UnitPrice          float64             `json:"unitPrice" validate:"min=0"`
	TotalPrice         float64             `json:"totalPrice" validate:"min=0"`
	Sale               bool                `json:"sale"`
	SaleVariantIndex   int                 `json:"saleVariantIndex"`
	AppliedDiscount    float64             `json:"appliedDiscount"`
	SaleDiscount       float64             `json:"saleDiscount"`
	TierDiscount       float64             `json:"tierDiscount"`
	PricingTier        *pricing.Tier       `json:"pricingTier,omitempty"`
	DiscountAmount     float64             `json:"discountAmount"`
	ProductSnapshot    *ProductSnapshot    `json:"productSnapshot,omitempty"`
}

// EstimatedShipping echoes the quote the client displayed.
type EstimatedShipping struct {
	Cost float64 `json:"cost"`
	Days int     `json:"days"`
}

// CheckoutRequest is the client's full cart snapshot.
type CheckoutRequest struct {
	Items             []CheckoutItem       `json:"items" validate:"required,min=1,dive"`
	ShippingAddress   *ShippingAddress     `json:"shippingAddress,omitempty"`
	PaymentMethod     enums.PaymentMethod  `json:"paymentMethod" validate:"required"`
	CouponCodes       []string             `json:"couponCodes"`
	Subtotal          float64              `json:"subtotal" validate:"min=0"`
	Total             float64              `json:"total" validate:"min=0"`
	TotalDiscount     float64              `json:"totalDiscount"`
	EstimatedShipping EstimatedShipping    `json:"estimatedShipping"`
	DeliveryType      enums.DeliveryType   `json:"deliveryType" validate:"required"`
	DeliveryMethod    enums.DeliveryMethod `json:"deliveryMethod"`
	ShippingCost      float64              `json:"shippingCost" validate:"min=0"`
	AcceptChanges     bool                 `json:"acceptChanges"`
	Notes             string               `json:"notes" validate:"max=1000"`
}

// PaymentInitiation is the opaque descriptor handed back by the payment provider.
type PaymentInitiation struct {
	PaymentURL    string `json:"paymentUrl"`
	Reference     string `json:"reference"`
	TransactionID string `json:"transactionId"`
	AccessCode    string `json:"access_code"`
}

type CheckoutSummary struct {
	Total          float64            `json:"total"`
	Subtotal       float64            `json:"subtotal"`
	CouponDiscount float64            `json:"couponDiscount"`
	ShippingCost   float64            `json:"shippingCost"`
	ItemCount      int                `json:"itemCount"`
	DeliveryType   enums.DeliveryType `json:"deliveryType"`
}

// CheckoutSuccess is returned once the server accepts the snapshot.
type CheckoutSuccess struct {
	OrderID string             `json:"orderId"`
	Payment *PaymentInitiation `json:"payment"`
	Summary CheckoutSummary    `json:"summary"`
}

// ProductIssue is one server-detected problem with a checkout line.
type ProductIssue struct {
	ItemKey            string                 `json:"itemKey"`
	ProductID          string                 `json:"productId"`
	Name               string                 `json:"name"`
	Type               enums.ProductIssueType `json:"type"`
	Severity           enums.IssueSeverity    `json:"severity"`
	Message            string                 `json:"message"`
	RequestedQty       int                    `json:"requestedQty,omitempty"`
	AvailableStock     *int                   `json:"availableStock,omitempty"`
	SelectedAttributes []pricing.Attribute    `json:"selectedAttributes,omitempty"`
	Alternatives       []AttributeOptions     `json:"alternatives,omitempty"`
	OldPrice           *float64               `json:"oldPrice,omitempty"`
	NewPrice           *float64               `json:"newPrice,omitempty"`
	Product            *ProductSnapshot       `json:"product,omitempty"`
}

// CartTotalIssue is a cart-level discrepancy that no single line explains.
type CartTotalIssue struct {
	Message  string              `json:"message"`
	Severity enums.IssueSeverity `json:"severity"`
	Expected float64             `json:"expected"`
	Received float64             `json:"received"`
}

type CheckoutErrors struct {
	Items     []ProductIssue  `json:"items,omitempty"`
	CartTotal *CartTotalIssue `json:"cartTotal,omitempty"`
}

type CorrectionSummary struct {
	ItemsRemaining int                `json:"itemsRemaining"`
	NewSubtotal    float64            `json:"newSubtotal"`
	NewTotal       float64            `json:"newTotal"`
	ShippingCost   float64            `json:"shippingCost"`
	DeliveryType   enums.DeliveryType `json:"deliveryType"`
	CouponDiscount float64            `json:"couponDiscount"`
}

// CheckoutCorrection tells the client its snapshot disagrees with the server.
type CheckoutCorrection struct {
	NeedsUpdate bool              `json:"needsUpdate"`
	Errors      *CheckoutErrors   `json:"errors,omitempty"`
	Summary     CorrectionSummary `json:"summary"`
}
