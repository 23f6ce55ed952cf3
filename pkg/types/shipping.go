package types

import (
	"github.com/angelmondragon/storefront-checkout/pkg/enums"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
)

type ShippingQuoteItem struct {
	Product            string              `json:"product" validate:"required,uuid"`
	Qty                int                 `json:"qty" validate:"min=1"`
	SelectedAttributes []pricing.Attribute `json:"selectedAttributes"`
	UnitPrice          float64             `json:"unitPrice" validate:"min=0"`
	TotalPrice         float64             `json:"totalPrice" validate:"min=0"`
}

// ShippingQuoteRequest is sent to the authenticated quote endpoint.
type ShippingQuoteRequest struct {
	Items           []ShippingQuoteItem  `json:"items" validate:"required,min=1,dive"`
	ShippingAddress Destination          `json:"shippingAddress"`
	DeliveryType    enums.DeliveryMethod `json:"deliveryType" validate:"required"`
}

type ShippingQuoteResponse struct {
	ShippingCost   float64              `json:"shippingCost"`
	DeliveryType   enums.DeliveryMethod `json:"deliveryType"`
	Destination    Destination          `json:"destination"`
	Currency       string               `json:"currency"`
	ItemsSubtotal  float64              `json:"itemsSubtotal"`
	EstimatedTotal float64              `json:"estimatedTotal"`
	EstimatedDays  int                  `json:"estimatedDays,omitempty"`
}

type GuestQuoteItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

// GuestQuoteRequest is sent to the flat-rate endpoint when no session exists.
type GuestQuoteRequest struct {
	Items       []GuestQuoteItem `json:"items" validate:"required,min=1,dive"`
	Destination Destination      `json:"destination"`
}

type GuestQuoteResponse struct {
	Amount float64 `json:"amount"`
}
