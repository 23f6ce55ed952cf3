package types

import (
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/enums"
)

type CouponValidateRequest struct {
	Code        string   `json:"code" validate:"required,max=64"`
	OrderTotal  float64  `json:"orderTotal" validate:"min=0"`
	ProductIDs  []string `json:"productIds"`
	CategoryIDs []string `json:"categoryIds"`
}

// CouponView is the public description of an accepted coupon.
type CouponView struct {
	Code          string                   `json:"code"`
	DiscountType  enums.CouponDiscountType `json:"discountType"`
	Discount      float64                  `json:"discount"`
	MinOrderValue float64                  `json:"minOrderValue"`
	AppliesTo     enums.CouponScope        `json:"appliesTo"`
	Stackable     bool                     `json:"stackable"`
	ValidUntil    *time.Time               `json:"validUntil,omitempty"`
}

type CouponValidateData struct {
	Discount float64    `json:"discount"`
	Coupon   CouponView `json:"coupon"`
}

// CouponValidateResponse is written without the usual data envelope.
type CouponValidateResponse struct {
	Success bool                  `json:"success"`
	Valid   bool                  `json:"valid"`
	Data    *CouponValidateData   `json:"data,omitempty"`
	Message string                `json:"message,omitempty"`
	Reason  enums.CouponRejection `json:"reason,omitempty"`
}
