package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// Order is created once a checkout snapshot is accepted.
type Order struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID           *uuid.UUID             `gorm:"column:user_id;type:uuid;index"`
	Status           string                 `gorm:"column:status;type:varchar(32);not null"`
	PaymentMethod    string                 `gorm:"column:payment_method;type:varchar(32);not null"`
	DeliveryType     string                 `gorm:"column:delivery_type;type:varchar(16);not null"`
	DeliveryMethod   string                 `gorm:"column:delivery_method;type:varchar(16);not null"`
	ShippingAddress  *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb"`
	Subtotal         float64                `gorm:"column:subtotal;type:numeric(12,2);not null"`
	CouponDiscount   float64                `gorm:"column:coupon_discount;type:numeric(12,2);not null"`
	ShippingCost     float64                `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	Total            float64                `gorm:"column:total;type:numeric(12,2);not null"`
	Currency         string                 `gorm:"column:currency;not null"`
	CouponCodes      []string               `gorm:"column:coupon_codes;type:jsonb;serializer:json"`
	Notes            string                 `gorm:"column:notes"`
	PaymentReference string                 `gorm:"column:payment_reference"`
	LineItems        []OrderLineItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type OrderLineItem struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID          uuid.UUID                `gorm:"column:product_id;type:uuid;not null"`
	ProductName        string                   `gorm:"column:product_name;not null"`
	SelectedAttributes types.SelectedAttributes `gorm:"column:selected_attributes;type:jsonb"`
	Quantity           int                      `gorm:"column:quantity;not null"`
	UnitPrice          float64                  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice         float64                  `gorm:"column:total_price;type:numeric(12,2);not null"`
	SaleDiscount       float64                  `gorm:"column:sale_discount;type:numeric(12,2);not null"`
	TierDiscount       float64                  `gorm:"column:tier_discount;type:numeric(12,2);not null"`
	SaleVariantIndex   *int                     `gorm:"column:sale_variant_index"`
}

func (l *OrderLineItem) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
