package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductSale holds at most one sale per product.
type ProductSale struct {
	ID           uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID     `gorm:"column:product_id;type:uuid;not null;uniqueIndex"`
	Type         string        `gorm:"column:type;type:varchar(16);not null"`
	StartDate    *time.Time    `gorm:"column:start_date"`
	EndDate      *time.Time    `gorm:"column:end_date"`
	DiscountType string        `gorm:"column:discount_type;type:varchar(16);not null"`
	Discount     float64       `gorm:"column:discount;type:numeric(12,2);not null"`
	IsHot        bool          `gorm:"column:is_hot;not null"`
	Variants     []SaleVariant `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime"`
}

func (s *ProductSale) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SaleVariant scopes a discount to one attribute value with a purchase cap.
type SaleVariant struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SaleID         uuid.UUID `gorm:"column:sale_id;type:uuid;not null;index"`
	AttributeName  string    `gorm:"column:attribute_name;not null"`
	AttributeValue string    `gorm:"column:attribute_value;not null"`
	DiscountType   string    `gorm:"column:discount_type;type:varchar(16);not null"`
	Discount       float64   `gorm:"column:discount;type:numeric(12,2);not null"`
	MaxBuys        int       `gorm:"column:max_buys;not null"`
	BoughtCount    int       `gorm:"column:bought_count;not null"`
	Position       int       `gorm:"column:position;not null"`
}

func (v *SaleVariant) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
