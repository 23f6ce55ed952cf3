package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the priced catalog entry a cart line refers to.
type Product struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name       string            `gorm:"column:name;not null"`
	CategoryID string            `gorm:"column:category_id;not null;index"`
	BasePrice  float64           `gorm:"column:base_price;type:numeric(12,2);not null"`
	Currency   string            `gorm:"column:currency;not null"`
	Stock      int               `gorm:"column:stock;not null"`
	IsActive   bool              `gorm:"column:is_active;not null"`
	Attributes []AttributeOption `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Tiers      []PricingTier     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Sale       *ProductSale      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// AttributeOption is one selectable value (Color=Red). Stock nil means the
// option is only bounded by product stock.
type AttributeOption struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Name          string    `gorm:"column:name;not null"`
	Value         string    `gorm:"column:value;not null"`
	PriceOverride *float64  `gorm:"column:price_override;type:numeric(12,2)"`
	Stock         *int      `gorm:"column:stock"`
	Position      int       `gorm:"column:position;not null"`
}

func (a *AttributeOption) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Available reports whether the option can still be sold.
func (a AttributeOption) Available() bool {
	return a.Stock == nil || *a.Stock > 0
}

// PricingTier is a volume price band. Position breaks MinQty ties.
type PricingTier struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	MinQty    int       `gorm:"column:min_qty;not null"`
	MaxQty    *int      `gorm:"column:max_qty"`
	Strategy  string    `gorm:"column:strategy;type:varchar(32);not null"`
	Value     float64   `gorm:"column:value;type:numeric(12,2);not null"`
	Position  int       `gorm:"column:position;not null"`
}

func (t *PricingTier) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
