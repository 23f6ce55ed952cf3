package wishlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/pagination"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem saves the product for the user. Saving twice is a no-op.
func (r *Repository) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return gorm.ErrInvalidValue
	}
	item := models.WishlistItem{
		UserID:    userID,
		ProductID: productID,
		// postgres keeps microseconds; cursors must round-trip exactly
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&item).Error
}

// RemoveItem deletes the saved product if present.
func (r *Repository) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{}).
		Error
}

// ListIDs pages through the user's saved products, newest first.
func (r *Repository) ListIDs(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) (types.WishlistPage, error) {
	pageSize := pagination.NormalizeLimit(limit)

	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.WishlistItem
	if err := q.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return types.WishlistPage{}, err
	}

	page := types.WishlistPage{ProductIDs: make([]string, 0, len(rows))}
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:pageSize]
	}
	for _, row := range rows {
		page.ProductIDs = append(page.ProductIDs, row.ProductID.String())
	}
	return page, nil
}
