package wishlist

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/internal/catalog"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:wishlist_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

func createProduct(t *testing.T, conn *gorm.DB, active bool) *models.Product {
	t.Helper()
	p := &models.Product{Name: "Ankara Tote", CategoryID: "bags", BasePrice: 1000, Currency: "NGN", Stock: 5, IsActive: active}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func codeOf(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	return typed.Code()
}

func TestAddIsIdempotentAndRemoveClears(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	user := uuid.New()
	p := createProduct(t, conn, true)

	entry, err := svc.Add(ctx, user, p.ID)
	require.NoError(t, err)
	assert.True(t, entry.Saved)
	_, err = svc.Add(ctx, user, p.ID)
	require.NoError(t, err)

	page, err := svc.List(ctx, user, "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID.String()}, page.ProductIDs)
	assert.Empty(t, page.NextCursor)

	entry, err = svc.Remove(ctx, user, p.ID)
	require.NoError(t, err)
	assert.False(t, entry.Saved)
	_, err = svc.Remove(ctx, user, p.ID)
	require.NoError(t, err)

	page, err = svc.List(ctx, user, "", 0)
	require.NoError(t, err)
	assert.Empty(t, page.ProductIDs)
}

func TestAddRejectsUnknownAndInactiveProducts(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Add(ctx, user, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(t, err))

	retired := createProduct(t, conn, false)
	_, err = svc.Add(ctx, user, retired.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(t, err))

	_, err = svc.Add(ctx, uuid.Nil, retired.ID)
	assert.Equal(t, pkgerrors.CodeUnauthorized, codeOf(t, err))
}

func TestListPagesNewestFirst(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	user := uuid.New()
	other := uuid.New()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var want []string
	for i := 0; i < 5; i++ {
		p := createProduct(t, conn, true)
		require.NoError(t, conn.Create(&models.WishlistItem{UserID: user, ProductID: p.ID, CreatedAt: base.Add(time.Duration(i) * time.Minute)}).Error)
		want = append([]string{p.ID.String()}, want...)
	}
	require.NoError(t, conn.Create(&models.WishlistItem{UserID: other, ProductID: createProduct(t, conn, true).ID, CreatedAt: base}).Error)

	first, err := svc.List(ctx, user, "", 2)
	require.NoError(t, err)
	assert.Equal(t, want[:2], first.ProductIDs)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.List(ctx, user, first.NextCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, want[2:4], second.ProductIDs)

	third, err := svc.List(ctx, user, second.NextCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, want[4:], third.ProductIDs)
	assert.Empty(t, third.NextCursor)

	_, err = svc.List(ctx, user, "not-a-cursor", 2)
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))
}
