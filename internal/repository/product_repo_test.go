package repository

import (
	"context"
	"testing"

	"refurb-store-api/internal/model"
	"refurb-store-api/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, repo ProductRepository, sku, name, category string) *model.Product {
	t.Helper()
	p := &model.Product{SKU: sku, Name: name, Category: category, Price: 1000}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestDecrementStockIsConditional(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProductRepo(db)
	p := seedProduct(t, repo, "D-1", "Pixel", "Phones")

	ok, err := repo.IncrementStock(db, p.ID, 3, "test")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(db, p.ID, 4, "test")
	require.NoError(t, err)
	assert.False(t, ok, "cannot take more than is on hand")

	ok, err = repo.DecrementStock(db, p.ID, 3, "test")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
	assert.Equal(t, "test", stored.UpdatedBy)

	ok, err = repo.DecrementStock(db, uuid.New(), 1, "test")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.IncrementStock(db, uuid.New(), 1, "test")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProductFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProductRepo(db)
	ctx := context.Background()

	pixel := seedProduct(t, repo, "PX-7", "Pixel 7", "Phones")
	seedProduct(t, repo, "IP-12", "iPhone 12", "Phones")
	seedProduct(t, repo, "TP-X1", "ThinkPad X1", "Laptops")
	_, err := repo.IncrementStock(db, pixel.ID, 2, "test")
	require.NoError(t, err)

	phones, err := repo.FindAll(ctx, ProductFilter{Category: "Phones"})
	require.NoError(t, err)
	assert.Len(t, phones, 2)

	search, err := repo.FindAll(ctx, ProductFilter{Search: "PIXEL"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "PX-7", search[0].SKU)

	bySKU, err := repo.FindAll(ctx, ProductFilter{Search: "tp-x"})
	require.NoError(t, err)
	assert.Len(t, bySKU, 1)

	inStock, err := repo.FindAll(ctx, ProductFilter{InStockOnly: true})
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.Equal(t, pixel.ID, inStock[0].ID)

	all, err := repo.FindAll(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Laptops", all[0].Category)
}

func TestUpdateDetailsLeavesStockAlone(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProductRepo(db)
	ctx := context.Background()
	p := seedProduct(t, repo, "U-1", "Old name", "Phones")
	_, err := repo.IncrementStock(db, p.ID, 5, "test")
	require.NoError(t, err)

	p.Name = "New name"
	p.Stock = 99
	require.NoError(t, repo.UpdateDetails(db, p))

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "New name", stored.Name)
	assert.Equal(t, 5, stored.Stock)

	missing := &model.Product{SKU: "M", Name: "M", Category: "M"}
	missing.ID = uuid.New()
	assert.ErrorIs(t, repo.UpdateDetails(db, missing), ErrNotFound)

	locked, err := repo.LockByID(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, locked.Stock)
	_, err = repo.LockByID(db, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewProductRepo(db)
	ctx := context.Background()
	p := seedProduct(t, repo, "DEL-1", "Gone", "Phones")

	require.NoError(t, repo.Delete(ctx, p.ID, "asha"))
	_, err := repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID, "asha"), ErrNotFound)

	var deleted model.Product
	require.NoError(t, db.Unscoped().First(&deleted, "id = ?", p.ID).Error)
	assert.Equal(t, "asha", deleted.DeletedBy)
}
