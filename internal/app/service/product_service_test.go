package service

import (
	"context"
	"testing"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/internal/app/repository"
	"github.com/ikkim/atelier-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductServiceTest(t *testing.T) (ProductService, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	productRepo := repository.NewProductRepository(testDB)
	return NewProductService(productRepo), testDB
}

func TestProductService_CreateProduct(t *testing.T) {
	productService, _ := setupProductServiceTest(t)
	ctx := context.Background()
	zero := 0

	tests := []struct {
		name    string
		product *model.Product
		wantErr error
	}{
		{
			name:    "Valid painting",
			product: &model.Product{Title: " Harbor at Dusk ", Price: decimal.NewFromInt(1200), Category: model.CategoryPainting},
		},
		{
			name:    "Free artwork",
			product: &model.Product{Title: "Sketch", Price: decimal.Zero, Category: model.CategoryDigital},
		},
		{
			name:    "Missing title",
			product: &model.Product{Price: decimal.NewFromInt(10), Category: model.CategoryPrint},
			wantErr: ErrInvalidProduct,
		},
		{
			name:    "Unknown category",
			product: &model.Product{Title: "Gold Ring", Price: decimal.NewFromInt(10), Category: "jewelry"},
			wantErr: ErrInvalidProduct,
		},
		{
			name:    "Negative price",
			product: &model.Product{Title: "Refund", Price: decimal.NewFromInt(-1), Category: model.CategoryPrint},
			wantErr: ErrInvalidProduct,
		},
		{
			name:    "Zero edition",
			product: &model.Product{Title: "Edition", Price: decimal.NewFromInt(10), Category: model.CategoryPrint, EditionSize: &zero},
			wantErr: ErrInvalidProduct,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := productService.CreateProduct(ctx, tt.product)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, tt.product.ID)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, tt.product.ID)
			assert.Equal(t, model.AvailabilityAvailable, tt.product.AvailabilityStatus)
		})
	}

	products, total, err := productService.ListProducts(ctx, ProductListOptions{Sort: ProductSortTitle, SortAscending: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, products, 2)
	assert.Equal(t, "Harbor at Dusk", products[0].Title)
}

func TestProductService_ListProducts(t *testing.T) {
	productService, _ := setupProductServiceTest(t)
	ctx := context.Background()

	for _, p := range []*model.Product{
		{Title: "A", Price: decimal.NewFromInt(300), Category: model.CategoryPainting, OnSale: true, IsFeatured: true},
		{Title: "B", Price: decimal.NewFromInt(100), Category: model.CategoryPainting, OnSale: true},
		{Title: "C", Price: decimal.NewFromInt(200), Category: model.CategoryPrint},
	} {
		require.NoError(t, productService.CreateProduct(ctx, p))
	}

	painting := model.CategoryPainting
	products, total, err := productService.ListProducts(ctx, ProductListOptions{
		Category:      &painting,
		Sort:          ProductSortPrice,
		SortAscending: true,
		Limit:         1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, products, 1)
	assert.Equal(t, "B", products[0].Title)

	featured, err := productService.ListFeatured(ctx, 0)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "A", featured[0].Title)
}

func TestProductService_UpdateProduct(t *testing.T) {
	productService, _ := setupProductServiceTest(t)
	ctx := context.Background()

	product := &model.Product{Title: "Study", Price: decimal.NewFromInt(50), Category: model.CategoryPrint}
	require.NoError(t, productService.CreateProduct(ctx, product))

	product.OnSale = true
	require.NoError(t, productService.UpdateProduct(ctx, product))

	found, err := productService.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, found.OnSale)

	product.Price = decimal.NewFromInt(-5)
	assert.ErrorIs(t, productService.UpdateProduct(ctx, product), ErrInvalidProduct)

	missing := &model.Product{ID: "missing", Title: "Ghost", Category: model.CategoryPrint}
	assert.ErrorIs(t, productService.UpdateProduct(ctx, missing), ErrProductNotFound)
}

func TestProductService_DeleteProduct(t *testing.T) {
	productService, _ := setupProductServiceTest(t)
	ctx := context.Background()

	product := &model.Product{Title: "Study", Price: decimal.NewFromInt(50), Category: model.CategoryPrint}
	require.NoError(t, productService.CreateProduct(ctx, product))

	require.NoError(t, productService.DeleteProduct(ctx, product.ID))

	_, err := productService.GetProductByID(ctx, product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, productService.DeleteProduct(ctx, product.ID), ErrProductNotFound)
}
