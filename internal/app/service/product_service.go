package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/internal/app/repository"
	"github.com/ikkim/atelier-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
)

type ProductSort string

const (
	ProductSortNewest ProductSort = "newest"
	ProductSortPrice  ProductSort = "price"
	ProductSortTitle  ProductSort = "title"
	ProductSortYear   ProductSort = "year"
)

const defaultFeaturedLimit = 6

type ProductListOptions struct {
	Category      *model.ProductCategory
	Featured      *bool
	OnSale        *bool
	Search        string
	Sort          ProductSort
	SortAscending bool
	Limit         int
	Offset        int
}

type ProductService interface {
	ListProducts(ctx context.Context, opts ProductListOptions) ([]model.Product, int64, error)
	ListFeatured(ctx context.Context, limit int) ([]model.Product, error)
	GetProductByID(ctx context.Context, id string) (*model.Product, error)
	CreateProduct(ctx context.Context, product *model.Product) error
	UpdateProduct(ctx context.Context, product *model.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

func (s *productService) ListProducts(ctx context.Context, opts ProductListOptions) ([]model.Product, int64, error) {
	logger.Debug("Listing products", map[string]interface{}{
		"category": opts.Category,
		"featured": opts.Featured,
		"on_sale":  opts.OnSale,
		"search":   opts.Search,
		"sort":     opts.Sort,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})

	filter := repository.ProductFilter{
		Category:      opts.Category,
		Featured:      opts.Featured,
		OnSale:        opts.OnSale,
		Search:        strings.TrimSpace(opts.Search),
		SortAscending: opts.SortAscending,
		Limit:         opts.Limit,
		Offset:        opts.Offset,
	}

	switch opts.Sort {
	case ProductSortPrice:
		filter.SortBy = repository.ProductSortPrice
	case ProductSortTitle:
		filter.SortBy = repository.ProductSortTitle
	case ProductSortYear:
		filter.SortBy = repository.ProductSortYear
	default:
		filter.SortBy = repository.ProductSortCreatedAt
	}

	products, err := s.productRepo.FindWithFilter(ctx, filter)
	if err != nil {
		logger.Error("Failed to list products", err)
		return nil, 0, err
	}
	total, err := s.productRepo.Count(ctx, filter)
	if err != nil {
		logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	logger.Info("Products listed", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (s *productService) ListFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	if limit <= 0 {
		limit = defaultFeaturedLimit
	}
	featured := true
	products, _, err := s.ListProducts(ctx, ProductListOptions{
		Featured: &featured,
		Sort:     ProductSortNewest,
		Limit:    limit,
	})
	return products, err
}

func (s *productService) GetProductByID(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return product, nil
}

func validateProduct(product *model.Product) error {
	product.Title = strings.TrimSpace(product.Title)
	switch {
	case product.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidProduct)
	case !product.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, product.Category)
	case product.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case product.YearCreated != nil && *product.YearCreated < 0:
		return fmt.Errorf("%w: year must not be negative", ErrInvalidProduct)
	case product.EditionSize != nil && *product.EditionSize < 1:
		return fmt.Errorf("%w: edition size must be at least 1", ErrInvalidProduct)
	}
	if product.AvailabilityStatus == "" {
		product.AvailabilityStatus = model.AvailabilityAvailable
	}
	return nil
}

func (s *productService) CreateProduct(ctx context.Context, product *model.Product) error {
	if err := validateProduct(product); err != nil {
		logger.Warn("Rejected product", map[string]interface{}{
			"title": product.Title,
			"error": err.Error(),
		})
		return err
	}

	logger.Info("Creating new product", map[string]interface{}{
		"title":    product.Title,
		"category": product.Category,
	})

	if err := s.productRepo.Create(ctx, product); err != nil {
		return err
	}

	logger.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
		"title":      product.Title,
	})
	return nil
}

func (s *productService) UpdateProduct(ctx context.Context, product *model.Product) error {
	logger.Info("Updating product", map[string]interface{}{
		"product_id": product.ID,
	})

	if _, err := s.GetProductByID(ctx, product.ID); err != nil {
		return err
	}
	if err := validateProduct(product); err != nil {
		return err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return err
	}

	logger.Info("Product updated successfully", map[string]interface{}{
		"product_id": product.ID,
		"on_sale":    product.OnSale,
	})
	return nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	logger.Info("Deleting product", map[string]interface{}{
		"product_id": id,
	})

	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	logger.Info("Product deleted successfully", map[string]interface{}{
		"product_id": id,
	})
	return nil
}
