package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/internal/app/service"
	"github.com/ikkim/atelier-backend/internal/cart"
	apperrors "github.com/ikkim/atelier-backend/internal/errors"
	"github.com/ikkim/atelier-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
)

// ImageRemover deletes uploaded artwork images
type ImageRemover interface {
	DeleteObject(ctx context.Context, key string) error
}

// CartReader reads the signed-in visitor's cart for the product page
type CartReader interface {
	GetCart(ctx context.Context, userID uint) (cart.Snapshot, error)
}

type ProductController struct {
	productService service.ProductService
	images         ImageRemover
	carts          CartReader
}

// NewProductController builds the controller. images may be nil, uploaded
// files are then left in the bucket. carts may be nil, product pages then
// never report an in-cart quantity.
func NewProductController(productService service.ProductService, images ImageRemover, carts CartReader) *ProductController {
	return &ProductController{
		productService: productService,
		images:         images,
		carts:          carts,
	}
}

type ProductRequest struct {
	Title              string                   `json:"title" binding:"required"`
	Description        *string                  `json:"description"`
	Price              *decimal.Decimal         `json:"price" binding:"required"`
	Category           model.ProductCategory    `json:"category" binding:"required"`
	ImageURL           *string                  `json:"image_url"`
	ImagePath          *string                  `json:"image_path"`
	IsFeatured         bool                     `json:"is_featured"`
	OnSale             bool                     `json:"on_sale"`
	Dimensions         *string                  `json:"dimensions"`
	Medium             *string                  `json:"medium"`
	YearCreated        *int                     `json:"year_created"`
	EditionSize        *int                     `json:"edition_size"`
	FrameIncluded      bool                     `json:"frame_included"`
	AvailabilityStatus model.AvailabilityStatus `json:"availability_status"`
}

func (r *ProductRequest) applyTo(p *model.Product) {
	p.Title = r.Title
	p.Description = r.Description
	p.Price = *r.Price
	p.Category = r.Category
	p.ImageURL = r.ImageURL
	p.ImagePath = r.ImagePath
	p.IsFeatured = r.IsFeatured
	p.OnSale = r.OnSale
	p.Dimensions = r.Dimensions
	p.Medium = r.Medium
	p.YearCreated = r.YearCreated
	p.EditionSize = r.EditionSize
	p.FrameIncluded = r.FrameIncluded
	p.AvailabilityStatus = r.AvailabilityStatus
}

func parseBoolQuery(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseListOptions(c *gin.Context) (service.ProductListOptions, error) {
	opts := service.ProductListOptions{
		Search:        c.Query("search"),
		Sort:          service.ProductSort(strings.ToLower(c.DefaultQuery("sort", string(service.ProductSortNewest)))),
		SortAscending: strings.EqualFold(c.Query("order"), "asc"),
	}

	switch opts.Sort {
	case service.ProductSortNewest, service.ProductSortPrice, service.ProductSortTitle, service.ProductSortYear:
	default:
		return opts, errors.New("unknown sort")
	}

	if raw := c.Query("category"); raw != "" {
		category := model.ProductCategory(strings.ToLower(raw))
		if !category.Valid() {
			return opts, errors.New("unknown category")
		}
		opts.Category = &category
	}

	var err error
	if opts.Featured, err = parseBoolQuery(c, "featured"); err != nil {
		return opts, err
	}
	if opts.OnSale, err = parseBoolQuery(c, "on_sale"); err != nil {
		return opts, err
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return opts, errors.New("invalid page")
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if err != nil || pageSize < 1 {
		return opts, errors.New("invalid page size")
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	opts.Limit = pageSize
	opts.Offset = (page - 1) * pageSize
	return opts, nil
}

// ListProducts returns the catalog
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	opts, err := parseListOptions(c)
	if err != nil {
		log.Warn("Invalid product query", map[string]interface{}{
			"query": c.Request.URL.RawQuery,
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "The catalog filters are invalid")
		return
	}

	products, total, err := ctrl.productService.ListProducts(c.Request.Context(), opts)
	if err != nil {
		log.Error("Failed to fetch products", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":  products,
		"count":     len(products),
		"total":     total,
		"page":      opts.Offset/opts.Limit + 1,
		"page_size": opts.Limit,
	})
}

// ListFeatured returns the works shown on the home page
// GET /api/v1/products/featured
func (ctrl *ProductController) ListFeatured(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	limit, _ := strconv.Atoi(c.Query("limit"))
	products, err := ctrl.productService.ListFeatured(c.Request.Context(), limit)
	if err != nil {
		log.Error("Failed to fetch featured products", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list featured products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// GetProductByID returns a product by ID
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	product, err := ctrl.productService.GetProductByID(c.Request.Context(), id)
	if err != nil {
		ctrl.respondProductError(c, err, id, "fetch")
		return
	}

	log.Debug("Product fetched successfully", map[string]interface{}{
		"product_id": product.ID,
	})

	body := gin.H{
		"product": product,
	}
	if quantity, ok := ctrl.inCart(c, product.ID); ok {
		body["in_cart"] = quantity
	}
	c.JSON(http.StatusOK, body)
}

// inCart looks the product up in the visitor's cart. Guests and cart
// failures report nothing; the page still renders.
func (ctrl *ProductController) inCart(c *gin.Context, productID string) (int, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || ctrl.carts == nil {
		return 0, false
	}

	snap, err := ctrl.carts.GetCart(c.Request.Context(), userID)
	if err != nil {
		middleware.GetLoggerFromContext(c).Warn("Cart unavailable for product page", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"error":      err.Error(),
		})
		return 0, false
	}

	item, _ := snap.Item(productID)
	return item.Quantity, true
}

// CreateProduct creates a new product (Admin only)
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product creation request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Title, price and category are required")
		return
	}

	product := &model.Product{}
	req.applyTo(product)

	if err := ctrl.productService.CreateProduct(c.Request.Context(), product); err != nil {
		ctrl.respondProductError(c, err, "", "create")
		return
	}

	log.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
		"title":      product.Title,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// UpdateProduct replaces the editable fields of a product (Admin only)
// PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product update request", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Title, price and category are required")
		return
	}

	product, err := ctrl.productService.GetProductByID(c.Request.Context(), id)
	if err != nil {
		ctrl.respondProductError(c, err, id, "update")
		return
	}
	oldImage := product.ImagePath
	req.applyTo(product)

	if err := ctrl.productService.UpdateProduct(c.Request.Context(), product); err != nil {
		ctrl.respondProductError(c, err, id, "update")
		return
	}

	if oldImage != nil && (product.ImagePath == nil || *product.ImagePath != *oldImage) {
		ctrl.removeImage(c, *oldImage)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct deletes a product and drops it from every cart (Admin only)
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	id := c.Param("id")

	product, err := ctrl.productService.GetProductByID(c.Request.Context(), id)
	if err != nil {
		ctrl.respondProductError(c, err, id, "delete")
		return
	}

	if err := ctrl.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		ctrl.respondProductError(c, err, id, "delete")
		return
	}

	if product.ImagePath != nil {
		ctrl.removeImage(c, *product.ImagePath)
	}

	log.Info("Product deleted successfully", map[string]interface{}{
		"product_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

// removeImage is best effort, a leftover object only costs storage
func (ctrl *ProductController) removeImage(c *gin.Context, key string) {
	if ctrl.images == nil {
		return
	}
	if err := ctrl.images.DeleteObject(c.Request.Context(), key); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to delete product image", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

func (ctrl *ProductController) respondProductError(c *gin.Context, err error, id, action string) {
	log := middleware.GetLoggerFromContext(c)

	switch {
	case errors.Is(err, service.ErrProductNotFound):
		log.Warn("Product not found", map[string]interface{}{
			"product_id": id,
			"action":     action,
		})
		apperrors.NotFound(c, apperrors.ProductNotFound, "Artwork not found")
	case errors.Is(err, service.ErrInvalidProduct):
		log.Warn("Invalid product", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ProductInvalid, strings.TrimPrefix(err.Error(), service.ErrInvalidProduct.Error()+": "))
	default:
		log.Error("Product request failed", err, map[string]interface{}{
			"product_id": id,
			"action":     action,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, action+" product")
	}
}
