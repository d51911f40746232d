package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/atelier-backend/internal/app/service"
	"github.com/ikkim/atelier-backend/internal/cart"
	apperrors "github.com/ikkim/atelier-backend/internal/errors"
	"github.com/ikkim/atelier-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  *int   `json:"quantity"`
}

type UpdateCartRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// GetCart returns user's cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized access to cart", nil)
		apperrors.Unauthorized(c, "")
		return
	}

	snap, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		// the client still renders the empty cart and shows the error
		log.Warn("Cart load failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		c.JSON(http.StatusOK, gin.H{
			"cart":       snap,
			"load_error": "We couldn't load your cart, please try again",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": snap,
	})
}

// ReloadCart re-reads the cart from storage
// POST /api/v1/cart/reload
func (ctrl *CartController) ReloadCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized attempt to reload cart", nil)
		apperrors.Unauthorized(c, "")
		return
	}

	snap, err := ctrl.cartService.Reload(c.Request.Context(), userID)
	if err != nil {
		respondCartError(c, err, snap)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": snap,
	})
}

// AddToCart adds item to cart
// POST /api/v1/cart
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized attempt to add to cart", nil)
		apperrors.Unauthorized(c, "")
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Product id is required")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	snap, err := ctrl.cartService.AddToCart(c.Request.Context(), userID, req.ProductID, quantity)
	if err != nil {
		respondCartError(c, err, snap)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Item added to cart",
		"cart":    snap,
	})
}

// UpdateCartItem sets the quantity of a product already in the cart
// PUT /api/v1/cart/:product_id
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized attempt to update cart item", nil)
		apperrors.Unauthorized(c, "")
		return
	}

	productID := c.Param("product_id")

	var req UpdateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update cart request", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "Quantity must be at least 1")
		return
	}

	snap, err := ctrl.cartService.UpdateQuantity(c.Request.Context(), userID, productID, req.Quantity)
	if err != nil {
		respondCartError(c, err, snap)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item updated",
		"cart":    snap,
	})
}

// RemoveFromCart removes item from cart
// DELETE /api/v1/cart/:product_id
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized attempt to remove cart item", nil)
		apperrors.Unauthorized(c, "")
		return
	}

	snap, err := ctrl.cartService.RemoveFromCart(c.Request.Context(), userID, c.Param("product_id"))
	if err != nil {
		respondCartError(c, err, snap)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item removed",
		"cart":    snap,
	})
}

// ClearCart clears all items from cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		log.Warn("Unauthorized attempt to clear cart", nil)
		apperrors.Unauthorized(c, "")
		return
	}

	snap, err := ctrl.cartService.ClearCart(c.Request.Context(), userID)
	if err != nil {
		respondCartError(c, err, snap)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
		"cart":    snap,
	})
}

// cartErrorBody carries the unchanged cart next to the error so the client
// can keep rendering it
type cartErrorBody struct {
	apperrors.ErrorResponse
	Cart cart.Snapshot `json:"cart"`
}

func respondCartError(c *gin.Context, err error, snap cart.Snapshot) {
	status, code, message := cartErrorStatus(err)
	c.JSON(status, cartErrorBody{
		ErrorResponse: apperrors.ErrorResponse{Error: code, Message: message},
		Cart:          snap,
	})
}

func cartErrorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, cart.ErrProductNotFound):
		return http.StatusNotFound, apperrors.ProductNotFound, "This artwork no longer exists"
	case errors.Is(err, cart.ErrCartItemNotFound):
		return http.StatusNotFound, apperrors.CartItemNotFound, "This artwork is not in your cart"
	case errors.Is(err, cart.ErrProductNotPurchasable):
		return http.StatusBadRequest, apperrors.CartProductNotPurchasable, "This artwork is not for sale"
	case errors.Is(err, cart.ErrInvalidQuantity):
		return http.StatusBadRequest, apperrors.CartInvalidQuantity, "Quantity must be at least 1"
	case errors.Is(err, cart.ErrQuantityTooLarge):
		return http.StatusBadRequest, apperrors.CartInvalidQuantity, "Quantity exceeds the per-item limit"
	case errors.Is(err, cart.ErrMissingIdentity):
		return http.StatusUnauthorized, apperrors.AuthUnauthorized, "Please sign in to continue"
	case errors.Is(err, cart.ErrValidation):
		return http.StatusBadRequest, apperrors.ValidationInvalidInput, "The cart request is invalid"
	case errors.Is(err, cart.ErrConsistency):
		return http.StatusConflict, apperrors.CartOutOfSync, "Your cart changed elsewhere, please reload it"
	case errors.Is(err, cart.ErrRemoteFailure):
		return http.StatusBadGateway, apperrors.InternalDatabaseError, "We couldn't save your cart, please try again"
	default:
		return http.StatusInternalServerError, apperrors.InternalServerError, "Something went wrong, please try again later"
	}
}
