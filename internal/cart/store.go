package cart

import (
	"context"

	"github.com/ikkim/atelier-backend/internal/app/model"
)

// RemoteStore is the persistence boundary for cart rows and the products
// they reference. Missing rows are reported as ErrRowNotFound and unique
// violations as ErrRowExists.
type RemoteStore interface {
	SelectCartItems(ctx context.Context, userID uint) ([]model.CartItem, error)
	InsertCartItem(ctx context.Context, userID uint, productID string, quantity int) (*model.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) (*model.CartItem, error)
	DeleteCartItem(ctx context.Context, itemID string) error
	DeleteAllCartItems(ctx context.Context, userID uint) error
	SelectProduct(ctx context.Context, productID string) (*model.Product, error)
}
