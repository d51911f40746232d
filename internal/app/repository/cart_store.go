package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/internal/cart"
	"gorm.io/gorm"
)

// cartStore adapts the gorm repositories to cart.RemoteStore
type cartStore struct {
	carts    CartRepository
	products ProductRepository
}

func NewCartStore(carts CartRepository, products ProductRepository) cart.RemoteStore {
	return &cartStore{carts: carts, products: products}
}

func (s *cartStore) SelectCartItems(ctx context.Context, userID uint) ([]model.CartItem, error) {
	items, err := s.carts.FindByUserID(ctx, userID)
	return items, translateStoreError(err)
}

func (s *cartStore) InsertCartItem(ctx context.Context, userID uint, productID string, quantity int) (*model.CartItem, error) {
	item := &model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if err := s.carts.Create(ctx, item); err != nil {
		return nil, translateStoreError(err)
	}
	return item, nil
}

func (s *cartStore) UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) (*model.CartItem, error) {
	item, err := s.carts.UpdateQuantity(ctx, itemID, quantity)
	return item, translateStoreError(err)
}

func (s *cartStore) DeleteCartItem(ctx context.Context, itemID string) error {
	return translateStoreError(s.carts.Delete(ctx, itemID))
}

func (s *cartStore) DeleteAllCartItems(ctx context.Context, userID uint) error {
	return translateStoreError(s.carts.DeleteByUserID(ctx, userID))
}

func (s *cartStore) SelectProduct(ctx context.Context, productID string) (*model.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	return product, translateStoreError(err)
}

func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", cart.ErrRowNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", cart.ErrRowExists, err)
	default:
		return err
	}
}
