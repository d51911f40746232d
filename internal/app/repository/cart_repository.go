package repository

import (
	"context"
	"time"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/pkg/logger"
	"gorm.io/gorm"
)

type CartRepository interface {
	Create(ctx context.Context, cartItem *model.CartItem) error
	FindByUserID(ctx context.Context, userID uint) ([]model.CartItem, error)
	FindByID(ctx context.Context, id string) (*model.CartItem, error)
	UpdateQuantity(ctx context.Context, id string, quantity int) (*model.CartItem, error)
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID uint) error
	DeleteStale(ctx context.Context, before time.Time) ([]uint, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Create(ctx context.Context, cartItem *model.CartItem) error {
	logger.Debug("Creating cart item in database", map[string]interface{}{
		"user_id":    cartItem.UserID,
		"product_id": cartItem.ProductID,
		"quantity":   cartItem.Quantity,
	})

	if err := r.db.WithContext(ctx).Create(cartItem).Error; err != nil {
		logger.Error("Failed to create cart item in database", err, map[string]interface{}{
			"user_id":    cartItem.UserID,
			"product_id": cartItem.ProductID,
		})
		return err
	}

	logger.Debug("Cart item created in database", map[string]interface{}{
		"cart_item_id": cartItem.ID,
		"user_id":      cartItem.UserID,
		"product_id":   cartItem.ProductID,
	})
	return nil
}

// FindByUserID returns the user's rows, oldest first, with their products
func (r *cartRepository) FindByUserID(ctx context.Context, userID uint) ([]model.CartItem, error) {
	logger.Debug("Finding cart items by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var cartItems []model.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Product").
		Order("created_at ASC").
		Find(&cartItems).Error
	if err != nil {
		logger.Error("Failed to find cart items by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Cart items found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(cartItems),
	})
	return cartItems, nil
}

func (r *cartRepository) FindByID(ctx context.Context, id string) (*model.CartItem, error) {
	var cartItem model.CartItem
	err := r.db.WithContext(ctx).Preload("Product").Where("id = ?", id).First(&cartItem).Error
	if err != nil {
		logger.Debug("Cart item not found by ID in database", map[string]interface{}{
			"cart_item_id": id,
			"error":        err.Error(),
		})
		return nil, err
	}
	return &cartItem, nil
}

// UpdateQuantity returns gorm.ErrRecordNotFound when the row is gone
func (r *cartRepository) UpdateQuantity(ctx context.Context, id string, quantity int) (*model.CartItem, error) {
	logger.Debug("Updating cart item quantity in database", map[string]interface{}{
		"cart_item_id": id,
		"quantity":     quantity,
	})

	result := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", id).
		Update("quantity", quantity)
	if result.Error != nil {
		logger.Error("Failed to update cart item quantity in database", result.Error, map[string]interface{}{
			"cart_item_id": id,
		})
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		logger.Warn("Cart item vanished before quantity update", map[string]interface{}{
			"cart_item_id": id,
		})
		return nil, gorm.ErrRecordNotFound
	}

	return r.FindByID(ctx, id)
}

// Delete is idempotent: deleting a missing row is not an error
func (r *cartRepository) Delete(ctx context.Context, id string) error {
	logger.Debug("Deleting cart item from database", map[string]interface{}{
		"cart_item_id": id,
	})

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart item from database", result.Error, map[string]interface{}{
			"cart_item_id": id,
		})
		return result.Error
	}

	logger.Debug("Cart item deleted from database", map[string]interface{}{
		"cart_item_id":  id,
		"rows_affected": result.RowsAffected,
	})
	return nil
}

func (r *cartRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	logger.Debug("Deleting cart items by user ID from database", map[string]interface{}{
		"user_id": userID,
	})

	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart items by user ID from database", result.Error, map[string]interface{}{
			"user_id": userID,
		})
		return result.Error
	}

	logger.Debug("Cart items deleted by user ID from database", map[string]interface{}{
		"user_id":       userID,
		"rows_affected": result.RowsAffected,
	})
	return nil
}

// DeleteStale removes rows not updated since before and returns the users
// whose carts lost rows
func (r *cartRepository) DeleteStale(ctx context.Context, before time.Time) ([]uint, error) {
	var userIDs []uint
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.CartItem{}).
			Where("updated_at < ?", before).
			Distinct().
			Pluck("user_id", &userIDs).Error; err != nil {
			return err
		}
		if len(userIDs) == 0 {
			return nil
		}

		result := tx.Where("updated_at < ? AND user_id IN ?", before, userIDs).Delete(&model.CartItem{})
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		logger.Error("Failed to delete stale cart items", err, map[string]interface{}{
			"before": before,
		})
		return nil, err
	}

	logger.Info("Stale cart items deleted", map[string]interface{}{
		"before":        before,
		"rows_affected": deleted,
		"users":         len(userIDs),
	})
	return userIDs, nil
}
