package service

import (
	"context"

	"github.com/ikkim/atelier-backend/internal/cart"
	"github.com/ikkim/atelier-backend/pkg/logger"
)

// CartService exposes the per-user cart containers to the HTTP layer.
// Every method returns the snapshot after the call, also on error.
type CartService interface {
	GetCart(ctx context.Context, userID uint) (cart.Snapshot, error)
	Reload(ctx context.Context, userID uint) (cart.Snapshot, error)
	AddToCart(ctx context.Context, userID uint, productID string, quantity int) (cart.Snapshot, error)
	UpdateQuantity(ctx context.Context, userID uint, productID string, quantity int) (cart.Snapshot, error)
	RemoveFromCart(ctx context.Context, userID uint, productID string) (cart.Snapshot, error)
	ClearCart(ctx context.Context, userID uint) (cart.Snapshot, error)
}

type cartService struct {
	registry *cart.Registry
}

func NewCartService(registry *cart.Registry) CartService {
	return &cartService{registry: registry}
}

func (s *cartService) container(ctx context.Context, userID uint) (*cart.Cart, cart.Snapshot, error) {
	c, err := s.registry.Cart(ctx, cart.Identity(userID))
	if err != nil {
		logger.Warn("Cart unavailable", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		if c == nil {
			return nil, cart.Snapshot{Identity: cart.Identity(userID)}, err
		}
		return nil, c.Snapshot(), err
	}
	return c, cart.Snapshot{}, nil
}

func (s *cartService) GetCart(ctx context.Context, userID uint) (cart.Snapshot, error) {
	c, snap, err := s.container(ctx, userID)
	if err != nil {
		return snap, err
	}
	snap = c.Snapshot()

	logger.Debug("User cart fetched", map[string]interface{}{
		"user_id":     userID,
		"lines":       len(snap.Items),
		"total_items": snap.TotalItems,
	})
	return snap, nil
}

func (s *cartService) Reload(ctx context.Context, userID uint) (cart.Snapshot, error) {
	c, snap, err := s.container(ctx, userID)
	if err != nil {
		return snap, err
	}

	snap, err = c.Load(ctx)
	if err != nil {
		logger.Error("Failed to reload cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return snap, err
	}

	logger.Info("Cart reloaded", map[string]interface{}{
		"user_id": userID,
		"lines":   len(snap.Items),
	})
	return snap, nil
}

func (s *cartService) AddToCart(ctx context.Context, userID uint, productID string, quantity int) (cart.Snapshot, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	c, snap, err := s.container(ctx, userID)
	if err != nil {
		return snap, err
	}

	snap, err = c.AddToCart(ctx, productID, quantity)
	s.logResult("add", userID, productID, snap, err)
	return snap, err
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID uint, productID string, quantity int) (cart.Snapshot, error) {
	logger.Info("Updating cart item quantity", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	c, snap, err := s.container(ctx, userID)
	if err != nil {
		return snap, err
	}

	snap, err = c.UpdateQuantity(ctx, productID, quantity)
	s.logResult("update", userID, productID, snap, err)
	return snap, err
}

func (s *cartService) RemoveFromCart(ctx context.Context, userID uint, productID string) (cart.Snapshot, error) {
	logger.Info("Removing item from cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	c, snap, err := s.container(ctx, userID)
	if err != nil {
		return snap, err
	}

	snap, err = c.RemoveFromCart(ctx, productID)
	s.logResult("remove", userID, productID, snap, err)
	return snap, err
}

func (s *cartService) ClearCart(ctx context.Context, userID uint) (cart.Snapshot, error) {
	logger.Info("Clearing cart", map[string]interface{}{
		"user_id": userID,
	})

	c, snap, err := s.container(ctx, userID)
	if err != nil {
		return snap, err
	}

	snap, err = c.ClearCart(ctx)
	s.logResult("clear", userID, "", snap, err)
	return snap, err
}

func (s *cartService) logResult(op string, userID uint, productID string, snap cart.Snapshot, err error) {
	fields := map[string]interface{}{
		"op":          op,
		"user_id":     userID,
		"product_id":  productID,
		"total_items": snap.TotalItems,
	}
	switch {
	case err == nil:
		logger.Info("Cart updated", fields)
	case cart.KindOf(err) == cart.KindValidation:
		fields["error"] = err.Error()
		logger.Warn("Cart operation rejected", fields)
	default:
		logger.Error("Cart operation failed", err, fields)
	}
}
