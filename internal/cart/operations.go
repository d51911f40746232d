package cart

import (
	"context"
	"errors"
)

// The exported operations snapshot only after the product lock is released,
// so a returned Snapshot never lists its own product as pending.

// AddToCart adds quantity units of a purchasable product. An existing line
// for the product is bumped through the same path as UpdateQuantity, so the
// cart never holds two lines for one product.
func (c *Cart) AddToCart(ctx context.Context, productID string, quantity int) (Snapshot, error) {
	err := c.addToCart(ctx, productID, quantity)
	return c.Snapshot(), err
}

func (c *Cart) addToCart(ctx context.Context, productID string, quantity int) error {
	const op = "add"
	c.touch()
	if err := c.checkTarget(op, productID); err != nil {
		return err
	}
	if quantity < 1 {
		return validationError(op, productID, ErrInvalidQuantity)
	}

	done, err := c.begin(ctx, productID)
	if err != nil {
		return err
	}
	defer done()

	product, err := c.store.SelectProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return validationError(op, productID, ErrProductNotFound)
		}
		return remoteFailure(op, productID, err)
	}
	if !product.OnSale {
		return validationError(op, productID, ErrProductNotPurchasable)
	}

	if existing, ok := c.lookup(productID); ok {
		return c.setQuantity(ctx, op, existing, existing.Quantity+quantity)
	}

	if err := c.checkLimit(op, productID, quantity); err != nil {
		return err
	}

	row, err := c.store.InsertCartItem(ctx, uint(c.identity), productID, quantity)
	if err != nil {
		if errors.Is(err, ErrRowExists) {
			return consistencyViolation(op, productID, err)
		}
		return remoteFailure(op, productID, err)
	}

	item := LineItem{
		ID:        row.ID,
		ProductID: productID,
		Quantity:  row.Quantity,
		Product:   snapshotFromProduct(product),
	}
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()

	return nil
}

// UpdateQuantity sets the quantity of an existing line. Values below 1 are
// rejected; removing a line goes through RemoveFromCart.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, newQuantity int) (Snapshot, error) {
	err := c.updateQuantity(ctx, productID, newQuantity)
	return c.Snapshot(), err
}

func (c *Cart) updateQuantity(ctx context.Context, productID string, newQuantity int) error {
	const op = "update"
	c.touch()
	if err := c.checkTarget(op, productID); err != nil {
		return err
	}
	if newQuantity < 1 {
		return validationError(op, productID, ErrInvalidQuantity)
	}

	done, err := c.begin(ctx, productID)
	if err != nil {
		return err
	}
	defer done()

	existing, ok := c.lookup(productID)
	if !ok {
		return validationError(op, productID, ErrCartItemNotFound)
	}
	return c.setQuantity(ctx, op, existing, newQuantity)
}

// setQuantity must run under the product's lock
func (c *Cart) setQuantity(ctx context.Context, op string, existing LineItem, quantity int) error {
	if quantity < 1 {
		return validationError(op, existing.ProductID, ErrInvalidQuantity)
	}
	if err := c.checkLimit(op, existing.ProductID, quantity); err != nil {
		return err
	}
	if quantity == existing.Quantity {
		return nil
	}

	row, err := c.store.UpdateCartItemQuantity(ctx, existing.ID, quantity)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return consistencyViolation(op, existing.ProductID, err)
		}
		return remoteFailure(op, existing.ProductID, err)
	}

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == existing.ID {
			c.items[i].Quantity = row.Quantity
			break
		}
	}
	c.mu.Unlock()

	return nil
}

// RemoveFromCart deletes the line for productID. Removing a product that is
// not in the cart succeeds without touching the remote store.
func (c *Cart) RemoveFromCart(ctx context.Context, productID string) (Snapshot, error) {
	err := c.removeFromCart(ctx, productID)
	return c.Snapshot(), err
}

func (c *Cart) removeFromCart(ctx context.Context, productID string) error {
	const op = "remove"
	c.touch()
	if err := c.checkTarget(op, productID); err != nil {
		return err
	}

	done, err := c.begin(ctx, productID)
	if err != nil {
		return err
	}
	defer done()

	existing, ok := c.lookup(productID)
	if !ok {
		return nil
	}

	if err := c.store.DeleteCartItem(ctx, existing.ID); err != nil && !errors.Is(err, ErrRowNotFound) {
		return remoteFailure(op, productID, err)
	}

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == existing.ID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	return nil
}

// ClearCart deletes every row of the identity, then empties the cart
func (c *Cart) ClearCart(ctx context.Context) (Snapshot, error) {
	const op = "clear"
	c.touch()
	if c.identity == 0 {
		return c.Snapshot(), validationError(op, "", ErrMissingIdentity)
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.setLoading(true)

	if err := c.store.DeleteAllCartItems(ctx, uint(c.identity)); err != nil {
		c.setLoading(false)
		return c.Snapshot(), remoteFailure(op, "", err)
	}

	c.mu.Lock()
	c.items = nil
	c.loading = false
	c.mu.Unlock()

	return c.Snapshot(), nil
}

func (c *Cart) checkTarget(op, productID string) error {
	if c.identity == 0 {
		return validationError(op, productID, ErrMissingIdentity)
	}
	if productID == "" {
		return validationError(op, productID, ErrMissingProductID)
	}
	return nil
}

func (c *Cart) checkLimit(op, productID string, quantity int) error {
	if c.maxQuantity > 0 && quantity > c.maxQuantity {
		return validationError(op, productID, ErrQuantityTooLarge)
	}
	return nil
}
