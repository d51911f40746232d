package cart

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/pkg/logger"
)

// Cart is the in-memory state of one identity's cart. It is safe for
// concurrent use; state changes only through Load and the operations in
// operations.go, and only after the remote store confirmed the write.
type Cart struct {
	identity    Identity
	store       RemoteStore
	maxQuantity int

	// opMu is held shared by per-product operations and exclusively by
	// Load and ClearCart, which touch every line.
	opMu  sync.RWMutex
	locks *productLocks

	mu      sync.RWMutex
	items   []LineItem
	loading bool
	pending map[string]int

	lastUsed atomic.Int64
}

type Option func(*Cart)

// WithMaxQuantity caps the quantity of a single line. Zero disables the cap.
func WithMaxQuantity(n int) Option {
	return func(c *Cart) {
		c.maxQuantity = n
	}
}

// New returns an empty cart in the loading state. Call Load to populate it.
func New(identity Identity, store RemoteStore, opts ...Option) *Cart {
	c := &Cart{
		identity: identity,
		store:    store,
		locks:    newProductLocks(),
		loading:  true,
		pending:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.touch()
	return c
}

func (c *Cart) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// LastUsed reports when the cart was last read or written
func (c *Cart) LastUsed() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

func (c *Cart) touch() {
	c.lastUsed.Store(time.Now().UnixNano())
}

// Snapshot returns a copy of the current state with derived totals
func (c *Cart) Snapshot() Snapshot {
	c.mu.RLock()
	items := make([]LineItem, len(c.items))
	copy(items, c.items)
	pending := make([]string, 0, len(c.pending))
	for productID := range c.pending {
		pending = append(pending, productID)
	}
	loading := c.loading
	c.mu.RUnlock()

	sort.Strings(pending)
	return newSnapshot(c.identity, items, loading, pending)
}

// Load replaces the items with what the remote store holds for the
// identity. On a read error the cart is reset to empty and the error is
// returned for reporting; loading is cleared either way.
func (c *Cart) Load(ctx context.Context) (Snapshot, error) {
	const op = "load"
	c.touch()
	if c.identity == 0 {
		return c.Snapshot(), validationError(op, "", ErrMissingIdentity)
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.setLoading(true)

	rows, err := c.store.SelectCartItems(ctx, uint(c.identity))
	if err != nil {
		c.mu.Lock()
		c.items = nil
		c.loading = false
		c.mu.Unlock()
		return c.Snapshot(), remoteFailure(op, "", err)
	}

	items := ingest(c.identity, rows)

	c.mu.Lock()
	c.items = items
	c.loading = false
	c.mu.Unlock()

	logger.Debug("Cart loaded from remote store", map[string]interface{}{
		"user_id": c.identity,
		"rows":    len(rows),
		"items":   len(items),
	})
	return c.Snapshot(), nil
}

// ingest validates rows read from the remote store. Rows that belong to
// another identity, carry no product, or break the quantity/price rules or
// the one-line-per-product rule are dropped.
func ingest(identity Identity, rows []model.CartItem) []LineItem {
	items := make([]LineItem, 0, len(rows))
	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		reason := ""
		switch {
		case Identity(row.UserID) != identity:
			reason = "foreign identity"
		case row.ProductID == "" || row.Product.ID != row.ProductID:
			reason = "missing product"
		case row.Quantity < 1:
			reason = "non-positive quantity"
		case row.Product.Price.IsNegative():
			reason = "negative price"
		case seen[row.ProductID]:
			reason = "duplicate product"
		}
		if reason != "" {
			logger.Warn("Dropping invalid cart row", map[string]interface{}{
				"user_id":      identity,
				"cart_item_id": row.ID,
				"product_id":   row.ProductID,
				"reason":       reason,
			})
			continue
		}

		seen[row.ProductID] = true
		items = append(items, LineItem{
			ID:        row.ID,
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
			Product:   snapshotFromProduct(&row.Product),
		})
	}
	return items
}

func (c *Cart) setLoading(loading bool) {
	c.mu.Lock()
	c.loading = loading
	c.mu.Unlock()
}

// begin serializes operations on one product. The returned func must be
// called once the operation finished.
func (c *Cart) begin(ctx context.Context, productID string) (func(), error) {
	c.markPending(productID, 1)
	c.opMu.RLock()
	if err := c.locks.acquire(ctx, productID); err != nil {
		c.opMu.RUnlock()
		c.markPending(productID, -1)
		return nil, err
	}
	return func() {
		c.locks.release(productID)
		c.opMu.RUnlock()
		c.markPending(productID, -1)
	}, nil
}

func (c *Cart) markPending(productID string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[productID] += delta
	if c.pending[productID] <= 0 {
		delete(c.pending, productID)
	}
}

// busy reports whether any operation is queued or running
func (c *Cart) busy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending) > 0 || c.loading
}

func (c *Cart) lookup(productID string) (LineItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return LineItem{}, false
}
