package cart

import (
	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// Identity is the signed-in user a cart belongs to. Zero means nobody.
type Identity uint

// ProductSnapshot holds the product display fields copied into a line item
// when it is read. Later product edits are not reflected until the next Load.
type ProductSnapshot struct {
	Title    string          `json:"title"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	ImageURL *string         `json:"image_url"`
}

type LineItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Product.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Snapshot is a read-only copy of a cart. Totals are derived from Items
// when the snapshot is built and never stored on the container.
type Snapshot struct {
	Identity   Identity        `json:"-"`
	Items      []LineItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Loading    bool            `json:"loading"`
	Pending    []string        `json:"pending"`
}

func newSnapshot(identity Identity, items []LineItem, loading bool, pending []string) Snapshot {
	snap := Snapshot{
		Identity:   identity,
		Items:      items,
		TotalPrice: decimal.Zero,
		Loading:    loading,
		Pending:    pending,
	}
	for _, item := range items {
		snap.TotalItems += item.Quantity
		snap.TotalPrice = snap.TotalPrice.Add(item.Subtotal())
	}
	return snap
}

// Item returns the line for productID, if any
func (s Snapshot) Item(productID string) (LineItem, bool) {
	for _, item := range s.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return LineItem{}, false
}

func (s Snapshot) IsPending(productID string) bool {
	for _, id := range s.Pending {
		if id == productID {
			return true
		}
	}
	return false
}

func snapshotFromProduct(p *model.Product) ProductSnapshot {
	return ProductSnapshot{
		Title:    p.Title,
		Category: string(p.Category),
		Price:    p.Price,
		ImageURL: p.ImageURL,
	}
}
