package cart

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory RemoteStore with call counting and failure
// injection keyed by method name.
type fakeStore struct {
	mu       sync.Mutex
	products map[string]model.Product
	rows     map[string]model.CartItem
	order    []string
	nextID   int
	calls    map[string]int
	fail     map[string]error

	// selectGate, when set, holds SelectCartItems until it is closed
	selectGate    chan struct{}
	selectEntered chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[string]model.Product),
		rows:     make(map[string]model.CartItem),
		calls:    make(map[string]int),
		fail:     make(map[string]error),
	}
}

func (s *fakeStore) addProduct(id string, price int64, onSale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = model.Product{
		ID:       id,
		Title:    "Artwork " + id,
		Category: model.CategoryPainting,
		Price:    decimal.NewFromInt(price),
		OnSale:   onSale,
	}
}

// seedRow writes a row directly, bypassing the cart
func (s *fakeStore) seedRow(userID uint, productID string, quantity int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(userID, productID, quantity).ID
}

func (s *fakeStore) insertLocked(userID uint, productID string, quantity int) model.CartItem {
	s.nextID++
	row := model.CartItem{
		ID:        fmt.Sprintf("item-%d", s.nextID),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	s.rows[row.ID] = row
	s.order = append(s.order, row.ID)
	return row
}

func (s *fakeStore) failWith(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[method] = err
}

func (s *fakeStore) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *fakeStore) remoteRows(userID uint) []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CartItem
	for _, id := range s.order {
		if row, ok := s.rows[id]; ok && row.UserID == userID {
			out = append(out, row)
		}
	}
	return out
}

func (s *fakeStore) enter(method string) error {
	s.calls[method]++
	return s.fail[method]
}

func (s *fakeStore) withProduct(row model.CartItem) model.CartItem {
	row.Product = s.products[row.ProductID]
	return row
}

// holdSelect makes the next SelectCartItems calls wait. The returned channel
// receives once per call that reached the store; release lets them finish.
func (s *fakeStore) holdSelect() (entered <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.selectGate = gate
	s.selectEntered = make(chan struct{}, 16)
	var once sync.Once
	return s.selectEntered, func() {
		once.Do(func() {
			s.mu.Lock()
			s.selectGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

func (s *fakeStore) SelectCartItems(ctx context.Context, userID uint) ([]model.CartItem, error) {
	s.mu.Lock()
	gate, entered := s.selectGate, s.selectEntered
	s.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SelectCartItems"); err != nil {
		return nil, err
	}
	var out []model.CartItem
	for _, id := range s.order {
		row, ok := s.rows[id]
		if !ok || row.UserID != userID {
			continue
		}
		out = append(out, s.withProduct(row))
	}
	return out, nil
}

func (s *fakeStore) InsertCartItem(ctx context.Context, userID uint, productID string, quantity int) (*model.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertCartItem"); err != nil {
		return nil, err
	}
	for _, row := range s.rows {
		if row.UserID == userID && row.ProductID == productID {
			return nil, ErrRowExists
		}
	}
	row := s.withProduct(s.insertLocked(userID, productID, quantity))
	return &row, nil
}

func (s *fakeStore) UpdateCartItemQuantity(ctx context.Context, itemID string, quantity int) (*model.CartItem, error) {
	s.mu.Lock()
	if err := s.enter("UpdateCartItemQuantity"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	// let other goroutines run mid round trip
	runtime.Gosched()

	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[itemID]
	if !ok {
		return nil, ErrRowNotFound
	}
	row.Quantity = quantity
	s.rows[itemID] = row
	updated := s.withProduct(row)
	return &updated, nil
}

func (s *fakeStore) DeleteCartItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteCartItem"); err != nil {
		return err
	}
	delete(s.rows, itemID)
	return nil
}

func (s *fakeStore) DeleteAllCartItems(ctx context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DeleteAllCartItems"); err != nil {
		return err
	}
	for id, row := range s.rows {
		if row.UserID == userID {
			delete(s.rows, id)
		}
	}
	return nil
}

func (s *fakeStore) SelectProduct(ctx context.Context, productID string) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SelectProduct"); err != nil {
		return nil, err
	}
	p, ok := s.products[productID]
	if !ok {
		return nil, ErrRowNotFound
	}
	return &p, nil
}
