package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const testUser Identity = 1

func setupCartTest(t *testing.T) (*Cart, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	store.addProduct("prod-1", 10, true)
	store.addProduct("prod-2", 5, true)
	store.addProduct("prod-sold", 300, false)

	c := New(testUser, store)
	_, err := c.Load(context.Background())
	require.NoError(t, err)
	return c, store
}

func quantities(s Snapshot) map[string]int {
	out := make(map[string]int, len(s.Items))
	for _, item := range s.Items {
		out[item.ProductID] = item.Quantity
	}
	return out
}

func assertTotalsDerived(t *testing.T, s Snapshot) {
	t.Helper()
	items := 0
	price := decimal.Zero
	for _, item := range s.Items {
		items += item.Quantity
		price = price.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	assert.Equal(t, items, s.TotalItems)
	assert.True(t, price.Equal(s.TotalPrice), "total price %s, want %s", s.TotalPrice, price)
}

func TestCart_New_StartsLoading(t *testing.T) {
	c := New(testUser, newFakeStore())

	snap := c.Snapshot()
	assert.True(t, snap.Loading)
	assert.Empty(t, snap.Items)
	assert.Equal(t, 0, snap.TotalItems)
	assert.True(t, snap.TotalPrice.IsZero())
}

func TestCart_Load(t *testing.T) {
	store := newFakeStore()
	store.addProduct("prod-1", 10, true)
	store.seedRow(uint(testUser), "prod-1", 2)

	c := New(testUser, store)
	snap, err := c.Load(context.Background())
	require.NoError(t, err)

	assert.False(t, snap.Loading)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "prod-1", snap.Items[0].ProductID)
	assert.Equal(t, "Artwork prod-1", snap.Items[0].Product.Title)
	assert.Equal(t, 2, snap.TotalItems)
}

func TestCart_Load_FailureFallsBackToEmpty(t *testing.T) {
	c, store := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 1)
	require.NoError(t, err)

	store.failWith("SelectCartItems", errors.New("connection refused"))
	snap, err := c.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteFailure)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Items)
	assert.Equal(t, 0, snap.TotalItems)
}

func TestCart_Load_DropsInvalidRows(t *testing.T) {
	store := newFakeStore()
	store.addProduct("prod-1", 10, true)
	store.seedRow(uint(testUser), "prod-1", 1)
	store.seedRow(uint(testUser), "prod-1", 4)     // duplicate product
	store.seedRow(uint(testUser), "prod-ghost", 1) // no product row
	store.seedRow(uint(testUser), "prod-1", 0)

	c := New(testUser, store)
	snap, err := c.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Items, 1)
	assert.Equal(t, 1, snap.Items[0].Quantity)
}

func TestCart_Load_IdentityIsolation(t *testing.T) {
	store := newFakeStore()
	store.addProduct("prod-1", 10, true)
	store.addProduct("prod-2", 5, true)
	store.seedRow(1, "prod-1", 2)
	store.seedRow(2, "prod-2", 7)

	a := New(1, store)
	snapA, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"prod-1": 2}, quantities(snapA))

	b := New(2, store)
	_, err = b.ClearCart(context.Background())
	require.NoError(t, err)

	snapA, err = a.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"prod-1": 2}, quantities(snapA))
}

func TestCart_MissingIdentity(t *testing.T) {
	c := New(0, newFakeStore())

	_, err := c.Load(context.Background())
	assert.ErrorIs(t, err, ErrMissingIdentity)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.AddToCart(context.Background(), "prod-1", 1)
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, err = c.ClearCart(context.Background())
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestCart_AddToCart_EmptyCart(t *testing.T) {
	c, _ := setupCartTest(t)

	snap, err := c.AddToCart(context.Background(), "prod-1", 1)
	require.NoError(t, err)

	require.Len(t, snap.Items, 1)
	assert.Equal(t, "prod-1", snap.Items[0].ProductID)
	assert.Equal(t, 1, snap.Items[0].Quantity)
	assert.Equal(t, 1, snap.TotalItems)
	assert.NotEmpty(t, snap.Items[0].ID)
}

func TestCart_AddToCart_MergesExistingLine(t *testing.T) {
	c, store := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 2)
	require.NoError(t, err)

	snap, err := c.AddToCart(context.Background(), "prod-1", 1)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"prod-1": 3}, quantities(snap))
	assert.Len(t, store.remoteRows(uint(testUser)), 1)
	assert.Equal(t, 1, store.callCount("InsertCartItem"))
	assert.Equal(t, 1, store.callCount("UpdateCartItemQuantity"))
}

func TestCart_AddToCart_RepeatedAddsKeepOneLine(t *testing.T) {
	c, store := setupCartTest(t)

	added := 0
	for _, q := range []int{1, 3, 2, 5} {
		_, err := c.AddToCart(context.Background(), "prod-2", q)
		require.NoError(t, err)
		added += q
	}

	snap := c.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, added, snap.Items[0].Quantity)
	rows := store.remoteRows(uint(testUser))
	require.Len(t, rows, 1)
	assert.Equal(t, added, rows[0].Quantity)
}

func TestCart_AddToCart_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		quantity  int
		wantErr   error
	}{
		{name: "zero quantity", productID: "prod-1", quantity: 0, wantErr: ErrInvalidQuantity},
		{name: "negative quantity", productID: "prod-1", quantity: -2, wantErr: ErrInvalidQuantity},
		{name: "missing product id", productID: "", quantity: 1, wantErr: ErrMissingProductID},
		{name: "unknown product", productID: "prod-404", quantity: 1, wantErr: ErrProductNotFound},
		{name: "not for sale", productID: "prod-sold", quantity: 1, wantErr: ErrProductNotPurchasable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store := setupCartTest(t)

			snap, err := c.AddToCart(context.Background(), tt.productID, tt.quantity)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, KindValidation, KindOf(err))
			assert.Empty(t, snap.Items)
			assert.Equal(t, 0, store.callCount("InsertCartItem"))
		})
	}
}

func TestCart_AddToCart_RemoteFailureLeavesStateUnchanged(t *testing.T) {
	c, store := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 1)
	require.NoError(t, err)
	before := c.Snapshot()

	store.failWith("InsertCartItem", errors.New("permission denied"))
	snap, err := c.AddToCart(context.Background(), "prod-2", 1)
	assert.ErrorIs(t, err, ErrRemoteFailure)
	assert.NotErrorIs(t, err, ErrConsistency)
	assert.Equal(t, before.Items, snap.Items)

	store.failWith("UpdateCartItemQuantity", errors.New("timeout"))
	snap, err = c.AddToCart(context.Background(), "prod-1", 1)
	assert.ErrorIs(t, err, ErrRemoteFailure)
	assert.Equal(t, map[string]int{"prod-1": 1}, quantities(snap))
}

func TestCart_AddToCart_RemoteAlreadyHasRow(t *testing.T) {
	c, store := setupCartTest(t)
	store.seedRow(uint(testUser), "prod-1", 4) // written by another session

	snap, err := c.AddToCart(context.Background(), "prod-1", 1)
	assert.ErrorIs(t, err, ErrConsistency)
	assert.ErrorIs(t, err, ErrRemoteFailure)
	assert.Empty(t, snap.Items)

	snap, err = c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"prod-1": 4}, quantities(snap))
}

func TestCart_AddToCart_MaxQuantity(t *testing.T) {
	store := newFakeStore()
	store.addProduct("prod-1", 10, true)
	c := New(testUser, store, WithMaxQuantity(3))
	_, err := c.Load(context.Background())
	require.NoError(t, err)

	_, err = c.AddToCart(context.Background(), "prod-1", 2)
	require.NoError(t, err)

	snap, err := c.AddToCart(context.Background(), "prod-1", 2)
	assert.ErrorIs(t, err, ErrQuantityTooLarge)
	assert.Equal(t, map[string]int{"prod-1": 2}, quantities(snap))
}

func TestCart_UpdateQuantity(t *testing.T) {
	c, store := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 1)
	require.NoError(t, err)

	snap, err := c.UpdateQuantity(context.Background(), "prod-1", 4)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"prod-1": 4}, quantities(snap))
	assert.Equal(t, 4, store.remoteRows(uint(testUser))[0].Quantity)
}

func TestCart_UpdateQuantity_SameValueIsIdempotent(t *testing.T) {
	c, store := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 1)
	require.NoError(t, err)

	first, err := c.UpdateQuantity(context.Background(), "prod-1", 3)
	require.NoError(t, err)
	second, err := c.UpdateQuantity(context.Background(), "prod-1", 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.callCount("UpdateCartItemQuantity"))
}

func TestCart_UpdateQuantity_BelowOneRejected(t *testing.T) {
	for _, q := range []int{0, -1} {
		c, store := setupCartTest(t)
		_, err := c.AddToCart(context.Background(), "prod-1", 1)
		require.NoError(t, err)

		snap, err := c.UpdateQuantity(context.Background(), "prod-1", q)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Equal(t, map[string]int{"prod-1": 1}, quantities(snap))
		assert.Equal(t, 0, store.callCount("UpdateCartItemQuantity"))
	}
}

func TestCart_UpdateQuantity_MissingLine(t *testing.T) {
	c, _ := setupCartTest(t)

	_, err := c.UpdateQuantity(context.Background(), "prod-2", 2)
	assert.ErrorIs(t, err, ErrCartItemNotFound)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCart_UpdateQuantity_RowDeletedRemotely(t *testing.T) {
	c, store := setupCartTest(t)
	snap, err := c.AddToCart(context.Background(), "prod-1", 1)
	require.NoError(t, err)
	require.NoError(t, store.DeleteCartItem(context.Background(), snap.Items[0].ID))

	snap, err = c.UpdateQuantity(context.Background(), "prod-1", 2)
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Equal(t, KindConsistency, KindOf(err))
	assert.Equal(t, map[string]int{"prod-1": 1}, quantities(snap))
}

func TestCart_RemoveFromCart(t *testing.T) {
	c, store := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 2)
	require.NoError(t, err)
	_, err = c.AddToCart(context.Background(), "prod-2", 1)
	require.NoError(t, err)

	snap, err := c.RemoveFromCart(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"prod-2": 1}, quantities(snap))
	assert.Len(t, store.remoteRows(uint(testUser)), 1)

	again, err := c.RemoveFromCart(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, snap, again)
}

func TestCart_ReturnedSnapshotHasNothingPending(t *testing.T) {
	c, _ := setupCartTest(t)
	ctx := context.Background()

	snap, err := c.AddToCart(ctx, "prod-1", 1)
	require.NoError(t, err)
	assert.Empty(t, snap.Pending)
	assert.False(t, snap.IsPending("prod-1"))

	snap, err = c.AddToCart(ctx, "prod-1", 1)
	require.NoError(t, err)
	assert.Empty(t, snap.Pending)

	snap, err = c.UpdateQuantity(ctx, "prod-1", 3)
	require.NoError(t, err)
	assert.Empty(t, snap.Pending)

	snap, err = c.UpdateQuantity(ctx, "prod-1", 3)
	require.NoError(t, err)
	assert.Empty(t, snap.Pending)

	snap, err = c.RemoveFromCart(ctx, "prod-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Pending)

	snap, err = c.RemoveFromCart(ctx, "prod-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Pending)

	snap, err = c.AddToCart(ctx, "prod-sold", 1)
	assert.ErrorIs(t, err, ErrProductNotPurchasable)
	assert.Empty(t, snap.Pending)
}

func TestCart_RemoveFromCart_UnknownProductIsNoop(t *testing.T) {
	c, store := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 1)
	require.NoError(t, err)
	before := c.Snapshot()

	snap, err := c.RemoveFromCart(context.Background(), "prod-404")
	require.NoError(t, err)
	assert.Equal(t, before, snap)
	assert.Equal(t, 0, store.callCount("DeleteCartItem"))
}

func TestCart_RemoveFromCart_RemoteFailure(t *testing.T) {
	c, store := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 1)
	require.NoError(t, err)

	store.failWith("DeleteCartItem", errors.New("network unreachable"))
	snap, err := c.RemoveFromCart(context.Background(), "prod-1")
	assert.ErrorIs(t, err, ErrRemoteFailure)
	assert.Equal(t, map[string]int{"prod-1": 1}, quantities(snap))
}

func TestCart_ClearCart_Idempotent(t *testing.T) {
	c, store := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 2)
	require.NoError(t, err)
	_, err = c.AddToCart(context.Background(), "prod-2", 1)
	require.NoError(t, err)

	first, err := c.ClearCart(context.Background())
	require.NoError(t, err)
	second, err := c.ClearCart(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Empty(t, second.Items)
	assert.False(t, second.Loading)
	assert.Empty(t, store.remoteRows(uint(testUser)))
}

func TestCart_ClearCart_RemoteFailure(t *testing.T) {
	c, store := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 2)
	require.NoError(t, err)

	store.failWith("DeleteAllCartItems", errors.New("connection reset"))
	snap, err := c.ClearCart(context.Background())
	assert.ErrorIs(t, err, ErrRemoteFailure)
	assert.False(t, snap.Loading)
	assert.Equal(t, map[string]int{"prod-1": 2}, quantities(snap))
}

func TestCart_TotalPrice(t *testing.T) {
	c, _ := setupCartTest(t)
	_, err := c.AddToCart(context.Background(), "prod-1", 2)
	require.NoError(t, err)
	snap, err := c.AddToCart(context.Background(), "prod-2", 1)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(25).Equal(snap.TotalPrice))
	assert.Equal(t, 3, snap.TotalItems)
}

func TestCart_TotalsDerivedAfterEveryMutation(t *testing.T) {
	c, _ := setupCartTest(t)
	ctx := context.Background()

	steps := []func() (Snapshot, error){
		func() (Snapshot, error) { return c.AddToCart(ctx, "prod-1", 2) },
		func() (Snapshot, error) { return c.AddToCart(ctx, "prod-2", 3) },
		func() (Snapshot, error) { return c.UpdateQuantity(ctx, "prod-1", 5) },
		func() (Snapshot, error) { return c.AddToCart(ctx, "prod-1", 1) },
		func() (Snapshot, error) { return c.UpdateQuantity(ctx, "prod-2", 0) },
		func() (Snapshot, error) { return c.RemoveFromCart(ctx, "prod-2") },
		func() (Snapshot, error) { return c.Load(ctx) },
		func() (Snapshot, error) { return c.ClearCart(ctx) },
	}

	for _, step := range steps {
		snap, _ := step()
		assertTotalsDerived(t, snap)
		assertTotalsDerived(t, c.Snapshot())
	}
}

func TestCart_ConcurrentAddsOnSameProduct(t *testing.T) {
	c, store := setupCartTest(t)

	const n = 50
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := c.AddToCart(ctx, "prod-1", 1)
			return err
		})
	}
	require.NoError(t, g.Wait())

	snap := c.Snapshot()
	assert.Equal(t, map[string]int{"prod-1": n}, quantities(snap))
	assert.Empty(t, snap.Pending)
	rows := store.remoteRows(uint(testUser))
	require.Len(t, rows, 1)
	assert.Equal(t, n, rows[0].Quantity)
	assert.Zero(t, c.locks.size())
}

func TestCart_ConcurrentMixedOperations(t *testing.T) {
	c, store := setupCartTest(t)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := c.AddToCart(ctx, "prod-1", 1)
			return err
		})
		g.Go(func() error {
			_, err := c.AddToCart(ctx, "prod-2", 2)
			return err
		})
		g.Go(func() error {
			c.Snapshot()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	snap := c.Snapshot()
	assert.Equal(t, map[string]int{"prod-1": 20, "prod-2": 40}, quantities(snap))
	assert.Len(t, store.remoteRows(uint(testUser)), 2)
	assertTotalsDerived(t, snap)
}

func TestCart_CancelledWhileWaitingForProduct(t *testing.T) {
	c, _ := setupCartTest(t)

	// hold the product lock as an in-flight operation would
	done, err := c.begin(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.True(t, c.Snapshot().IsPending("prod-1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.AddToCart(ctx, "prod-1", 1)
	assert.ErrorIs(t, err, context.Canceled)

	done()
	snap := c.Snapshot()
	assert.Empty(t, snap.Pending)
	assert.Empty(t, snap.Items)
}
