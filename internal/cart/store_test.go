package cart

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/fjod/go_cart/fakestore/internal/domain"
	"github.com/fjod/go_cart/fakestore/internal/kv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore wraps a MemoryStore and fails writes or reads on demand.
type flakyStore struct {
	m        sync.RWMutex
	inner    *kv.MemoryStore
	setErr   error
	getErr   error
	setCalls int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{inner: kv.NewMemoryStore()}
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, error) {
	f.m.RLock()
	defer f.m.RUnlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	f.m.Lock()
	defer f.m.Unlock()
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	return f.inner.Set(ctx, key, value)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	return f.inner.Delete(ctx, key)
}

func (f *flakyStore) Close() error { return nil }

func (f *flakyStore) calls() int {
	f.m.RLock()
	defer f.m.RUnlock()
	return f.setCalls
}

func product(id int64, price float64) domain.Product {
	return domain.Product{
		ID:       id,
		Title:    "product",
		Category: "misc",
		Price:    price,
		Image:    "https://fakestoreapi.com/img/1.jpg",
	}
}

func expectedTotal(lines []domain.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(decimal.NewFromFloat(l.Product.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func TestLoad_Absent_ReturnsEmptyCart(t *testing.T) {
	s := NewStore(kv.NewMemoryStore())

	c := s.Load(context.Background())
	assert.Empty(t, c.Lines)
	assert.Equal(t, 0, s.TotalItemCount())
	assert.True(t, s.TotalAmount().IsZero())
}

func TestLoad_Malformed_ReturnsEmptyCart(t *testing.T) {
	cases := map[string]string{
		"not json":      "{{{",
		"object":        `{"id":1,"quantity":2}`,
		"string price":  `[{"id":1,"price":"9.99","quantity":1}]`,
		"missing id":    `[{"title":"x","price":1,"quantity":1}]`,
		"truncated":     `[{"id":1,"price":9.99,"quan`,
		"null element":  `[null]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			store := kv.NewMemoryStore()
			require.NoError(t, store.Set(context.Background(), DefaultKey, raw))

			s := NewStore(store)
			var c domain.Cart
			require.NotPanics(t, func() { c = s.Load(context.Background()) })
			assert.Empty(t, c.Lines)
		})
	}
}

func TestLoad_MalformedThenMutate_OverwritesStoredValue(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, DefaultKey, "garbage"))

	s := NewStore(store)
	_, err := s.AddProduct(ctx, product(1, 2.5), 1)
	require.NoError(t, err)

	raw, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"title":"product","description":"","category":"misc","price":2.5,"image":"https://fakestoreapi.com/img/1.jpg","quantity":1}]`, raw)
}

func TestLoad_NormalizesStoredLines(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	raw := `[{"id":1,"price":1,"quantity":2},{"id":2,"price":3,"quantity":0},{"id":1,"price":1,"quantity":1}]`
	require.NoError(t, store.Set(ctx, DefaultKey, raw))

	c := NewStore(store).Load(ctx)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(1), c.Lines[0].Product.ID)
	assert.Equal(t, 3, c.Lines[0].Quantity)
}

func TestLoad_HydratesOnce(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := NewStore(store)
	s.Load(ctx)

	// an external write is not seen until Reload
	require.NoError(t, store.Set(ctx, DefaultKey, `[{"id":4,"price":1,"quantity":1}]`))
	assert.Empty(t, s.Load(ctx).Lines)
	assert.Len(t, s.Reload(ctx).Lines, 1)
}

func TestLoad_BackendDown_RetriesLater(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	require.NoError(t, store.inner.Set(ctx, DefaultKey, `[{"id":4,"price":1,"quantity":2}]`))
	store.getErr = errors.New("connection refused")

	s := NewStore(store)
	assert.Empty(t, s.Load(ctx).Lines)

	// mutations refuse to overwrite a cart they could not read
	_, err := s.AddProduct(ctx, product(9, 1), 1)
	require.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 0, store.calls())

	store.getErr = nil
	c := s.Load(ctx)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Lines[0].Quantity)
}

func TestRead_ReportsBackendDown(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	require.NoError(t, store.inner.Set(ctx, DefaultKey, `[{"id":4,"price":1,"quantity":2}]`))
	store.getErr = errors.New("connection refused")

	s := NewStore(store)
	_, err := s.Read(ctx)
	require.ErrorContains(t, err, "connection refused")

	store.getErr = nil
	c, err := s.Read(ctx)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Lines[0].Quantity)
}

func TestRead_MalformedIsNotAnError(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, DefaultKey, "{{{"))

	c, err := NewStore(store).Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}

func TestAddProduct_SameIDMerges(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())

	quantities := []int{1, 3, 2, 5}
	sum := 0
	for _, q := range quantities {
		sum += q
		got, err := s.AddProduct(ctx, product(7, 1.25), q)
		require.NoError(t, err)
		assert.Equal(t, sum, got)
	}

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, sum, lines[0].Quantity)
	assert.Equal(t, sum, s.Quantity(7))
}

func TestAddProduct_TwiceAtNineNinetyNine(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())

	_, err := s.AddProduct(ctx, product(1, 9.99), 1)
	require.NoError(t, err)
	qty, err := s.AddProduct(ctx, product(1, 9.99), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, qty)
	assert.Len(t, s.Lines(), 1)
	assert.True(t, decimal.RequireFromString("19.98").Equal(s.TotalAmount()), "got %s", s.TotalAmount())
	assert.Equal(t, 2, s.TotalItemCount())
}

func TestAddProduct_NonPositiveQuantityClampedToOne(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())

	qty, err := s.AddProduct(ctx, product(2, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, qty)

	qty, err = s.AddProduct(ctx, product(2, 1), -4)
	require.NoError(t, err)
	assert.Equal(t, 2, qty)
}

func TestAddProduct_KeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())

	for _, id := range []int64{3, 1, 2, 1} {
		_, err := s.AddProduct(ctx, product(id, 1), 1)
		require.NoError(t, err)
	}

	lines := s.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, int64(3), lines[0].Product.ID)
	assert.Equal(t, int64(1), lines[1].Product.ID)
	assert.Equal(t, int64(2), lines[2].Product.ID)
}

func TestAddProduct_SnapshotNotRefreshed(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())

	_, err := s.AddProduct(ctx, product(1, 10), 1)
	require.NoError(t, err)
	_, err = s.AddProduct(ctx, product(1, 99), 1)
	require.NoError(t, err)

	assert.Equal(t, 10.0, s.Lines()[0].Product.Price)
	assert.True(t, decimal.NewFromInt(20).Equal(s.TotalAmount()))
}

func TestDecrementLine(t *testing.T) {
	ctx := context.Background()

	t.Run("quantity one removes the line", func(t *testing.T) {
		s := NewStore(kv.NewMemoryStore())
		_, err := s.AddProduct(ctx, product(5, 3), 1)
		require.NoError(t, err)

		require.NoError(t, s.DecrementLine(ctx, 5))
		assert.Empty(t, s.Lines())
		assert.Equal(t, 0, s.TotalItemCount())
	})

	t.Run("quantity n keeps the line at n-1", func(t *testing.T) {
		s := NewStore(kv.NewMemoryStore())
		_, err := s.AddProduct(ctx, product(5, 3), 4)
		require.NoError(t, err)

		require.NoError(t, s.DecrementLine(ctx, 5))
		require.Len(t, s.Lines(), 1)
		assert.Equal(t, 3, s.Quantity(5))
	})

	t.Run("absent id is a no-op", func(t *testing.T) {
		store := newFlakyStore()
		s := NewStore(store)
		require.NoError(t, s.DecrementLine(ctx, 42))
		assert.Equal(t, 0, store.calls())
	})
}

func TestIncrementLine(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	s := NewStore(store)

	require.NoError(t, s.IncrementLine(ctx, 1))
	assert.Empty(t, s.Lines())
	assert.Equal(t, 0, store.calls())

	_, err := s.AddProduct(ctx, product(1, 2), 1)
	require.NoError(t, err)
	require.NoError(t, s.IncrementLine(ctx, 1))
	assert.Equal(t, 2, s.Quantity(1))
	assert.Equal(t, 2, store.calls())
}

func TestRemoveLine(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemoryStore())

	_, err := s.AddProduct(ctx, product(1, 2), 2)
	require.NoError(t, err)
	_, err = s.AddProduct(ctx, product(2, 5), 1)
	require.NoError(t, err)
	before := s.TotalAmount()

	require.NoError(t, s.RemoveLine(ctx, 99))
	assert.True(t, before.Equal(s.TotalAmount()))
	assert.Len(t, s.Lines(), 2)

	require.NoError(t, s.RemoveLine(ctx, 1))
	require.Len(t, s.Lines(), 1)
	assert.Equal(t, int64(2), s.Lines()[0].Product.ID)
	assert.True(t, decimal.NewFromInt(5).Equal(s.TotalAmount()))
}

func TestClear_PersistsEmptyList(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := NewStore(store)

	_, err := s.AddProduct(ctx, product(1, 2), 2)
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx))

	raw, err := store.Get(ctx, DefaultKey)
	require.NoError(t, err, "clear keeps the key")
	assert.Equal(t, "[]", raw)

	fresh := NewStore(store)
	assert.Empty(t, fresh.Load(ctx).Lines)
	assert.Empty(t, s.Lines())
}

func TestLoad_ProductWithZeroIDSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := NewStore(store)

	_, err := s.AddProduct(ctx, product(0, 4.5), 1)
	require.NoError(t, err)
	_, err = s.AddProduct(ctx, product(3, 1.25), 2)
	require.NoError(t, err)

	reloaded := NewStore(store).Load(ctx)
	assert.Equal(t, s.Lines(), reloaded.Lines)
	assert.Equal(t, 3, reloaded.TotalItemCount())
}

func TestReload_PicksUpExternalWrite(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := NewStore(store)

	_, err := s.AddProduct(ctx, product(1, 2), 1)
	require.NoError(t, err)

	other := NewStore(store)
	_, err = other.AddProduct(ctx, product(1, 2), 4)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Quantity(1), "in-memory cart is not re-read")
	c := s.Reload(ctx)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Lines[0].Quantity)
}

func TestWriteFailure_LeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	s := NewStore(store)

	_, err := s.AddProduct(ctx, product(1, 4), 1)
	require.NoError(t, err)

	store.setErr = errors.New("disk full")
	qty, err := s.AddProduct(ctx, product(1, 4), 1)
	require.ErrorContains(t, err, "write cart")
	assert.Equal(t, 0, qty)
	assert.Equal(t, 1, s.Quantity(1))

	require.Error(t, s.Clear(ctx))
	assert.Len(t, s.Lines(), 1)

	store.setErr = nil
	reread := NewStore(store).Load(ctx)
	require.Len(t, reread.Lines, 1)
	assert.Equal(t, 1, reread.Lines[0].Quantity)
}

func TestWithKey(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	s := NewStore(store, WithKey("guest-cart"))

	_, err := s.AddProduct(ctx, product(1, 1), 1)
	require.NoError(t, err)

	_, err = store.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = store.Get(ctx, "guest-cart")
	assert.NoError(t, err)
}

// Random mutation sequences: totals are recomputed from lines after every
// step and a second store reading the same backend sees the same cart.
func TestRandomMutations_TotalsAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	prices := []float64{0, 0.1, 0.2, 9.99, 19.95, 109.95, 7.3}

	for run := 0; run < 20; run++ {
		store := kv.NewMemoryStore()
		s := NewStore(store)

		for step := 0; step < 60; step++ {
			id := int64(rng.Intn(6) + 1)
			var err error
			switch rng.Intn(6) {
			case 0, 1:
				_, err = s.AddProduct(ctx, product(id, prices[int(id)]), rng.Intn(4))
			case 2:
				err = s.IncrementLine(ctx, id)
			case 3:
				err = s.DecrementLine(ctx, id)
			case 4:
				err = s.RemoveLine(ctx, id)
			case 5:
				if rng.Intn(10) == 0 {
					err = s.Clear(ctx)
				}
			}
			require.NoError(t, err)

			lines := s.Lines()
			seen := map[int64]bool{}
			count := 0
			for _, l := range lines {
				assert.GreaterOrEqual(t, l.Quantity, 1)
				assert.False(t, seen[l.Product.ID], "duplicate line for %d", l.Product.ID)
				seen[l.Product.ID] = true
				count += l.Quantity
			}
			assert.True(t, expectedTotal(lines).Equal(s.TotalAmount()))
			assert.Equal(t, count, s.TotalItemCount())
		}

		reloaded := NewStore(store).Load(ctx)
		assert.Equal(t, s.Lines(), reloaded.Lines)
	}
}
