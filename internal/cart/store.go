package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/fakestore/internal/domain"
	"github.com/fjod/go_cart/fakestore/internal/kv"
	"github.com/fjod/go_cart/fakestore/internal/metrics"
	"github.com/fjod/go_cart/fakestore/pkg/logger"
	"github.com/shopspring/decimal"
)

// DefaultKey is the key the cart is persisted under.
const DefaultKey = "cart"

// Store owns one shopping cart. It hydrates from the key-value store on first
// use, and every mutation writes the whole cart back before returning. A
// mutation is applied to a copy and only committed to memory once the write
// succeeded, so memory and store never disagree.
type Store struct {
	mu       sync.Mutex
	kv       kv.Store
	key      string
	log      *logger.Logger
	metrics  *metrics.Metrics
	cart     domain.Cart
	hydrated bool
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func NewStore(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:  store,
		key: DefaultKey,
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the cart, hydrating it from the store on the first call. An
// absent or malformed stored value yields an empty cart. Load never fails; if
// the store itself is unreachable the empty cart is returned and hydration is
// retried on the next call.
func (s *Store) Load(ctx context.Context) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.hydrate(ctx); err != nil {
		s.log.Warn(ctx, "cart store unreachable, serving empty cart", err)
		return domain.Cart{}
	}
	return s.cart.Clone()
}

// Read is Load for callers that must tell an empty cart from an unreachable
// store. Only backend read errors are returned; malformed values still yield an
// empty cart.
func (s *Store) Read(ctx context.Context) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.hydrate(ctx); err != nil {
		return domain.Cart{}, err
	}
	return s.cart.Clone(), nil
}

// Reload drops the in-memory cart and hydrates again from the store.
func (s *Store) Reload(ctx context.Context) domain.Cart {
	s.mu.Lock()
	s.hydrated = false
	s.cart = domain.Cart{}
	s.mu.Unlock()

	return s.Load(ctx)
}

// hydrate must be called with mu held. It only returns an error when the
// backend could not be read at all.
func (s *Store) hydrate(ctx context.Context) error {
	if s.hydrated {
		return nil
	}

	raw, err := s.kv.Get(ctx, s.key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		s.cart = domain.Cart{}
	case err != nil:
		return fmt.Errorf("read cart: %w", err)
	default:
		c, errDecode := decode(raw)
		if errDecode != nil {
			readErr := &StorageReadError{Key: s.key, Err: errDecode}
			s.log.Warn(ctx, "discarding malformed cart", readErr)
			s.metrics.CartLoadFallback()
			c = domain.Cart{}
		}
		s.cart = c
	}

	s.hydrated = true
	return nil
}

// mutate applies fn to a copy of the cart. When fn reports a change the copy
// is persisted and then committed.
func (s *Store) mutate(ctx context.Context, op string, fn func(c *domain.Cart) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.hydrate(ctx); err != nil {
		s.metrics.CartMutation(op, err)
		return err
	}

	next := s.cart.Clone()
	if !fn(&next) {
		return nil
	}

	err := s.persist(ctx, next)
	s.metrics.CartMutation(op, err)
	if err != nil {
		return err
	}
	s.cart = next
	return nil
}

func (s *Store) persist(ctx context.Context, c domain.Cart) error {
	raw, err := encode(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	return nil
}

// AddProduct merges product into the cart and returns the line's new
// quantity. A quantity below 1 counts as 1. The product is stored as given;
// prices are not refreshed later.
func (s *Store) AddProduct(ctx context.Context, product domain.Product, quantity int) (int, error) {
	if quantity < 1 {
		quantity = 1
	}

	var newQty int
	err := s.mutate(ctx, "add", func(c *domain.Cart) bool {
		if i := c.Find(product.ID); i >= 0 {
			c.Lines[i].Quantity += quantity
			newQty = c.Lines[i].Quantity
			return true
		}
		c.Lines = append(c.Lines, domain.CartLine{Product: product, Quantity: quantity})
		newQty = quantity
		return true
	})
	if err != nil {
		return 0, err
	}
	return newQty, nil
}

// IncrementLine adds one to the line for productID. Absent ids are ignored.
func (s *Store) IncrementLine(ctx context.Context, productID int64) error {
	return s.mutate(ctx, "increment", func(c *domain.Cart) bool {
		i := c.Find(productID)
		if i < 0 {
			return false
		}
		c.Lines[i].Quantity++
		return true
	})
}

// DecrementLine removes one from the line for productID; a line at quantity 1
// is removed. Absent ids are ignored.
func (s *Store) DecrementLine(ctx context.Context, productID int64) error {
	return s.mutate(ctx, "decrement", func(c *domain.Cart) bool {
		i := c.Find(productID)
		if i < 0 {
			return false
		}
		if c.Lines[i].Quantity <= 1 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
		c.Lines[i].Quantity--
		return true
	})
}

// RemoveLine drops the line for productID. Absent ids are ignored.
func (s *Store) RemoveLine(ctx context.Context, productID int64) error {
	return s.mutate(ctx, "remove", func(c *domain.Cart) bool {
		i := c.Find(productID)
		if i < 0 {
			return false
		}
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return true
	})
}

// Clear empties the cart and persists an empty list. The key is kept, so a
// later Load reads an empty cart instead of finding nothing.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, "clear", func(c *domain.Cart) bool {
		c.Lines = nil
		return true
	})
}

// TotalAmount is the sum of price x quantity over the in-memory lines.
func (s *Store) TotalAmount() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalAmount()
}

func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalItemCount()
}

// Quantity returns the quantity held for productID, 0 when absent.
func (s *Store) Quantity(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.cart.Find(productID); i >= 0 {
		return s.cart.Lines[i].Quantity
	}
	return 0
}

// Snapshot returns a copy of the in-memory cart without touching the store.
func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Lines returns a copy of the in-memory lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	return s.Snapshot().Lines
}
