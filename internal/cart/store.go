package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/events"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Store holds the shopper's cart lines in insertion order, at most one line
// per product id. Every mutation is persisted and announced on the bus.
type Store struct {
	mu        sync.Mutex
	items     []Item
	persister Persister
	bus       *events.Bus
	logg      *logger.Logger

	// strict stores refuse to diverge from the backing document: a failed
	// save rolls the mutation back and is reported through Err.
	strict     bool
	persistErr error
}

// NewStore rehydrates the cart once. Unreadable or incompatible documents
// yield an empty cart.
func NewStore(ctx context.Context, persister Persister, bus *events.Bus, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{persister: persister, bus: bus, logg: logg}
	if persister == nil {
		return s
	}
	items, err := persister.Load(ctx)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "cart document unreadable, starting empty")
		return s
	}
	s.items = sanitize(items)
	if len(s.items) != len(items) {
		logg.Warn(logg.WithField(ctx, "dropped_lines", len(items)-len(s.items)), "cart document had incompatible lines")
	}
	return s
}

// LoadStrict opens a cart shared through a server-side backend. Read
// failures are returned instead of starting empty so the stored cart is never
// overwritten on a transient error. Only an undecodable document starts empty.
func LoadStrict(ctx context.Context, persister Persister, logg *logger.Logger) (*Store, error) {
	if persister == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "cart storage is not configured")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{persister: persister, logg: logg, strict: true}
	items, err := persister.Load(ctx)
	switch {
	case errors.Is(err, ErrCorruptDocument):
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "cart document unreadable, starting empty")
		return s, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	s.items = sanitize(items)
	return s, nil
}

// Err returns the save error of the last mutation on a strict store.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// sanitize drops lines without a product id and merges duplicate ids.
func sanitize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.Product.ID == "" {
			continue
		}
		if i, ok := index[item.Product.ID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.Product.ID] = len(out)
		out = append(out, item)
	}
	return out
}

// Add appends the product or sums the quantity into its existing line.
func (s *Store) Add(ctx context.Context, product ProductSnapshot, qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be a positive integer, got %d", qty))
	}
	if product.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	s.mu.Lock()
	previous := cloneItems(s.items)
	found := false
	for i := range s.items {
		if s.items[i].Product.ID == product.ID {
			s.items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		s.items = append(s.items, Item{Product: product, Quantity: qty})
	}
	changed, err := s.commitLocked(ctx, previous)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(ctx, changed)
	if s.bus != nil {
		s.bus.CartItemAdded.Publish(ctx, events.CartItemAdded{ProductID: product.ID, Name: product.Name, Quantity: qty})
	}
	return nil
}

// Remove drops the line for productID. Absent ids are a no-op.
func (s *Store) Remove(ctx context.Context, productID string) {
	s.mu.Lock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	previous := cloneItems(s.items)
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	changed, err := s.commitLocked(ctx, previous)
	s.mu.Unlock()

	if err == nil {
		s.publish(ctx, changed)
	}
}

// UpdateQty sets an absolute quantity. Callers clamp the value.
func (s *Store) UpdateQty(ctx context.Context, productID string, qty int) {
	s.mu.Lock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	previous := cloneItems(s.items)
	s.items[idx].Quantity = qty
	changed, err := s.commitLocked(ctx, previous)
	s.mu.Unlock()

	if err == nil {
		s.publish(ctx, changed)
	}
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	previous := s.items
	s.items = nil
	changed, err := s.commitLocked(ctx, previous)
	changed.Cleared = true
	s.mu.Unlock()

	if err == nil {
		s.publish(ctx, changed)
	}
}

// Items returns a copy of the cart lines.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Get returns the line for productID.
func (s *Store) Get(productID string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(productID)
	if idx < 0 {
		return Item{}, false
	}
	return cloneItems(s.items[idx : idx+1])[0], true
}

// Count is the total number of units across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countLocked(s.items)
}

// Subtotal sums price times quantity over every line.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s *Store) indexLocked(productID string) int {
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

func countLocked(items []Item) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// commitLocked persists the current lines. On a default store save failures
// are logged and the in-memory change stays; a strict store restores
// previous and returns the error.
func (s *Store) commitLocked(ctx context.Context, previous []Item) (events.CartChanged, error) {
	s.persistErr = nil
	if s.persister != nil {
		if err := s.persister.Save(ctx, cloneItems(s.items)); err != nil {
			if s.strict {
				s.items = previous
				s.persistErr = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
				return events.CartChanged{}, s.persistErr
			}
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart persist failed")
		}
	}
	return events.CartChanged{ItemCount: countLocked(s.items), LineCount: len(s.items)}, nil
}

func (s *Store) publish(ctx context.Context, changed events.CartChanged) {
	if s.bus == nil {
		return
	}
	s.bus.CartChanged.Publish(ctx, changed)
}

// ToggleDrawer announces the cart drawer being opened or closed.
func (s *Store) ToggleDrawer(ctx context.Context, open bool) {
	if s.bus == nil {
		return
	}
	s.bus.CartDrawerToggled.Publish(ctx, events.CartDrawerToggled{Open: open})
}
