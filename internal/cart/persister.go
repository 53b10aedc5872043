package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront/pkg/localstore"
)

// StorageKey is the fixed key holding the serialized cart document.
const StorageKey = "storefront_cart_v1"

// ErrCorruptDocument marks a stored cart that exists but cannot be decoded.
var ErrCorruptDocument = errors.New("corrupt cart document")

// Persister is the best-effort side channel for the cart. Load returns nil
// items when nothing is stored. The store logs and drops Save errors.
type Persister interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
}

// KeyValuePersister stores the cart as one JSON array under StorageKey.
type KeyValuePersister struct {
	store localstore.Store
	key   string
}

func NewKeyValuePersister(store localstore.Store) *KeyValuePersister {
	return &KeyValuePersister{store: store, key: StorageKey}
}

func (p *KeyValuePersister) Load(ctx context.Context) ([]Item, error) {
	raw, err := p.store.GetItem(ctx, p.key)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return items, nil
}

func (p *KeyValuePersister) Save(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart document: %w", err)
	}
	return p.store.SetItem(ctx, p.key, string(raw))
}
