package localstore

import "context"

// ScopedStore prefixes every key so several shoppers can share one backing store.
type ScopedStore struct {
	store  Store
	prefix string
}

func NewScopedStore(store Store, prefix string) *ScopedStore {
	return &ScopedStore{store: store, prefix: prefix}
}

func (s *ScopedStore) GetItem(ctx context.Context, key string) (string, error) {
	return s.store.GetItem(ctx, s.prefix+key)
}

func (s *ScopedStore) SetItem(ctx context.Context, key, value string) error {
	return s.store.SetItem(ctx, s.prefix+key, value)
}

func (s *ScopedStore) RemoveItem(ctx context.Context, key string) error {
	return s.store.RemoveItem(ctx, s.prefix+key)
}
