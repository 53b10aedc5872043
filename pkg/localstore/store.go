// Package localstore is the shopper's durable key/value side channel. It plays
// the role browser local storage plays for a web storefront.
package localstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has never been written or was removed.
var ErrNotFound = errors.New("localstore: key not found")

// Store is a string-valued key/value store.
type Store interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}
