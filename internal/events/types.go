package events

import "github.com/angelmondragon/storefront/pkg/enums"

// CartChanged is published after every cart mutation.
type CartChanged struct {
	ItemCount int
	LineCount int
	Cleared   bool
}

// CartItemAdded drives the add-to-cart feedback.
type CartItemAdded struct {
	ProductID string
	Name      string
	Quantity  int
}

// CartDrawerToggled reports the cart drawer being opened or closed.
type CartDrawerToggled struct {
	Open bool
}

// Notification is a shopper-facing toast.
type Notification struct {
	Level   enums.NotificationLevel
	Message string
}
