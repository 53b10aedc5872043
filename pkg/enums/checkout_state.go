package enums

import "fmt"

// CheckoutState tracks where a checkout session sits in the validate/commit protocol.
type CheckoutState string

const (
	CheckoutStateIdle                 CheckoutState = "idle"
	CheckoutStateValidating           CheckoutState = "validating"
	CheckoutStateAwaitingConfirmation CheckoutState = "awaiting_confirmation"
	CheckoutStateSubmitting           CheckoutState = "submitting"
	CheckoutStateCommitted            CheckoutState = "committed"
	CheckoutStateFailed               CheckoutState = "failed"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateIdle,
	CheckoutStateValidating,
	CheckoutStateAwaitingConfirmation,
	CheckoutStateSubmitting,
	CheckoutStateCommitted,
	CheckoutStateFailed,
}

// String implements fmt.Stringer.
func (s CheckoutState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutState.
func (s CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the session is tracking the cart.
func (s CheckoutState) IsOpen() bool {
	switch s {
	case CheckoutStateValidating, CheckoutStateAwaitingConfirmation, CheckoutStateSubmitting, CheckoutStateFailed:
		return true
	}
	return false
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
