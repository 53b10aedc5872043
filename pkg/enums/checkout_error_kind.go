package enums

import "fmt"

// CheckoutErrorKind is the error category shown to the shopper.
type CheckoutErrorKind string

const (
	CheckoutErrorValidationFailed   CheckoutErrorKind = "validation_failed"
	CheckoutErrorNetworkUnavailable CheckoutErrorKind = "network_unavailable"
	CheckoutErrorServerRejected     CheckoutErrorKind = "server_rejected"
	CheckoutErrorConfiguration      CheckoutErrorKind = "configuration"
	CheckoutErrorUnknown            CheckoutErrorKind = "unknown"
)

var validCheckoutErrorKinds = []CheckoutErrorKind{
	CheckoutErrorValidationFailed,
	CheckoutErrorNetworkUnavailable,
	CheckoutErrorServerRejected,
	CheckoutErrorConfiguration,
	CheckoutErrorUnknown,
}

// String implements fmt.Stringer.
func (k CheckoutErrorKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known CheckoutErrorKind.
func (k CheckoutErrorKind) IsValid() bool {
	for _, candidate := range validCheckoutErrorKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// Retryable reports whether a manual retry makes sense for the kind.
func (k CheckoutErrorKind) Retryable() bool {
	return k == CheckoutErrorNetworkUnavailable || k == CheckoutErrorUnknown
}

// ParseCheckoutErrorKind converts raw input into a CheckoutErrorKind.
func ParseCheckoutErrorKind(value string) (CheckoutErrorKind, error) {
	for _, candidate := range validCheckoutErrorKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout error kind %q", value)
}
