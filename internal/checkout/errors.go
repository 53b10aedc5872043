package checkout

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront/internal/gateway"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

var (
	// ErrSubmitInFlight is returned, without any request, while another submit runs.
	ErrSubmitInFlight = errors.New("checkout: submit already in flight")
	// ErrNotOpen is returned when acting on a closed session.
	ErrNotOpen = pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session is not open")
)

// Problem is the last error shown to the shopper.
type Problem struct {
	Kind      enums.CheckoutErrorKind `json:"kind"`
	Message   string                  `json:"message"`
	Retryable bool                    `json:"retryable"`
}

// KindOf maps an error to the category shown to the shopper.
func KindOf(err error) enums.CheckoutErrorKind {
	if err == nil {
		return ""
	}
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeInsufficientStock, pkgerrors.CodeValidation:
		return enums.CheckoutErrorValidationFailed
	case pkgerrors.CodeDependency:
		return enums.CheckoutErrorNetworkUnavailable
	case pkgerrors.CodeUpstreamRejected:
		return enums.CheckoutErrorServerRejected
	case pkgerrors.CodeConfiguration:
		return enums.CheckoutErrorConfiguration
	default:
		return enums.CheckoutErrorUnknown
	}
}

func problemFor(err error) *Problem {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	msg := err.Error()
	if typed := pkgerrors.As(err); typed != nil {
		msg = typed.Message()
	}
	return &Problem{Kind: kind, Message: msg, Retryable: kind.Retryable()}
}

// rejectionError turns a non-2xx result into a typed error. A non-JSON body
// counts as a transport failure.
func rejectionError(res *gateway.Result, rej rejection, fallback string) error {
	if !res.IsJSON() {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("admin returned a non-JSON response (status %d)", res.StatusCode))
	}
	if len(rej.Failures) > 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("%d item(s) have insufficient stock", len(rej.Failures))).
			WithDetails(map[string]any{"failed": rej.Failures, "status": res.StatusCode})
	}
	msg := rej.Message
	if msg == "" {
		msg = fallback
	}
	if msg == "" {
		msg = fmt.Sprintf("checkout rejected with status %d", res.StatusCode)
	}
	return pkgerrors.New(pkgerrors.CodeUpstreamRejected, msg).WithDetails(map[string]any{"status": res.StatusCode})
}
