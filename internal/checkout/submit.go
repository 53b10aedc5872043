package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/storesettings"
	pkgcheckout "github.com/angelmondragon/storefront/pkg/checkout"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Form is the customer part of a commit. Empty methods fall back to the
// session's current selection.
type Form = pkgcheckout.CustomerDetails

// Receipt describes a committed order.
type Receipt struct {
	OrderID        string          `json:"orderId,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Body           json.RawMessage `json:"body,omitempty"`
}

// Submit commits the order. At most one submit runs at a time; a concurrent
// call returns ErrSubmitInFlight without contacting the admin. The cart is
// revalidated first and cleared only after the admin accepts the order.
func (s *Session) Submit(ctx context.Context, form Form) (receipt *Receipt, err error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInFlight
	}
	defer s.submitting.Store(false)
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("checkout submit panicked: %v", r))
			s.logg.Error(ctx, "checkout submit panicked", err)
			s.mu.Lock()
			if s.state.IsOpen() {
				s.problem = problemFor(err)
				s.setStateLocked(ctx, enums.CheckoutStateAwaitingConfirmation)
			}
			s.mu.Unlock()
			s.notify(ctx, enums.NotificationLevelError, "checkout failed unexpectedly, please try again")
			receipt = nil
		}
	}()

	s.mu.Lock()
	if !s.state.IsOpen() {
		s.mu.Unlock()
		return nil, ErrNotOpen
	}
	form = form.Normalize()
	if form.PaymentMethod == "" {
		form.PaymentMethod = s.payment
	}
	if form.ShippingMethod == "" {
		form.ShippingMethod = s.shipping
	}
	settings := s.storeSettings
	storeID := s.storeID
	s.mu.Unlock()

	if err := s.checkForm(form, settings.PaymentEnabled, settings.ShippingEnabled); err != nil {
		s.notify(ctx, enums.NotificationLevelError, problemFor(err).Message)
		return nil, err
	}

	items := s.cart.Items()

	s.mu.Lock()
	if !s.state.IsOpen() {
		s.mu.Unlock()
		return nil, ErrNotOpen
	}
	s.seq++
	gen, seq := s.generation, s.seq
	s.fingerprint = fingerprint(items)
	s.setStateLocked(ctx, enums.CheckoutStateSubmitting)
	s.mu.Unlock()

	if v := s.validate(ctx, items, storeID); v.err != nil {
		s.applyValidation(ctx, gen, seq, v)
		return nil, v.err
	}

	req := buildRequest(items, storeID, false)
	req.CustomerName = form.CustomerName
	req.Address = form.Address
	req.Phone = form.Phone
	req.PaymentMethod = form.PaymentMethod
	req.ShippingMethod = form.ShippingMethod
	req.IdempotencyKey = s.commitKey(orderFingerprint(storeID, items, form))

	ctx = s.logg.WithFields(ctx, map[string]any{
		"store_id":        storeID,
		"idempotency_key": req.IdempotencyKey,
		"lines":           len(items),
	})
	res, err := s.sender.Checkout(ctx, req)
	if err == nil && !res.OK() {
		rej := parseRejection(res.Body)
		err = rejectionError(res, rej, "")
		if res.IsJSON() {
			s.releaseKey(req.IdempotencyKey)
		}
		s.commitRejected(ctx, gen, rej.Failures, err)
		return nil, err
	}
	if err != nil {
		if !outcomeUnknown(err) {
			s.releaseKey(req.IdempotencyKey)
		}
		s.commitRejected(ctx, gen, nil, err)
		return nil, err
	}

	s.releaseKey(req.IdempotencyKey)
	s.cart.Clear(ctx)
	s.finishCommitted(ctx, gen)
	s.logg.Info(ctx, "order committed")
	s.notify(ctx, enums.NotificationLevelSuccess, "order placed, thank you!")

	return &Receipt{
		OrderID:        orderID(res.Body),
		IdempotencyKey: req.IdempotencyKey,
		Body:           res.Body,
	}, nil
}

// commitKey returns the key for order, minting one unless the previous commit
// of the same order may have reached the admin.
func (s *Session) commitKey(order string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingKey == "" || s.pendingOrder != order {
		s.pendingKey = s.newKey()
		s.pendingOrder = order
	}
	return s.pendingKey
}

func (s *Session) releaseKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingKey == key {
		s.pendingKey, s.pendingOrder = "", ""
	}
}

// outcomeUnknown reports whether a failed commit may still have been placed.
func outcomeUnknown(err error) bool {
	switch KindOf(err) {
	case enums.CheckoutErrorNetworkUnavailable, enums.CheckoutErrorUnknown:
		return true
	}
	return false
}

func orderFingerprint(storeID string, items []cart.Item, form Form) string {
	return strings.Join([]string{
		storeID,
		fingerprint(items),
		form.CustomerName,
		form.Address,
		form.Phone,
		form.PaymentMethod,
		form.ShippingMethod,
	}, "\x1f")
}

func (s *Session) checkForm(form Form, paymentEnabled, shippingEnabled func(string) bool) error {
	if err := pkgcheckout.ValidateCustomer(form); err != nil {
		return err
	}
	details := map[string]string{}
	if !paymentEnabled(form.PaymentMethod) {
		details["paymentMethod"] = "is not available for this store"
	}
	if !shippingEnabled(form.ShippingMethod) {
		details["shippingMethod"] = "is not available for this store"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "please choose an available payment and shipping method").WithDetails(details)
	}
	return nil
}

// commitRejected keeps the cart and returns the session to
// AwaitingConfirmation so the shopper can adjust and resubmit.
func (s *Session) commitRejected(ctx context.Context, gen uint64, failures []StockFailure, err error) {
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout commit rejected")

	s.mu.Lock()
	if gen != s.generation || !s.state.IsOpen() {
		s.mu.Unlock()
		return
	}
	s.setStateLocked(ctx, enums.CheckoutStateFailed)
	s.problem = problemFor(err)
	if len(failures) > 0 {
		s.failures = failures
		s.validated = false
	}
	s.setStateLocked(ctx, enums.CheckoutStateAwaitingConfirmation)
	s.mu.Unlock()

	s.notify(ctx, enums.NotificationLevelError, s.problemMessage(err))
	s.CartChanged(ctx)
}

func (s *Session) finishCommitted(ctx context.Context, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.closeLocked()
	s.fingerprint = ""
	s.setStateLocked(ctx, enums.CheckoutStateCommitted)
}

// orderID reads orderId, id or order.id from a commit response.
func orderID(body json.RawMessage) string {
	var doc map[string]any
	if len(body) == 0 || json.Unmarshal(body, &doc) != nil {
		return ""
	}
	if v := stringField(doc, "orderId"); v != "" {
		return v
	}
	if v := stringField(doc, "id"); v != "" {
		return v
	}
	if order, ok := doc["order"].(map[string]any); ok {
		return stringField(order, "id")
	}
	return ""
}

// Snapshot is a read-only view of the session for rendering.
type Snapshot struct {
	State           enums.CheckoutState    `json:"state"`
	StoreID         string                 `json:"storeId,omitempty"`
	Items           []cart.Item            `json:"items"`
	Failures        []FailureLine          `json:"failures"`
	Problem         *Problem               `json:"problem,omitempty"`
	PaymentMethods  []storesettings.Method `json:"paymentMethods"`
	ShippingMethods []storesettings.Method `json:"shippingMethods"`
	SettingsFound   bool                   `json:"settingsFound"`
	PaymentMethod   string                 `json:"paymentMethod,omitempty"`
	ShippingMethod  string                 `json:"shippingMethod,omitempty"`
	Submitting      bool                   `json:"submitting"`
	CanSubmit       bool                   `json:"canSubmit"`
	CanRetry        bool                   `json:"canRetry"`
}

// Snapshot captures the current session state.
func (s *Session) Snapshot() Snapshot {
	items := s.cart.Items()
	submitting := s.submitting.Load()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:          s.state,
		StoreID:        s.storeID,
		Items:          items,
		Failures:       DescribeFailures(s.failures, items),
		Problem:        s.problem,
		SettingsFound:  s.storeSettings.Found,
		PaymentMethod:  s.payment,
		ShippingMethod: s.shipping,
		Submitting:     submitting || s.state == enums.CheckoutStateSubmitting,
	}
	snap.PaymentMethods = slices.Clone(s.storeSettings.PaymentMethods)
	snap.ShippingMethods = slices.Clone(s.storeSettings.ShippingMethods)

	snap.CanSubmit = s.state == enums.CheckoutStateAwaitingConfirmation &&
		!snap.Submitting &&
		s.validated &&
		len(s.failures) == 0 &&
		len(items) > 0 &&
		s.storeSettings.PaymentEnabled(s.payment) &&
		s.storeSettings.ShippingEnabled(s.shipping)
	snap.CanRetry = s.problem != nil && s.problem.Retryable && s.state.IsOpen() && !snap.Submitting
	return snap
}

// HasFailureFor reports whether the last validation flagged productID.
func (snap Snapshot) HasFailureFor(productID string) bool {
	for _, f := range snap.Failures {
		if strings.EqualFold(f.ProductID, productID) {
			return true
		}
	}
	return false
}
