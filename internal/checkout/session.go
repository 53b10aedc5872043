// Package checkout runs one checkout session: a validate-only check against
// live stock whenever the session opens or the cart changes, then a single
// guarded commit once the shopper confirms.
package checkout

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/events"
	"github.com/angelmondragon/storefront/internal/gateway"
	"github.com/angelmondragon/storefront/internal/storesettings"
	pkgcheckout "github.com/angelmondragon/storefront/pkg/checkout"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Sender delivers one checkout request to the admin service.
type Sender interface {
	Checkout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.Result, error)
}

// SettingsResolver loads the store's payment and shipping methods.
type SettingsResolver interface {
	Resolve(ctx context.Context, storeID string) storesettings.Settings
}

// CartSource is the slice of the cart store a session needs.
type CartSource interface {
	Items() []cart.Item
	Clear(ctx context.Context)
}

// Options carries the optional collaborators of a session.
type Options struct {
	Bus               *events.Bus
	Logger            *logger.Logger
	NewIdempotencyKey func() string
}

// Session is one checkout flow, from Open to Close or a committed order.
type Session struct {
	cart     CartSource
	sender   Sender
	settings SettingsResolver
	bus      *events.Bus
	logg     *logger.Logger
	newKey   func() string

	mu            sync.Mutex
	state         enums.CheckoutState
	storeID       string
	generation    uint64
	seq           uint64
	fingerprint   string
	validated     bool
	failures      []StockFailure
	problem       *Problem
	storeSettings storesettings.Settings
	payment       string
	shipping      string
	paymentChosen bool
	shipChosen    bool
	unsubscribe   func()

	// pendingKey is the commit key for pendingOrder. It survives a commit
	// whose outcome is unknown so a resubmit of the same order replays it.
	pendingKey   string
	pendingOrder string

	submitting atomic.Bool
	wg         sync.WaitGroup
}

// NewSession wires a session. It starts Idle.
func NewSession(cartSource CartSource, sender Sender, settings SettingsResolver, opts Options) (*Session, error) {
	if cartSource == nil {
		return nil, errors.New("cart source required")
	}
	if sender == nil {
		return nil, errors.New("checkout sender required")
	}
	if settings == nil {
		return nil, errors.New("settings resolver required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.NewIdempotencyKey == nil {
		opts.NewIdempotencyKey = func() string { return uuid.NewString() }
	}
	return &Session{
		cart:     cartSource,
		sender:   sender,
		settings: settings,
		bus:      opts.Bus,
		logg:     opts.Logger,
		newKey:   opts.NewIdempotencyKey,
		state:    enums.CheckoutStateIdle,
	}, nil
}

// validation is the outcome of one validate-only call.
type validation struct {
	failures []StockFailure
	err      error
}

// Open starts a session for storeID, or for the store of the first cart line
// when storeID is empty. Settings and stock validation run concurrently.
func (s *Session) Open(ctx context.Context, storeID string) Snapshot {
	items := s.cart.Items()
	if strings.TrimSpace(storeID) == "" && len(items) > 0 {
		storeID = items[0].Product.StoreID
	}

	s.mu.Lock()
	s.resetLocked()
	s.generation++
	s.seq++
	gen, seq := s.generation, s.seq
	s.storeID = strings.TrimSpace(storeID)
	s.fingerprint = fingerprint(items)
	s.setStateLocked(ctx, enums.CheckoutStateValidating)
	s.subscribeLocked()
	s.mu.Unlock()

	s.refresh(ctx, gen, seq, items, storeID, true)
	return s.Snapshot()
}

// Retry re-runs validation, and the settings lookup when it found nothing.
func (s *Session) Retry(ctx context.Context) Snapshot {
	items := s.cart.Items()

	s.mu.Lock()
	if !s.state.IsOpen() || s.state == enums.CheckoutStateSubmitting {
		s.mu.Unlock()
		return s.Snapshot()
	}
	s.seq++
	gen, seq, storeID := s.generation, s.seq, s.storeID
	needSettings := !s.storeSettings.Found
	s.fingerprint = fingerprint(items)
	s.setStateLocked(ctx, enums.CheckoutStateValidating)
	s.mu.Unlock()

	s.refresh(ctx, gen, seq, items, storeID, needSettings)
	return s.Snapshot()
}

// CartChanged re-validates when the cart contents differ from the last
// validated snapshot. Unchanged contents send nothing.
func (s *Session) CartChanged(ctx context.Context) {
	items := s.cart.Items()
	fp := fingerprint(items)

	s.mu.Lock()
	switch s.state {
	case enums.CheckoutStateValidating, enums.CheckoutStateAwaitingConfirmation, enums.CheckoutStateFailed:
	default:
		s.mu.Unlock()
		return
	}
	if fp == s.fingerprint {
		s.mu.Unlock()
		return
	}
	s.fingerprint = fp
	s.seq++
	gen, seq, storeID := s.generation, s.seq, s.storeID
	s.setStateLocked(ctx, enums.CheckoutStateValidating)
	s.mu.Unlock()

	s.applyValidation(ctx, gen, seq, s.validate(ctx, items, storeID))
}

// Close ends the session. Requests already in flight finish but their
// results are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	s.state = enums.CheckoutStateIdle
}

// Wait blocks until background revalidations triggered by cart events finish.
func (s *Session) Wait() {
	s.wg.Wait()
}

// SelectPayment records the shopper's payment choice.
func (s *Session) SelectPayment(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsOpen() {
		return ErrNotOpen
	}
	if !s.storeSettings.PaymentEnabled(value) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method is not available").WithDetails(map[string]any{"paymentMethod": value})
	}
	s.payment = value
	s.paymentChosen = true
	return nil
}

// SelectShipping records the shopper's shipping choice.
func (s *Session) SelectShipping(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsOpen() {
		return ErrNotOpen
	}
	if !s.storeSettings.ShippingEnabled(value) {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping method is not available").WithDetails(map[string]any{"shippingMethod": value})
	}
	s.shipping = value
	s.shipChosen = true
	return nil
}

func (s *Session) refresh(ctx context.Context, gen, seq uint64, items []cart.Item, storeID string, withSettings bool) {
	var (
		g        errgroup.Group
		settings storesettings.Settings
		result   validation
	)
	if withSettings {
		g.Go(func() error {
			settings = s.settings.Resolve(ctx, storeID)
			return nil
		})
	}
	g.Go(func() error {
		result = s.validate(ctx, items, storeID)
		return nil
	})
	_ = g.Wait()

	if withSettings {
		s.applySettings(gen, settings)
	}
	s.applyValidation(ctx, gen, seq, result)
}

func (s *Session) validate(ctx context.Context, items []cart.Item, storeID string) validation {
	if err := pkgcheckout.ValidateLines(lineInputs(items)); err != nil {
		return validation{err: err}
	}
	res, err := s.sender.Checkout(ctx, buildRequest(items, storeID, true))
	if err != nil {
		return validation{err: err}
	}
	if res.OK() {
		return validation{}
	}
	rej := parseRejection(res.Body)
	return validation{failures: rej.Failures, err: rejectionError(res, rej, "")}
}

func (s *Session) applySettings(gen uint64, settings storesettings.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.storeSettings = settings
	if !s.paymentChosen {
		s.payment = settings.DefaultPayment()
	}
	if !s.shipChosen {
		s.shipping = settings.DefaultShipping()
	}
}

// applyValidation stores a validation outcome unless a newer validation
// started or the session closed in the meantime.
func (s *Session) applyValidation(ctx context.Context, gen, seq uint64, v validation) {
	s.mu.Lock()
	if gen != s.generation || seq != s.seq || !s.state.IsOpen() {
		s.mu.Unlock()
		s.logg.Debug(ctx, "discarding stale checkout validation")
		return
	}
	s.failures = v.failures
	s.validated = v.err == nil
	s.problem = problemFor(v.err)
	s.setStateLocked(ctx, enums.CheckoutStateAwaitingConfirmation)
	s.mu.Unlock()

	if v.err != nil {
		s.notify(ctx, enums.NotificationLevelError, s.problemMessage(v.err))
	}
}

func (s *Session) problemMessage(err error) string {
	if p := problemFor(err); p != nil {
		return p.Message
	}
	return "checkout failed"
}

func (s *Session) subscribeLocked() {
	if s.bus == nil || s.unsubscribe != nil {
		return
	}
	s.unsubscribe = s.bus.CartChanged.Subscribe(func(ctx context.Context, _ events.CartChanged) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.CartChanged(context.WithoutCancel(ctx))
		}()
	})
}

func (s *Session) resetLocked() {
	s.validated = false
	s.failures = nil
	s.problem = nil
	s.storeSettings = storesettings.Settings{}
	s.payment, s.shipping = "", ""
	s.paymentChosen, s.shipChosen = false, false
}

func (s *Session) closeLocked() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.generation++
	s.resetLocked()
}

func (s *Session) setStateLocked(ctx context.Context, next enums.CheckoutState) {
	if s.state == next {
		return
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"from": s.state.String(),
		"to":   next.String(),
	}), "checkout state changed")
	s.state = next
}

func (s *Session) notify(ctx context.Context, level enums.NotificationLevel, message string) {
	if s.bus == nil {
		return
	}
	s.bus.Notifications.Publish(ctx, events.Notification{Level: level, Message: message})
}

func buildRequest(items []cart.Item, storeID string, validateOnly bool) gateway.CheckoutRequest {
	lines := make([]gateway.RequestItem, 0, len(items))
	for _, item := range items {
		name := item.Product.Name
		if name == "" {
			name = item.Product.ID
		}
		lines = append(lines, gateway.RequestItem{
			ProductID: item.Product.ID,
			Name:      name,
			Quantity:  item.Quantity,
		})
	}
	return gateway.CheckoutRequest{Items: lines, ValidateOnly: validateOnly, StoreID: storeID}
}

func lineInputs(items []cart.Item) []pkgcheckout.LineInput {
	out := make([]pkgcheckout.LineInput, 0, len(items))
	for _, item := range items {
		out = append(out, pkgcheckout.LineInput{ProductID: item.Product.ID, Name: item.Product.Name, Quantity: item.Quantity})
	}
	return out
}

func fingerprint(items []cart.Item) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.Product.ID)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(item.Quantity))
		b.WriteByte(';')
	}
	return b.String()
}
