package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/events"
	"github.com/angelmondragon/storefront/internal/gateway"
	"github.com/angelmondragon/storefront/internal/storesettings"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/localstore"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type fakeCatalog struct {
	products map[string]catalog.Product
}

func (f fakeCatalog) ListProducts(context.Context, catalog.Query) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f fakeCatalog) Search(_ context.Context, q string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakeCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog entry not found")
	}
	return &p, nil
}

type fakeSender struct {
	mu       sync.Mutex
	requests []gateway.CheckoutRequest
}

func (f *fakeSender) Checkout(_ context.Context, req gateway.CheckoutRequest) (*gateway.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	body := json.RawMessage(`{"ok":true}`)
	if !req.ValidateOnly {
		body = json.RawMessage(`{"orderId":"ord-77"}`)
	}
	return &gateway.Result{StatusCode: http.StatusOK, Body: body, Raw: body}, nil
}

type fakeSettings struct{}

func (fakeSettings) Resolve(context.Context, string) storesettings.Settings {
	return storesettings.Settings{
		Found:           true,
		PaymentMethods:  []storesettings.Method{{Value: "cod", Label: "Cash on delivery", Enabled: true}},
		ShippingMethods: []storesettings.Method{{Value: "pickup", Label: "Pickup", Enabled: true}},
	}
}

func newTestApp(t *testing.T) (*app, *bytes.Buffer, *fakeSender) {
	t.Helper()
	store, err := localstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	stock := 3
	out := &bytes.Buffer{}
	bus := events.NewBus()
	bus.Notifications.Subscribe(func(_ context.Context, n events.Notification) {
		out.WriteString("[" + n.Level.String() + "] " + n.Message + "\n")
	})
	sender := &fakeSender{}
	a := &app{
		out:  out,
		logg: logger.Nop(),
		bus:  bus,
		cart: cart.NewStore(context.Background(), cart.NewKeyValuePersister(store), bus, nil),
		catalog: fakeCatalog{products: map[string]catalog.Product{
			"p1": {ID: "p1", Name: "Tee", Price: decimal.RequireFromString("12.50"), StoreID: "s1", Quantity: &stock},
			"p2": {ID: "p2", Name: "Cap", Price: decimal.RequireFromString("4.00"), StoreID: "s1"},
		}},
		sender:   sender,
		settings: fakeSettings{},
	}
	return a, out, sender
}

func TestRunWithoutCommandPrintsUsage(t *testing.T) {
	a, out, _ := newTestApp(t)
	err := a.run(context.Background(), nil)
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, out.String(), "usage: shop")
}

func TestAddAndListCart(t *testing.T) {
	a, out, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, []string{"add", "p1", "2"}))
	require.NoError(t, a.run(ctx, []string{"add", "p2"}))

	assert.Equal(t, 3, a.cart.Count())
	assert.Contains(t, out.String(), "subtotal 29.00")
}

func TestAddRespectsStock(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, []string{"add", "p1", "2"}))
	err := a.run(ctx, []string{"add", "p1", "2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only 3 of Tee available")
	assert.Equal(t, 2, a.cart.Count())
}

func TestQtyZeroRemovesLine(t *testing.T) {
	a, out, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.run(ctx, []string{"add", "p2", "2"}))
	require.NoError(t, a.run(ctx, []string{"qty", "p2", "0"}))
	assert.Empty(t, a.cart.Items())
	assert.Contains(t, out.String(), "cart is empty")
}

func TestQtyRejectsBadInput(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.run(ctx, []string{"add", "p2"}))

	require.Error(t, a.run(ctx, []string{"qty", "p2", "many"}))
	require.Error(t, a.run(ctx, []string{"qty", "p2", "-1"}))
	require.Error(t, a.run(ctx, []string{"qty", "zz", "1"}))
}

func TestCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	a, out, sender := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.run(ctx, []string{"add", "p1"}))

	err := a.run(ctx, []string{"checkout", "-name", "Ana", "-address", "1 Main St", "-phone", "555-0100"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "order ord-77 placed")
	assert.Empty(t, a.cart.Items())

	require.NotEmpty(t, sender.requests)
	commit := sender.requests[len(sender.requests)-1]
	assert.False(t, commit.ValidateOnly)
	assert.Equal(t, "cod", commit.PaymentMethod)
	assert.Equal(t, "pickup", commit.ShippingMethod)
	assert.Equal(t, "s1", commit.StoreID)
	assert.NotEmpty(t, commit.IdempotencyKey)
}

func TestCheckoutValidateOnlyKeepsCart(t *testing.T) {
	a, out, sender := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.run(ctx, []string{"add", "p2"}))

	require.NoError(t, a.run(ctx, []string{"checkout", "-validate-only"}))

	assert.Len(t, a.cart.Items(), 1)
	assert.Contains(t, out.String(), "Cash on delivery")
	for _, req := range sender.requests {
		assert.True(t, req.ValidateOnly)
	}
}

func TestCheckoutMissingFormFields(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.run(ctx, []string{"add", "p2"}))

	err := a.run(ctx, []string{"checkout", "-name", "Ana"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Len(t, a.cart.Items(), 1)
}

func TestParseQuantity(t *testing.T) {
	n, err := parseQuantity(" 7 ")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = parseQuantity("1000")
	require.Error(t, err)
}
