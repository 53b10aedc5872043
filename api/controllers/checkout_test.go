package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/gateway"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type stubSender struct {
	sendFn func(ctx context.Context, origin gateway.RequestOrigin, req gateway.CheckoutRequest) (*gateway.Result, error)
}

func (s stubSender) Send(ctx context.Context, origin gateway.RequestOrigin, req gateway.CheckoutRequest) (*gateway.Result, error) {
	return s.sendFn(ctx, origin, req)
}

func result(status int, body string) *gateway.Result {
	res := &gateway.Result{StatusCode: status, Raw: []byte(body)}
	if json.Valid([]byte(body)) {
		res.Body = json.RawMessage(body)
	}
	return res
}

func TestCheckoutProxyNormalizesItems(t *testing.T) {
	var got gateway.CheckoutRequest
	var gotOrigin gateway.RequestOrigin
	sender := stubSender{sendFn: func(ctx context.Context, origin gateway.RequestOrigin, req gateway.CheckoutRequest) (*gateway.Result, error) {
		got = req
		gotOrigin = origin
		return result(http.StatusOK, `{"ok":true}`), nil
	}}

	body := `{"items":[{"productId":" p1 ","name":" Tee ","quantity":"2"},{"productId":42,"quantity":1.9},{"productId":"p3","quantity":"lots"}],"validateOnly":true,"coupon":"SAVE10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "shop.example.com, proxy.internal")
	req.Header.Set("Idempotency-Key", "key-1")
	req = req.WithContext(middleware.WithStoreID(req.Context(), "store-9"))
	resp := httptest.NewRecorder()

	CheckoutProxy(sender, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if strings.TrimSpace(resp.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected admin body relayed, got %s", resp.Body.String())
	}
	want := []gateway.RequestItem{
		{ProductID: "p1", Name: "Tee", Quantity: 2},
		{ProductID: "42", Quantity: 1},
		{ProductID: "p3", Quantity: 0},
	}
	if len(got.Items) != len(want) {
		t.Fatalf("expected %d items got %d", len(want), len(got.Items))
	}
	for i := range want {
		if got.Items[i] != want[i] {
			t.Fatalf("item %d: expected %+v got %+v", i, want[i], got.Items[i])
		}
	}
	if !got.ValidateOnly {
		t.Fatalf("validateOnly should be forwarded")
	}
	if got.StoreID != "store-9" {
		t.Fatalf("expected store id from context, got %q", got.StoreID)
	}
	if got.IdempotencyKey != "key-1" {
		t.Fatalf("expected idempotency key forwarded, got %q", got.IdempotencyKey)
	}
	if string(got.Extra["coupon"]) != `"SAVE10"` {
		t.Fatalf("unknown fields should pass through, got %v", got.Extra)
	}
	if gotOrigin.Scheme != "https" || gotOrigin.Host != "shop.example.com" {
		t.Fatalf("unexpected origin %+v", gotOrigin)
	}
}

func TestCheckoutProxyRelaysRejection(t *testing.T) {
	sender := stubSender{sendFn: func(ctx context.Context, origin gateway.RequestOrigin, req gateway.CheckoutRequest) (*gateway.Result, error) {
		return result(http.StatusConflict, `{"error":"insufficient_stock","productId":"p1","available":1}`), nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"items":[{"productId":"p1","quantity":3}],"storeId":"s1"}`))
	resp := httptest.NewRecorder()

	CheckoutProxy(sender, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"available":1`) {
		t.Fatalf("expected admin body, got %s", resp.Body.String())
	}
}

func TestCheckoutProxyReplacesNonJSONBody(t *testing.T) {
	sender := stubSender{sendFn: func(ctx context.Context, origin gateway.RequestOrigin, req gateway.CheckoutRequest) (*gateway.Result, error) {
		return result(http.StatusBadGateway, "<html>bad gateway</html>"), nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"items":[]}`))
	resp := httptest.NewRecorder()

	CheckoutProxy(sender, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", resp.Code)
	}
	if strings.TrimSpace(resp.Body.String()) != "{}" {
		t.Fatalf("expected {} got %s", resp.Body.String())
	}
}

func TestCheckoutProxyUnconfiguredAdmin(t *testing.T) {
	sender := stubSender{sendFn: func(ctx context.Context, origin gateway.RequestOrigin, req gateway.CheckoutRequest) (*gateway.Result, error) {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "admin address is not configured")
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"items":[]}`))
	resp := httptest.NewRecorder()

	CheckoutProxy(sender, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeConfiguration) {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
}

func TestCheckoutProxyRejectsMalformedItems(t *testing.T) {
	called := false
	sender := stubSender{sendFn: func(ctx context.Context, origin gateway.RequestOrigin, req gateway.CheckoutRequest) (*gateway.Result, error) {
		called = true
		return result(http.StatusOK, `{}`), nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"items":"nope"}`))
	resp := httptest.NewRecorder()

	CheckoutProxy(sender, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if called {
		t.Fatalf("malformed body must not reach the admin")
	}
}

func TestCoerceQuantity(t *testing.T) {
	cases := map[string]struct {
		in   any
		want int
	}{
		"number":         {in: float64(3), want: 3},
		"fraction":       {in: 2.7, want: 2},
		"numeric string": {in: " 5 ", want: 5},
		"text":           {in: "five", want: 0},
		"missing":        {in: nil, want: 0},
		"object":         {in: map[string]any{}, want: 0},
	}
	for name, tc := range cases {
		if got := coerceQuantity(tc.in); got != tc.want {
			t.Fatalf("%s: expected %d got %d", name, tc.want, got)
		}
	}
}
