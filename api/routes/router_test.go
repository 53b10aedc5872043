package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/gateway"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/localstore"
	"github.com/angelmondragon/storefront/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

type stubSender struct {
	mu    sync.Mutex
	calls []gateway.CheckoutRequest
}

func (s *stubSender) Send(ctx context.Context, origin gateway.RequestOrigin, req gateway.CheckoutRequest) (*gateway.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	body := json.RawMessage(`{"orderId":"o-1"}`)
	return &gateway.Result{StatusCode: http.StatusCreated, Body: body, Raw: body}, nil
}

func (s *stubSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type memoryRedis struct {
	mu   sync.Mutex
	data map[string]string
	hits map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, hits: map[string]int64{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", nil
	}
	return v, nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits[scope]++
	return m.hits[scope] <= limit, m.hits[scope], nil
}

var (
	_ pkgredis.IdempotencyStore = (*memoryRedis)(nil)
	_ pkgredis.RateLimiter      = (*memoryRedis)(nil)
)

func testConfig() *config.Config {
	return &config.Config{
		App:        config.AppConfig{Env: "dev"},
		Admin:      config.AdminConfig{URL: "https://admin.example.com", StoreID: "store-1"},
		Storefront: config.StorefrontConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Checkout: config.CheckoutConfig{
			IdempotencyTTL: time.Hour,
			CommitWindow:   time.Minute,
			CommitIPLimit:  2,
		},
	}
}

func TestHealthLiveRoute(t *testing.T) {
	router := NewRouter(testConfig(), nil, Dependencies{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCheckoutRouteIssuesCartTokenAndStore(t *testing.T) {
	sender := &stubSender{}
	router := NewRouter(testConfig(), nil, Dependencies{Checkout: sender})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"items":[{"productId":"p1","quantity":1}],"validateOnly":true}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get(middleware.CartTokenHeader) == "" {
		t.Fatalf("expected a cart token to be issued")
	}
	if sender.calls[0].StoreID != "store-1" {
		t.Fatalf("expected default store id, got %q", sender.calls[0].StoreID)
	}
}

func TestCheckoutRouteReplaysIdempotentCommit(t *testing.T) {
	sender := &stubSender{}
	store := newMemoryRedis()
	router := NewRouter(testConfig(), nil, Dependencies{Checkout: sender, Idempotency: store})

	body := `{"items":[{"productId":"p1","quantity":1}],"customerName":"Ana"}`
	token := "0b0f4a4e-8a44-4d4f-9d0e-2f0a3f1b5c6d"
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "commit-1")
		req.Header.Set(middleware.CartTokenHeader, token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i, resp.Code)
		}
		if !strings.Contains(resp.Body.String(), "o-1") {
			t.Fatalf("attempt %d: unexpected body %s", i, resp.Body.String())
		}
	}
	if sender.count() != 1 {
		t.Fatalf("expected one admin call, got %d", sender.count())
	}
}

func TestCheckoutRouteReplaysCommitWithoutCartToken(t *testing.T) {
	sender := &stubSender{}
	store := newMemoryRedis()
	router := NewRouter(testConfig(), nil, Dependencies{Checkout: sender, Idempotency: store})

	body := `{"items":[{"productId":"p1","quantity":1}],"customerName":"Ana"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
		req.Header.Set(middleware.IdempotencyKeyHeader, "commit-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i, resp.Code)
		}
		if i == 1 && resp.Header().Get(middleware.ReplayedHeader) != "true" {
			t.Fatalf("second attempt should be served from the replay store")
		}
	}
	if sender.count() != 1 {
		t.Fatalf("expected one admin call, got %d", sender.count())
	}
}

func TestCheckoutRouteKeepsCartTokensApart(t *testing.T) {
	sender := &stubSender{}
	store := newMemoryRedis()
	router := NewRouter(testConfig(), nil, Dependencies{Checkout: sender, Idempotency: store})

	body := `{"items":[{"productId":"p1","quantity":1}]}`
	for _, token := range []string{"0b0f4a4e-8a44-4d4f-9d0e-2f0a3f1b5c6d", "5c1d7f0e-3b2a-4c9d-8e7f-6a5b4c3d2e1f"} {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
		req.Header.Set(middleware.IdempotencyKeyHeader, "commit-1")
		req.Header.Set(middleware.CartTokenHeader, token)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
	if sender.count() != 2 {
		t.Fatalf("distinct carts must not share a key, got %d admin calls", sender.count())
	}
}

func TestCheckoutRouteRateLimitsCommitsOnly(t *testing.T) {
	sender := &stubSender{}
	limiter := newMemoryRedis()
	router := NewRouter(testConfig(), nil, Dependencies{Checkout: sender, RateLimiter: limiter})

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
		req.RemoteAddr = "203.0.113.7:5555"
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp.Code
	}

	for i := 0; i < 5; i++ {
		if code := post(`{"items":[],"validateOnly":true}`); code != http.StatusCreated {
			t.Fatalf("validate-only call %d should pass, got %d", i, code)
		}
	}
	for i := 0; i < 2; i++ {
		if code := post(`{"items":[]}`); code != http.StatusCreated {
			t.Fatalf("commit %d should pass, got %d", i, code)
		}
	}
	if code := post(`{"items":[]}`); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", code)
	}
}

func TestOptionalRoutesAreNotMounted(t *testing.T) {
	router := NewRouter(testConfig(), nil, Dependencies{})
	for _, target := range []string{"/api/reviews", "/api/products", "/api/v1/cart", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusNotFound && resp.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s should not be mounted, got %d", target, resp.Code)
		}
	}
}

func TestMetricsRoute(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewAdminCallMetrics(registry)
	m.Observe("checkout", metrics.OutcomeForStatus(http.StatusOK), time.Millisecond)

	router := NewRouter(testConfig(), nil, Dependencies{Registry: registry})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "checkout") {
		t.Fatalf("expected admin call metrics, got %s", resp.Body.String())
	}
}

func TestCartRoutesUseCartToken(t *testing.T) {
	base, err := localstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	stock := 5
	reader := stubCatalog{product: catalog.Product{ID: "p1", Name: "Tee", Quantity: &stock}}
	router := NewRouter(testConfig(), nil, Dependencies{
		Catalog: reader,
		CartBackend: func(token string) localstore.Store {
			return localstore.NewScopedStore(base, token+".")
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":"p1","quantity":2}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	token := resp.Header().Get(middleware.CartTokenHeader)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(middleware.CartTokenHeader, token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if !strings.Contains(resp.Body.String(), `"count":2`) {
		t.Fatalf("expected persisted cart, got %s", resp.Body.String())
	}
}

type stubCatalog struct {
	product catalog.Product
}

func (s stubCatalog) ListProducts(context.Context, catalog.Query) ([]catalog.Product, error) {
	return []catalog.Product{s.product}, nil
}

func (s stubCatalog) Search(context.Context, string) ([]catalog.Product, error) {
	return []catalog.Product{s.product}, nil
}

func (s stubCatalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	p := s.product
	return &p, nil
}

func (s stubCatalog) ListCategories(context.Context) ([]catalog.Category, error) {
	return nil, nil
}
