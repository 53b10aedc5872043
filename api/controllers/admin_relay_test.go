package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront/internal/catalog"
)

type stubRelay struct {
	store       *catalog.Passthrough
	reviews     *catalog.Passthrough
	created     []catalog.Review
	lastProduct string
}

func (s *stubRelay) ListReviews(ctx context.Context, productID string) (*catalog.Passthrough, error) {
	s.lastProduct = productID
	return s.reviews, nil
}

func (s *stubRelay) CreateReview(ctx context.Context, review catalog.Review) (*catalog.Passthrough, error) {
	s.created = append(s.created, review)
	return &catalog.Passthrough{StatusCode: http.StatusCreated, Body: []byte(`{"id":"r1"}`), JSON: true}, nil
}

func (s *stubRelay) GetStore(ctx context.Context, storeID string) (*catalog.Passthrough, error) {
	return s.store, nil
}

func TestStoreProxyRelaysJSON(t *testing.T) {
	relay := &stubRelay{store: &catalog.Passthrough{StatusCode: http.StatusOK, Body: []byte(`{"id":"s1","name":"Shop"}`), JSON: true}}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/stores/s1", nil), "storeId", "s1")
	resp := httptest.NewRecorder()

	StoreProxy(relay, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Body.String() != `{"id":"s1","name":"Shop"}` {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestStoreProxyAdminErrorIsPlainText(t *testing.T) {
	relay := &stubRelay{store: &catalog.Passthrough{StatusCode: http.StatusNotFound, Body: []byte(`{"error":"missing"}`), JSON: true}}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/stores/s9", nil), "storeId", "s9")
	resp := httptest.NewRecorder()

	StoreProxy(relay, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	if resp.Body.String() != "Error from admin" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
	if !strings.HasPrefix(resp.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("expected text content type, got %q", resp.Header().Get("Content-Type"))
	}
}

func TestReviewsListPassesProductFilter(t *testing.T) {
	relay := &stubRelay{reviews: &catalog.Passthrough{StatusCode: http.StatusOK, Body: []byte(`[]`), JSON: true}}
	req := httptest.NewRequest(http.MethodGet, "/api/reviews?productId=p1", nil)
	resp := httptest.NewRecorder()

	ReviewsList(relay, nil).ServeHTTP(resp, req)

	if relay.lastProduct != "p1" || resp.Body.String() != "[]" {
		t.Fatalf("unexpected relay %q body %s", relay.lastProduct, resp.Body.String())
	}
}

func TestReviewsCreateRequiresFields(t *testing.T) {
	relay := &stubRelay{}
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(`{"productId":"p1","name":"   "}`))
	resp := httptest.NewRecorder()

	ReviewsCreate(relay, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if len(relay.created) != 0 {
		t.Fatalf("invalid review must not be relayed")
	}
}

func TestReviewsCreateRelays(t *testing.T) {
	relay := &stubRelay{}
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", strings.NewReader(`{"productId":"p1","name":" Ana ","rating":5,"comment":"great","extra":true}`))
	resp := httptest.NewRecorder()

	ReviewsCreate(relay, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(relay.created) != 1 || relay.created[0].Name != "Ana" || *relay.created[0].Rating != 5 {
		t.Fatalf("unexpected relayed review %+v", relay.created)
	}
}
