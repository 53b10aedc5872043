package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type stubCatalog struct {
	products   []catalog.Product
	lastQuery  catalog.Query
	lastSearch string
	searches   int
	getErr     error
}

func (s *stubCatalog) ListProducts(ctx context.Context, q catalog.Query) ([]catalog.Product, error) {
	s.lastQuery = q
	return s.products, nil
}

func (s *stubCatalog) Search(ctx context.Context, q string) ([]catalog.Product, error) {
	s.searches++
	s.lastSearch = q
	return s.products, nil
}

func (s *stubCatalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	for i := range s.products {
		if s.products[i].ID == id {
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "catalog entry not found")
}

func (s *stubCatalog) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return []catalog.Category{{ID: "c1", Name: "Shirts"}}, nil
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func sampleProducts() []catalog.Product {
	stock := 2
	return []catalog.Product{
		{ID: "p1", Name: "Tee", Price: decimal.RequireFromString("10.00"), StoreID: "s1", Quantity: &stock},
		{ID: "p2", Name: "Cap", Price: decimal.RequireFromString("5.50"), StoreID: "s1"},
	}
}

func TestCatalogProductsFiltersAndLimits(t *testing.T) {
	reader := &stubCatalog{products: sampleProducts()}
	req := httptest.NewRequest(http.MethodGet, "/api/products?categoryId=c1&isFeatured=true&limit=1", nil)
	resp := httptest.NewRecorder()

	CatalogProducts(reader, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if reader.lastQuery.CategoryID != "c1" || reader.lastQuery.IsFeatured == nil || !*reader.lastQuery.IsFeatured {
		t.Fatalf("unexpected query %+v", reader.lastQuery)
	}
	var envelope struct {
		Data []catalog.Product `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].ID != "p1" {
		t.Fatalf("expected one product, got %+v", envelope.Data)
	}
}

func TestCatalogProductsRejectsBadFlag(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/products?isFeatured=maybe", nil)
	resp := httptest.NewRecorder()

	CatalogProducts(&stubCatalog{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCatalogProductNotFound(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/zz", nil), "productId", "zz")
	resp := httptest.NewRecorder()

	CatalogProduct(&stubCatalog{products: sampleProducts()}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCatalogSearchBlankQuerySkipsCatalog(t *testing.T) {
	reader := &stubCatalog{products: sampleProducts()}
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=%20%20", nil)
	resp := httptest.NewRecorder()

	CatalogSearch(reader, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if reader.searches != 0 {
		t.Fatalf("blank query should not reach the catalog")
	}
	if !strings.Contains(resp.Body.String(), `"data":[]`) {
		t.Fatalf("expected empty list, got %s", resp.Body.String())
	}
}

func TestCatalogSearchTrimsQuery(t *testing.T) {
	reader := &stubCatalog{products: sampleProducts()}
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=+tee+", nil)
	resp := httptest.NewRecorder()

	CatalogSearch(reader, nil).ServeHTTP(resp, req)

	if reader.lastSearch != "tee" {
		t.Fatalf("expected trimmed query, got %q", reader.lastSearch)
	}
}

func TestCatalogCategories(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	resp := httptest.NewRecorder()

	CatalogCategories(&stubCatalog{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "Shirts") {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}
