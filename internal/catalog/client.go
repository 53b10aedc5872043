// Package catalog reads products and categories from the store's public API
// and relays review calls to the admin service.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	defaultTimeout         = 10 * time.Second
	errorBodyReadLimit     = 1024
	responseBodyReadLimit  = 4 << 20
	endpointProducts       = "catalog_products"
	endpointProduct        = "catalog_product"
	endpointCategories     = "catalog_categories"
	endpointReviews        = "reviews"
	endpointReviewsPublish = "reviews_create"
	endpointStore          = "store_proxy"
)

// Client talks to the catalog (public API) and to the admin review endpoint.
type Client struct {
	httpClient *http.Client
	catalogURL string
	adminURL   string
	logg       *logger.Logger
	metrics    *metrics.AdminCallMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAdminURL sets the admin origin used for reviews.
func WithAdminURL(adminURL string) Option {
	return func(c *Client) {
		c.adminURL = strings.TrimRight(strings.TrimSpace(adminURL), "/")
	}
}

// WithLogger attaches a logger.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// WithMetrics records outbound calls.
func WithMetrics(m *metrics.AdminCallMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a catalog client for catalogURL, the store-scoped public
// API base (for example https://admin.example.com/api/<storeId>).
func NewClient(catalogURL string, opts ...Option) *Client {
	client := &Client{
		catalogURL: strings.TrimRight(strings.TrimSpace(catalogURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logg:       logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// CatalogConfigured reports whether product calls have somewhere to go.
func (c *Client) CatalogConfigured() bool {
	return c != nil && c.catalogURL != ""
}

// ReviewsConfigured reports whether admin relays (reviews, store lookups) have somewhere to go.
func (c *Client) ReviewsConfigured() bool {
	return c != nil && c.adminURL != ""
}

// ListProducts returns products filtered by category, featured flag or search text.
func (c *Client) ListProducts(ctx context.Context, q Query) ([]Product, error) {
	if !c.CatalogConfigured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "catalog address is not configured")
	}
	params := url.Values{}
	if v := strings.TrimSpace(q.CategoryID); v != "" {
		params.Set("categoryId", v)
	}
	if q.IsFeatured != nil {
		params.Set("isFeatured", strconv.FormatBool(*q.IsFeatured))
	}
	if v := strings.TrimSpace(q.Search); v != "" {
		params.Set("search", v)
	}

	target := c.catalogURL + "/products"
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var products []Product
	if err := c.getJSON(ctx, endpointProducts, target, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Search lists products matching q.
func (c *Client) Search(ctx context.Context, q string) ([]Product, error) {
	return c.ListProducts(ctx, Query{Search: q})
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	if !c.CatalogConfigured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "catalog address is not configured")
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var product Product
	if err := c.getJSON(ctx, endpointProduct, c.catalogURL+"/products/"+url.PathEscape(trimmed), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListCategories returns every category.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	if !c.CatalogConfigured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "catalog address is not configured")
	}
	var categories []Category
	if err := c.getJSON(ctx, endpointCategories, c.catalogURL+"/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListReviews relays GET /api/reviews, optionally filtered by product.
func (c *Client) ListReviews(ctx context.Context, productID string) (*Passthrough, error) {
	if !c.ReviewsConfigured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "admin address is not configured")
	}
	target := c.adminURL + "/api/reviews"
	if id := strings.TrimSpace(productID); id != "" {
		target += "?" + url.Values{"productId": {id}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build reviews request")
	}
	return c.relay(ctx, endpointReviews, req)
}

// CreateReview relays a review to the admin. Only the known fields are forwarded.
func (c *Client) CreateReview(ctx context.Context, review Review) (*Passthrough, error) {
	if !c.ReviewsConfigured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "admin address is not configured")
	}
	if strings.TrimSpace(review.ProductID) == "" || strings.TrimSpace(review.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId and name are required")
	}
	payload, err := json.Marshal(review)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal review")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.adminURL+"/api/reviews", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build review request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.relay(ctx, endpointReviewsPublish, req)
}

// GetStore relays GET /api/stores/{id} from the admin.
func (c *Client) GetStore(ctx context.Context, storeID string) (*Passthrough, error) {
	if !c.ReviewsConfigured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "admin address is not configured")
	}
	trimmed := strings.TrimSpace(storeID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.adminURL+"/api/stores/"+url.PathEscape(trimmed), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build store request")
	}
	return c.relay(ctx, endpointStore, req)
}

func (c *Client) getJSON(ctx context.Context, endpoint, target string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Observe(endpoint, metrics.OutcomeTransport, time.Since(start))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute catalog request")
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Observe(endpoint, metrics.OutcomeForStatus(resp.StatusCode), time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "catalog entry not found").WithDetails(map[string]any{"url": target})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "catalog request failed").
			WithDetails(map[string]any{"status": resp.StatusCode})
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode catalog response")
	}
	return nil
}

func (c *Client) relay(ctx context.Context, endpoint string, req *http.Request) (*Passthrough, error) {
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Observe(endpoint, metrics.OutcomeTransport, time.Since(start))
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"url": req.URL.String(), "error": err.Error()}), "admin unreachable")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "admin unreachable")
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.Observe(endpoint, metrics.OutcomeForStatus(resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read admin response")
	}
	trimmed := bytes.TrimSpace(body)
	out := &Passthrough{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		JSON:        len(trimmed) > 0 && json.Valid(trimmed),
	}
	if out.JSON {
		out.Body = trimmed
	}
	return out, nil
}
