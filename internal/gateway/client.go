package gateway

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const endpointCheckoutProxy = "checkout_proxy"

// Client is the shopper-side transport. It prefers the storefront's own
// checkout proxy and falls back to the admin endpoint when the proxy is
// missing (404). A transport failure falls back only for validate-only
// calls: a commit may already have been forwarded, so it is returned to the
// caller, who retries under the same idempotency key.
type Client struct {
	proxyURL   string
	direct     *Gateway
	httpClient *http.Client
	logg       *logger.Logger
	metrics    *metrics.AdminCallMetrics
}

// NewClient builds a client. storefrontURL may be empty to go straight to
// the admin service; direct may be nil or unconfigured to disable fallback.
func NewClient(storefrontURL string, direct *Gateway, httpClient *http.Client, logg *logger.Logger, m *metrics.AdminCallMetrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	proxy := ""
	if base := strings.TrimRight(strings.TrimSpace(storefrontURL), "/"); base != "" {
		proxy = base + CheckoutPath
	}
	return &Client{proxyURL: proxy, direct: direct, httpClient: httpClient, logg: logg, metrics: m}
}

func (c *Client) hasDirect() bool {
	return c.direct != nil && c.direct.Configured()
}

// Checkout sends one logical request. The idempotency key travels with both
// attempts so the admin can collapse a commit the proxy already forwarded.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (*Result, error) {
	if c.proxyURL == "" {
		if !c.hasDirect() {
			return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "no storefront or admin checkout address configured")
		}
		return c.direct.Checkout(ctx, req)
	}

	res, err := postCheckout(ctx, c.httpClient, c.logg, c.metrics, endpointCheckoutProxy, c.proxyURL, req)
	switch {
	case err != nil && req.ValidateOnly && c.hasDirect():
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{"proxy_url": c.proxyURL, "error": err.Error()}), "storefront checkout proxy unreachable, trying admin directly")
		return c.direct.Checkout(ctx, req)
	case err == nil && res.StatusCode == http.StatusNotFound && c.hasDirect():
		c.logg.Warn(c.logg.WithField(ctx, "proxy_url", c.proxyURL), "storefront checkout proxy returned 404, trying admin directly")
		return c.direct.Checkout(ctx, req)
	}
	return res, err
}
