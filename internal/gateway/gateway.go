package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	idempotencyHeader = "Idempotency-Key"
	endpointCheckout  = "checkout"
)

// Gateway turns one checkout request into exactly one POST against the admin
// checkout endpoint resolved from the configured base address.
type Gateway struct {
	base       string
	httpClient *http.Client
	logg       *logger.Logger
	metrics    *metrics.AdminCallMetrics
	warned     sync.Map
}

// NewGateway builds a gateway. A nil http client means a plain client with
// no timeout; checkout calls are bounded only by the caller's context.
func NewGateway(base string, httpClient *http.Client, logg *logger.Logger, m *metrics.AdminCallMetrics) *Gateway {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Gateway{
		base:       strings.TrimSpace(base),
		httpClient: httpClient,
		logg:       logg,
		metrics:    m,
	}
}

// Configured reports whether a base address is set.
func (g *Gateway) Configured() bool {
	return g.base != ""
}

// Resolve returns the checkout URL for the given request origin.
func (g *Gateway) Resolve(ctx context.Context, origin RequestOrigin) Resolution {
	res := ResolveCheckoutURL(g.base, origin)
	if res.Shape.IsLegacy() {
		if _, seen := g.warned.LoadOrStore(g.base, struct{}{}); !seen {
			g.logg.Warn(g.logg.WithFields(ctx, map[string]any{
				"admin_url":       g.base,
				"admin_url_shape": res.Shape.String(),
				"checkout_url":    res.URL,
			}), "admin url uses a legacy shape; configure the bare admin origin")
		}
	}
	return res
}

// Send posts req to the resolved checkout endpoint. Non-2xx answers come
// back as a Result; the error is reserved for a missing base address
// (CodeConfiguration) and transport failures (CodeDependency).
func (g *Gateway) Send(ctx context.Context, origin RequestOrigin, req CheckoutRequest) (*Result, error) {
	if !g.Configured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "admin checkout address is not configured")
	}
	res := g.Resolve(ctx, origin)
	return postCheckout(ctx, g.httpClient, g.logg, g.metrics, endpointCheckout, res.URL, req)
}

// Checkout sends req without a request origin.
func (g *Gateway) Checkout(ctx context.Context, req CheckoutRequest) (*Result, error) {
	return g.Send(ctx, RequestOrigin{}, req)
}

func postCheckout(ctx context.Context, client *http.Client, logg *logger.Logger, m *metrics.AdminCallMetrics, endpoint, url string, req CheckoutRequest) (*Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("build checkout request for %s", url))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set(idempotencyHeader, req.IdempotencyKey)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"endpoint":      endpoint,
		"checkout_url":  url,
		"validate_only": req.ValidateOnly,
		"line_count":    len(req.Items),
	})

	started := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		m.Observe(endpoint, metrics.OutcomeTransport, time.Since(started))
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "checkout call failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "admin checkout unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		m.Observe(endpoint, metrics.OutcomeTransport, time.Since(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read admin checkout response")
	}
	m.Observe(endpoint, metrics.OutcomeForStatus(resp.StatusCode), time.Since(started))

	result := newResult(url, resp.StatusCode, raw)
	logg.Info(logg.WithFields(ctx, map[string]any{
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	}), "checkout call completed")
	return result, nil
}
