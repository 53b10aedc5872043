// Package storesettings discovers the payment and shipping methods a store
// accepts by trying a short ordered list of endpoints.
package storesettings

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront/internal/gateway"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const (
	endpointStoreSettings = "store_settings"
	candidateTimeout      = 10 * time.Second
	maxBodyBytes          = 1 << 20
)

// Resolver fetches store settings. Resolve never fails: when every candidate
// fails the result has Found == false. Lookup reports why.
type Resolver struct {
	storefrontURL string
	adminURL      string
	httpClient    *http.Client
	logg          *logger.Logger
	metrics       *metrics.AdminCallMetrics
}

// NewResolver builds a resolver. storefrontURL is the storefront's own base
// (its admin store proxy is tried first); adminURL is the configured admin
// address in any supported shape.
func NewResolver(storefrontURL, adminURL string, httpClient *http.Client, logg *logger.Logger, m *metrics.AdminCallMetrics) *Resolver {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{
		storefrontURL: strings.TrimRight(strings.TrimSpace(storefrontURL), "/"),
		adminURL:      strings.TrimSpace(adminURL),
		httpClient:    httpClient,
		logg:          logg,
		metrics:       m,
	}
}

// StoreID returns storeID or, when empty, the id embedded in a store-scoped admin address.
func (r *Resolver) StoreID(storeID string) string {
	if id := strings.TrimSpace(storeID); id != "" {
		return id
	}
	return gateway.StoreIDFromBase(r.adminURL)
}

// Candidates lists the settings URLs in the order they are tried.
func (r *Resolver) Candidates(storeID string) []string {
	storeID = r.StoreID(storeID)
	if storeID == "" {
		return nil
	}
	escaped := url.PathEscape(storeID)

	var out []string
	if r.storefrontURL != "" {
		out = append(out, r.storefrontURL+"/api/admin/stores/"+escaped)
	}
	if r.adminURL != "" {
		if base := gateway.AdminBase(r.adminURL); gateway.HasScheme(base) {
			out = append(out, base+"/api/stores/"+escaped)
		}
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Resolve tries each candidate in order and returns the first 2xx JSON object.
func (r *Resolver) Resolve(ctx context.Context, storeID string) Settings {
	settings, err := r.Lookup(ctx, storeID)
	if err != nil {
		ctx = r.logg.WithStoreID(ctx, r.StoreID(storeID))
		r.logg.Warn(r.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "store settings unavailable")
	}
	return settings
}

// Lookup is Resolve with the failure kept. No candidates is a
// CodeConfiguration error; every candidate failing is a CodeDependency error
// wrapping each attempt.
func (r *Resolver) Lookup(ctx context.Context, storeID string) (Settings, error) {
	storeID = r.StoreID(storeID)
	ctx = r.logg.WithStoreID(ctx, storeID)

	candidates := r.Candidates(storeID)
	if len(candidates) == 0 {
		return Settings{}, pkgerrors.New(pkgerrors.CodeConfiguration, "no store id or address configured for store settings")
	}

	var errs error
	for _, candidate := range candidates {
		settings, err := r.try(ctx, candidate)
		if err == nil {
			settings.Source = candidate
			r.logg.Debug(r.logg.WithFields(ctx, map[string]any{
				"source":           candidate,
				"payment_methods":  len(settings.PaymentMethods),
				"shipping_methods": len(settings.ShippingMethods),
			}), "store settings resolved")
			return settings, nil
		}
		r.logg.Debug(r.logg.WithFields(ctx, map[string]any{"candidate": candidate, "error": err.Error()}), "store settings candidate failed")
		errs = multierr.Append(errs, err)
	}

	return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "store settings unavailable").
		WithDetails(map[string]any{"candidates": candidates})
}

func (r *Resolver) try(ctx context.Context, candidate string) (Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, candidateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, candidate, nil)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, candidate)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.metrics.Observe(endpointStoreSettings, metrics.OutcomeTransport, time.Since(started))
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, candidate)
	}
	defer resp.Body.Close()
	r.metrics.Observe(endpointStoreSettings, metrics.OutcomeForStatus(resp.StatusCode), time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := pkgerrors.CodeDependency
		if resp.StatusCode == http.StatusNotFound {
			code = pkgerrors.CodeNotFound
		}
		return Settings{}, pkgerrors.New(code, fmt.Sprintf("%s: status %d", candidate, resp.StatusCode))
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, candidate+": read body")
	}
	settings, ok := parse(raw)
	if !ok {
		return Settings{}, pkgerrors.New(pkgerrors.CodeUpstreamRejected, candidate+": body is not a settings object")
	}
	return settings, nil
}
