package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/internal/gateway"
)

// requestOrigin reports how the shopper reached the storefront, honouring
// proxy headers. The scheme stays empty when nothing says which one was used.
func requestOrigin(r *http.Request) gateway.RequestOrigin {
	origin := gateway.RequestOrigin{
		Scheme: firstHeaderValue(r.Header.Get("X-Forwarded-Proto")),
		Host:   firstHeaderValue(r.Header.Get("X-Forwarded-Host")),
	}
	if origin.Host == "" {
		origin.Host = r.Host
	}
	if origin.Scheme == "" && r.TLS != nil {
		origin.Scheme = "https"
	}
	return origin
}

func firstHeaderValue(raw string) string {
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}
