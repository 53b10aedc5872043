package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/pkg/logger"
)

const storeIDHeader = "X-Store-Id"

// StoreContext puts the store the request is about into the context: the
// X-Store-Id header when present, otherwise the configured default.
func StoreContext(defaultStoreID string, logg *logger.Logger) func(http.Handler) http.Handler {
	defaultStoreID = strings.TrimSpace(defaultStoreID)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			storeID := strings.TrimSpace(r.Header.Get(storeIDHeader))
			if storeID == "" {
				storeID = defaultStoreID
			}
			if storeID == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithStoreID(r.Context(), storeID)
			if logg != nil {
				ctx = logg.WithStoreID(ctx, storeID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
