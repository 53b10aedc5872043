package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const CartTokenHeader = "X-Cart-Token"

// CartToken reads the shopper's cart token, issuing a fresh one when the
// header is missing or malformed. The token is echoed on every response.
func CartToken(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.ParseCartToken(r.Header.Get(CartTokenHeader))
			issued := err != nil
			if issued {
				token = uuid.NewString()
			}
			w.Header().Set(CartTokenHeader, token)

			ctx := WithCartToken(r.Context(), token)
			ctx = context.WithValue(ctx, ctxCartTokenIssued, issued)
			if logg != nil {
				ctx = logg.WithCartToken(ctx, token)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
