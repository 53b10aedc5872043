package middleware

import "context"

type contextKey string

const (
	ctxCartToken       contextKey = "cart_token"
	ctxCartTokenIssued contextKey = "cart_token_issued"
	ctxStoreID         contextKey = "store_id"
)

func CartTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCartToken).(string); ok {
		return v
	}
	return ""
}

func StoreIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStoreID).(string); ok {
		return v
	}
	return ""
}

// WithCartToken injects the shopper's cart token into the context.
func WithCartToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCartToken, token)
}

// CartTokenIssued reports whether the cart token was minted for this request
// rather than sent by the client.
func CartTokenIssued(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	issued, _ := ctx.Value(ctxCartTokenIssued).(bool)
	return issued
}

// WithStoreID injects the store identifier into the context for downstream handlers.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStoreID, storeID)
}
