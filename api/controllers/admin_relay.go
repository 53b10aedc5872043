package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// AdminRelay forwards review and store lookups to the admin service.
type AdminRelay interface {
	ListReviews(ctx context.Context, productID string) (*catalog.Passthrough, error)
	CreateReview(ctx context.Context, review catalog.Review) (*catalog.Passthrough, error)
	GetStore(ctx context.Context, storeID string) (*catalog.Passthrough, error)
}

// StoreProxy relays the admin's GET /api/stores/{storeId}. Non-2xx answers
// become a plain text "Error from admin" with the admin's status.
func StoreProxy(relay AdminRelay, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID := strings.TrimSpace(chi.URLParam(r, "storeId"))
		res, err := relay.GetStore(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			if logg != nil {
				logg.Warn(logg.WithFields(r.Context(), map[string]any{"store_id": storeID, "status": res.StatusCode}), "store lookup rejected by admin")
			}
			responses.WriteRaw(w, res.StatusCode, "text/plain; charset=utf-8", []byte("Error from admin"))
			return
		}
		writeRelay(w, res)
	}
}

// ReviewsList relays GET /api/reviews?productId=.
func ReviewsList(relay AdminRelay, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := relay.ListReviews(r.Context(), r.URL.Query().Get("productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeRelay(w, res)
	}
}

// ReviewsCreate validates the required fields locally and relays the rest.
func ReviewsCreate(relay AdminRelay, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var review catalog.Review
		if err := validators.DecodeLenientJSONBody(r, &review); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review.ProductID = strings.TrimSpace(review.ProductID)
		review.Name = validators.SanitizeString(review.Name, 120)
		review.Comment = validators.SanitizeString(review.Comment, 2000)
		if err := validators.Struct(&review); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := relay.CreateReview(r.Context(), review)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeRelay(w, res)
	}
}

// writeRelay keeps JSON bodies as JSON and passes anything else through raw.
func writeRelay(w http.ResponseWriter, res *catalog.Passthrough) {
	if res.JSON {
		responses.WritePassthrough(w, res.StatusCode, res.Body, true)
		return
	}
	responses.WriteRaw(w, res.StatusCode, res.ContentType, res.Body)
}
