package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/localstore"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const maxLineQuantity = 999

// CartBackend opens the key/value store that holds one shopper's cart.
type CartBackend func(token string) localstore.Store

// ProductLookup resolves a product id to its catalog entry.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

// CartController serves the server-side cart keyed by the X-Cart-Token header.
type CartController struct {
	backend  CartBackend
	products ProductLookup
	logg     *logger.Logger
}

func NewCartController(backend CartBackend, products ProductLookup, logg *logger.Logger) *CartController {
	return &CartController{backend: backend, products: products, logg: logg}
}

type cartView struct {
	Token    string          `json:"token"`
	Items    []cart.Item     `json:"items"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=999"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=999"`
}

func (c *CartController) open(ctx context.Context) (*cart.Store, string, error) {
	token := middleware.CartTokenFromContext(ctx)
	if token == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "cart token is required")
	}
	if c.backend == nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeConfiguration, "cart storage is not configured")
	}
	store, err := cart.LoadStrict(ctx, cart.NewKeyValuePersister(c.backend(token)), c.logg)
	if err != nil {
		return nil, "", err
	}
	return store, token, nil
}

func (c *CartController) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, token, err := c.open(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(token, store))
	}
}

// AddItem adds quantity units of a catalog product, 1 when quantity is 0.
// The total may not exceed the stock the catalog reports.
func (c *CartController) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		if c.products == nil {
			responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "catalog is not configured"))
			return
		}

		store, token, err := c.open(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		product, err := c.products.GetProduct(r.Context(), strings.TrimSpace(req.ProductID))
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}

		existing, _ := store.Get(product.ID)
		if err := checkStock(product, existing.Quantity+req.Quantity); err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		if err := store.Add(r.Context(), product.Snapshot(), req.Quantity); err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, viewOf(token, store))
	}
}

// UpdateItem sets an absolute quantity. Zero removes the line.
func (c *CartController) UpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		store, token, err := c.open(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		productID := chi.URLParam(r, "productId")
		if _, ok := store.Get(productID); !ok {
			responses.WriteError(r.Context(), c.logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart"))
			return
		}
		if *req.Quantity == 0 {
			store.Remove(r.Context(), productID)
		} else {
			store.UpdateQty(r.Context(), productID, *req.Quantity)
		}
		if err := store.Err(); err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(token, store))
	}
}

func (c *CartController) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, token, err := c.open(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		store.Remove(r.Context(), chi.URLParam(r, "productId"))
		if err := store.Err(); err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(token, store))
	}
}

func (c *CartController) Clear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, token, err := c.open(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		store.Clear(r.Context())
		if err := store.Err(); err != nil {
			responses.WriteError(r.Context(), c.logg, w, err)
			return
		}
		responses.WriteSuccess(w, viewOf(token, store))
	}
}

func viewOf(token string, store *cart.Store) cartView {
	items := store.Items()
	if items == nil {
		items = []cart.Item{}
	}
	return cartView{
		Token:    token,
		Items:    items,
		Count:    store.Count(),
		Subtotal: store.Subtotal(),
	}
}

func checkStock(product *catalog.Product, want int) error {
	if want > maxLineQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity may not exceed %d", maxLineQuantity))
	}
	if product.Quantity == nil || want <= *product.Quantity {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d of %s available", *product.Quantity, product.Name)).
		WithDetails(map[string]any{"productId": product.ID, "available": *product.Quantity, "requested": want})
}
