package controllers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/gateway"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// CheckoutSender forwards a checkout body to the admin service.
type CheckoutSender interface {
	Send(ctx context.Context, origin gateway.RequestOrigin, req gateway.CheckoutRequest) (*gateway.Result, error)
}

// knownCheckoutFields are decoded into gateway.CheckoutRequest; anything
// else in the body is forwarded untouched.
var knownCheckoutFields = map[string]struct{}{
	"items":          {},
	"validateOnly":   {},
	"storeId":        {},
	"customerName":   {},
	"address":        {},
	"phone":          {},
	"paymentMethod":  {},
	"shippingMethod": {},
}

// CheckoutProxy normalizes the cart lines, forwards the request to the admin
// checkout endpoint and relays the admin's status and JSON body. A body that
// is not JSON is relayed as {}.
func CheckoutProxy(sender CheckoutSender, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sender == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "checkout is not configured"))
			return
		}

		var raw map[string]json.RawMessage
		if err := validators.DecodeLenientJSONBody(r, &raw); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req, err := checkoutRequestFromBody(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.StoreID == "" {
			req.StoreID = middleware.StoreIDFromContext(r.Context())
		}
		req.IdempotencyKey = strings.TrimSpace(r.Header.Get(middleware.IdempotencyKeyHeader))

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"validate_only": req.ValidateOnly,
				"lines":         len(req.Items),
			})
		}

		res, err := sender.Send(ctx, requestOrigin(r), req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil && !res.OK() {
			logg.Warn(logg.WithFields(ctx, map[string]any{"status": res.StatusCode, "url": res.URL}), "checkout rejected by admin")
		}
		responses.WritePassthrough(w, res.StatusCode, res.Body, res.IsJSON())
	}
}

func checkoutRequestFromBody(raw map[string]json.RawMessage) (gateway.CheckoutRequest, error) {
	var req gateway.CheckoutRequest

	if itemsRaw, ok := raw["items"]; ok && !isJSONNull(itemsRaw) {
		var items []map[string]any
		if err := json.Unmarshal(itemsRaw, &items); err != nil {
			return req, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "items must be an array of objects")
		}
		req.Items = make([]gateway.RequestItem, 0, len(items))
		for _, item := range items {
			req.Items = append(req.Items, normalizeItem(item))
		}
	}

	var flags struct {
		ValidateOnly   any    `json:"validateOnly"`
		StoreID        string `json:"storeId"`
		CustomerName   string `json:"customerName"`
		Address        string `json:"address"`
		Phone          string `json:"phone"`
		PaymentMethod  string `json:"paymentMethod"`
		ShippingMethod string `json:"shippingMethod"`
	}
	known := make(map[string]json.RawMessage, len(knownCheckoutFields))
	for key := range knownCheckoutFields {
		if key == "items" {
			continue
		}
		if v, ok := raw[key]; ok {
			known[key] = v
		}
	}
	encoded, _ := json.Marshal(known)
	if err := json.Unmarshal(encoded, &flags); err != nil {
		return req, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout fields")
	}
	req.ValidateOnly = truthy(flags.ValidateOnly)
	req.StoreID = strings.TrimSpace(flags.StoreID)
	req.CustomerName = strings.TrimSpace(flags.CustomerName)
	req.Address = strings.TrimSpace(flags.Address)
	req.Phone = strings.TrimSpace(flags.Phone)
	req.PaymentMethod = strings.TrimSpace(flags.PaymentMethod)
	req.ShippingMethod = strings.TrimSpace(flags.ShippingMethod)

	for key, value := range raw {
		if _, ok := knownCheckoutFields[key]; ok {
			continue
		}
		if req.Extra == nil {
			req.Extra = map[string]json.RawMessage{}
		}
		req.Extra[key] = value
	}
	return req, nil
}

// normalizeItem trims the id and name and coerces the quantity to an
// integer, 0 when it is not a number.
func normalizeItem(item map[string]any) gateway.RequestItem {
	out := gateway.RequestItem{
		ProductID: strings.TrimSpace(scalarString(item["productId"])),
		Quantity:  coerceQuantity(item["quantity"]),
	}
	if name, ok := item["name"].(string); ok {
		out.Name = strings.TrimSpace(name)
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func coerceQuantity(v any) int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case float64:
		return t != 0
	}
	return false
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
