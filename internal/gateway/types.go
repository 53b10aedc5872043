package gateway

import (
	"bytes"
	"encoding/json"
)

// RequestItem is one checkout line. Name is the admin's fallback lookup key.
type RequestItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest is the body shared by validate-only and commit calls.
type CheckoutRequest struct {
	Items          []RequestItem `json:"items"`
	ValidateOnly   bool          `json:"validateOnly"`
	StoreID        string        `json:"storeId,omitempty"`
	CustomerName   string        `json:"customerName,omitempty"`
	Address        string        `json:"address,omitempty"`
	Phone          string        `json:"phone,omitempty"`
	PaymentMethod  string        `json:"paymentMethod,omitempty"`
	ShippingMethod string        `json:"shippingMethod,omitempty"`

	// Extra carries caller fields the storefront does not model. Known
	// fields always win over Extra entries with the same name.
	Extra map[string]json.RawMessage `json:"-"`
	// IdempotencyKey is sent as the Idempotency-Key header on commits.
	IdempotencyKey string `json:"-"`
}

type checkoutRequestAlias CheckoutRequest

func (r CheckoutRequest) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(checkoutRequestAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(r.Extra)+8)
	for k, v := range r.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Result is the admin's answer, passed through without interpretation.
type Result struct {
	URL        string
	StatusCode int
	// Body is the response when it parsed as JSON, nil otherwise.
	Body json.RawMessage
	Raw  []byte
}

// OK reports a 2xx status.
func (r *Result) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// IsJSON reports whether the body parsed as JSON.
func (r *Result) IsJSON() bool {
	return r != nil && r.Body != nil
}

// JSONOrEmpty returns the JSON body or {} when the admin sent something else.
func (r *Result) JSONOrEmpty() json.RawMessage {
	if r.IsJSON() {
		return r.Body
	}
	return json.RawMessage(`{}`)
}

func newResult(url string, status int, raw []byte) *Result {
	res := &Result{URL: url, StatusCode: status, Raw: raw}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		res.Body = json.RawMessage(trimmed)
	}
	return res
}
