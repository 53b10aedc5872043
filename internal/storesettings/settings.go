package storesettings

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// Method is one payment or shipping option offered by the store.
type Method struct {
	Value   string `json:"value"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// Settings is what the admin service exposes for checkout. Found is false
// when no candidate answered.
type Settings struct {
	PaymentMethods  []Method `json:"paymentMethods"`
	ShippingMethods []Method `json:"shippingMethods"`
	Found           bool     `json:"found"`
	Source          string   `json:"source,omitempty"`
}

// DefaultPayment is the first enabled payment method, or "".
func (s Settings) DefaultPayment() string {
	return firstEnabled(s.PaymentMethods)
}

// DefaultShipping is the first enabled shipping method, or "".
func (s Settings) DefaultShipping() string {
	return firstEnabled(s.ShippingMethods)
}

// PaymentEnabled reports whether value is an enabled payment method.
func (s Settings) PaymentEnabled(value string) bool {
	return isEnabled(s.PaymentMethods, value)
}

// ShippingEnabled reports whether value is an enabled shipping method.
func (s Settings) ShippingEnabled(value string) bool {
	return isEnabled(s.ShippingMethods, value)
}

func firstEnabled(methods []Method) string {
	for _, m := range methods {
		if m.Enabled {
			return m.Value
		}
	}
	return ""
}

func isEnabled(methods []Method, value string) bool {
	if value == "" {
		return false
	}
	for _, m := range methods {
		if m.Value == value {
			return m.Enabled
		}
	}
	return false
}

type document struct {
	PaymentMethods  []methodEntry `json:"paymentMethods"`
	ShippingMethods []methodEntry `json:"shippingMethods"`
}

// methodEntry accepts {method|value, label?, status} objects and bare strings.
type methodEntry struct {
	method Method
	ok     bool
}

func (e *methodEntry) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return err
		}
		value = strings.TrimSpace(value)
		e.method = Method{Value: value, Label: value}
		e.ok = value != ""
		return nil
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		// Numbers, arrays and nulls are skipped.
		return nil
	}
	value := scalarString(fields["method"])
	if value == "" {
		value = scalarString(fields["value"])
	}
	if value == "" {
		return nil
	}
	label := scalarString(fields["label"])
	if label == "" {
		label = value
	}
	status := enums.MethodStatus(scalarString(fields["status"]))
	e.method = Method{Value: value, Label: label, Enabled: status.Enabled()}
	e.ok = true
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func collect(entries []methodEntry) []Method {
	out := make([]Method, 0, len(entries))
	for _, e := range entries {
		if e.ok {
			out = append(out, e.method)
		}
	}
	return out
}

// parse accepts only a JSON object body.
func parse(raw []byte) (Settings, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Settings{}, false
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Settings{}, false
	}
	return Settings{
		PaymentMethods:  collect(doc.PaymentMethods),
		ShippingMethods: collect(doc.ShippingMethods),
		Found:           true,
	}, true
}
