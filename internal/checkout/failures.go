package checkout

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront/internal/cart"
)

// StockFailure is one line the admin refused, normalized from the several
// field spellings the admin has used.
type StockFailure struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Available *int   `json:"available,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// FailureLine is a StockFailure ready for display next to the cart.
type FailureLine struct {
	ProductID string `json:"productId"`
	Label     string `json:"label"`
	Requested int    `json:"requested"`
	Available string `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

const unknownAvailability = "unknown"

// rejection is the useful part of a non-2xx checkout body.
type rejection struct {
	Failures []StockFailure
	Message  string
}

func parseRejection(body json.RawMessage) rejection {
	var doc map[string]any
	if len(body) == 0 || json.Unmarshal(body, &doc) != nil || doc == nil {
		return rejection{}
	}

	var out rejection
	if failed, ok := doc["failed"].([]any); ok {
		for _, entry := range failed {
			fields, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			out.Failures = append(out.Failures, normalizeFailure(fields))
		}
	}

	switch e := doc["error"].(type) {
	case string:
		out.Message = strings.TrimSpace(e)
	case map[string]any:
		out.Message = stringField(e, "message")
	}
	if out.Message == "" {
		out.Message = stringField(doc, "message")
	}
	return out
}

func normalizeFailure(fields map[string]any) StockFailure {
	f := StockFailure{
		ProductID: firstString(fields, "requestedProductId", "productId"),
		Name:      firstString(fields, "requestedName", "name"),
		Reason:    stringField(fields, "reason"),
	}
	f.Available = availability(fields["available"])
	return f
}

func availability(v any) *int {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		n := int(t)
		return &n
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return &n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			n := int(f)
			return &n
		}
	}
	return nil
}

func firstString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := stringField(fields, key); v != "" {
			return v
		}
	}
	return ""
}

func stringField(fields map[string]any, key string) string {
	switch t := fields[key].(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// DescribeFailures pairs failures with the cart lines they refer to. The
// label prefers the name stored in the cart, then the admin's name, then the id.
func DescribeFailures(failures []StockFailure, items []cart.Item) []FailureLine {
	byID := make(map[string]cart.Item, len(items))
	for _, item := range items {
		byID[item.Product.ID] = item
	}

	lines := make([]FailureLine, 0, len(failures))
	for _, f := range failures {
		line := FailureLine{ProductID: f.ProductID, Reason: f.Reason, Available: unknownAvailability}
		item, inCart := byID[f.ProductID]
		switch {
		case inCart && item.Product.Name != "":
			line.Label = item.Product.Name
		case f.Name != "":
			line.Label = f.Name
		default:
			line.Label = f.ProductID
		}
		if inCart {
			line.Requested = item.Quantity
		}
		if f.Available != nil {
			line.Available = strconv.Itoa(*f.Available)
		}
		lines = append(lines, line)
	}
	return lines
}

// String renders the line the way the checkout form shows it.
func (l FailureLine) String() string {
	var b strings.Builder
	b.WriteString(l.Label)
	if l.Requested > 0 {
		b.WriteString(" requested: ")
		b.WriteString(strconv.Itoa(l.Requested))
	}
	b.WriteString(" available: ")
	b.WriteString(l.Available)
	if l.Reason != "" {
		b.WriteString(" (")
		b.WriteString(l.Reason)
		b.WriteString(")")
	}
	return b.String()
}
