package checkout

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/gateway"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

func TestParseRejectionFieldSpellings(t *testing.T) {
	body := json.RawMessage(`{
		"error": {"message": "out of stock"},
		"failed": [
			{"requestedProductId": "P1", "requestedName": "Kopi", "available": 1},
			{"productId": "P2", "name": "Teh", "available": "3"},
			{"productId": "P3", "available": "lots", "reason": "discontinued"},
			"garbage"
		]
	}`)

	rej := parseRejection(body)
	require.Equal(t, "out of stock", rej.Message)
	require.Len(t, rej.Failures, 3)

	assert.Equal(t, "P1", rej.Failures[0].ProductID)
	assert.Equal(t, "Kopi", rej.Failures[0].Name)
	require.NotNil(t, rej.Failures[0].Available)
	assert.Equal(t, 1, *rej.Failures[0].Available)

	require.NotNil(t, rej.Failures[1].Available)
	assert.Equal(t, 3, *rej.Failures[1].Available)

	assert.Nil(t, rej.Failures[2].Available)
	assert.Equal(t, "discontinued", rej.Failures[2].Reason)
}

func TestParseRejectionMessages(t *testing.T) {
	assert.Equal(t, "nope", parseRejection(json.RawMessage(`{"error":"nope"}`)).Message)
	assert.Equal(t, "closed", parseRejection(json.RawMessage(`{"message":"closed"}`)).Message)
	assert.Empty(t, parseRejection(json.RawMessage(`[1,2]`)).Message)
	assert.Empty(t, parseRejection(nil).Failures)
}

func TestDescribeFailuresLabels(t *testing.T) {
	one := 1
	items := []cart.Item{
		{Product: cart.ProductSnapshot{ID: "P1", Name: "Kopi Susu"}, Quantity: 2},
		{Product: cart.ProductSnapshot{ID: "P2"}, Quantity: 1},
	}
	lines := DescribeFailures([]StockFailure{
		{ProductID: "P1", Name: "server name", Available: &one},
		{ProductID: "P2", Name: "Teh"},
		{ProductID: "P9"},
	}, items)

	require.Len(t, lines, 3)
	assert.Equal(t, "Kopi Susu", lines[0].Label)
	assert.Equal(t, "Kopi Susu requested: 2 available: 1", lines[0].String())
	assert.Equal(t, "Teh", lines[1].Label)
	assert.Equal(t, "unknown", lines[1].Available)
	assert.Equal(t, "P9", lines[2].Label)
	assert.Equal(t, 0, lines[2].Requested)
	assert.Equal(t, "P9 available: unknown", lines[2].String())
}

func TestKindOf(t *testing.T) {
	cases := map[enums.CheckoutErrorKind]error{
		enums.CheckoutErrorValidationFailed:   pkgerrors.New(pkgerrors.CodeInsufficientStock, "short"),
		enums.CheckoutErrorNetworkUnavailable: pkgerrors.New(pkgerrors.CodeDependency, "down"),
		enums.CheckoutErrorServerRejected:     pkgerrors.New(pkgerrors.CodeUpstreamRejected, "no"),
		enums.CheckoutErrorConfiguration:      pkgerrors.New(pkgerrors.CodeConfiguration, "unset"),
		enums.CheckoutErrorUnknown:            errors.New("plain"),
	}
	for want, err := range cases {
		assert.Equal(t, want, KindOf(err), "error %v", err)
	}
	assert.Equal(t, enums.CheckoutErrorKind(""), KindOf(nil))
}

func TestRejectionError(t *testing.T) {
	res := &gateway.Result{StatusCode: 500, Raw: []byte("oops")}
	assert.True(t, pkgerrors.IsCode(rejectionError(res, rejection{}, ""), pkgerrors.CodeDependency))

	res = &gateway.Result{StatusCode: 400, Body: json.RawMessage(`{}`)}
	err := rejectionError(res, rejection{}, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUpstreamRejected))
	assert.Equal(t, "checkout rejected with status 400", pkgerrors.As(err).Message())

	err = rejectionError(res, rejection{Message: "store closed"}, "")
	assert.Equal(t, "store closed", pkgerrors.As(err).Message())
}

func TestOrderID(t *testing.T) {
	assert.Equal(t, "a", orderID(json.RawMessage(`{"orderId":"a","id":"b"}`)))
	assert.Equal(t, "b", orderID(json.RawMessage(`{"id":"b"}`)))
	assert.Equal(t, "42", orderID(json.RawMessage(`{"order":{"id":42}}`)))
	assert.Empty(t, orderID(nil))
}
