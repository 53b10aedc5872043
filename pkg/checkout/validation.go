package checkout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// LineInput is one cart line about to be sent to the admin.
type LineInput struct {
	ProductID string
	Name      string
	Quantity  int
}

// LineViolationDetail exposes the data returned to callers when a line is unusable.
type LineViolationDetail struct {
	Index     int    `json:"index"`
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// ValidateLines ensures the order is non-empty and every line names a
// product with a positive quantity.
func ValidateLines(items []LineInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	var violations []LineViolationDetail
	for i, item := range items {
		reason := ""
		switch {
		case strings.TrimSpace(item.ProductID) == "":
			reason = "missing product id"
		case item.Quantity < 1:
			reason = "quantity must be at least 1"
		default:
			continue
		}
		violations = append(violations, LineViolationDetail{
			Index:     i,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Reason:    reason,
		})
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%d cart line(s) are invalid", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

// CustomerDetails is what the shopper fills in before committing an order.
type CustomerDetails struct {
	CustomerName   string `json:"customerName" validate:"required,max=200"`
	Address        string `json:"address" validate:"required,max=500"`
	Phone          string `json:"phone" validate:"required,max=40"`
	PaymentMethod  string `json:"paymentMethod" validate:"required"`
	ShippingMethod string `json:"shippingMethod" validate:"required"`
}

// Normalize trims every field.
func (d CustomerDetails) Normalize() CustomerDetails {
	return CustomerDetails{
		CustomerName:   strings.TrimSpace(d.CustomerName),
		Address:        strings.TrimSpace(d.Address),
		Phone:          strings.TrimSpace(d.Phone),
		PaymentMethod:  strings.TrimSpace(d.PaymentMethod),
		ShippingMethod: strings.TrimSpace(d.ShippingMethod),
	}
}

// ValidateCustomer checks the required customer fields. Details map json
// field names to messages.
func ValidateCustomer(d CustomerDetails) error {
	if err := validate.Struct(d); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "please complete the checkout form").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}
