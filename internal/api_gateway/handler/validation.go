package handler

import (
	"errors"
	"reflect"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/domain/money"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Nigerian mobile numbers in local (080...) or international (+234 80...) form.
var phonePattern = regexp.MustCompile(`^(\+?234|0)[789][01]\d{8}$`)

var registerOnce sync.Once

// RegisterValidators adds the money and phone tags to gin's validator. It is safe to call
// more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		_ = v.RegisterValidation("amount", validateAmount)
		_ = v.RegisterValidation("price", validatePrice)
		_ = v.RegisterValidation("ngphone", validatePhone)
	})
}

// decimalValue hands decimals to the validator as strings so field tags apply to them
// instead of the struct internals.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// amount: strictly positive with at most four decimal places.
func validateAmount(fl validator.FieldLevel) bool {
	d, err := money.Parse(fl.Field().String())
	return err == nil && money.RequirePositive(d) == nil
}

// price: zero or positive with at most four decimal places.
func validatePrice(fl validator.FieldLevel) bool {
	d, err := money.Parse(fl.Field().String())
	return err == nil && money.RequireNonNegative(d) == nil
}

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

// fieldErrors flattens validator errors into response details. It returns nil for
// errors that did not come from the validator, such as malformed JSON.
func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "amount":
		return fe.Field() + " must be a positive amount with at most 4 decimal places"
	case "price":
		return fe.Field() + " must not be negative and has at most 4 decimal places"
	case "ngphone":
		return fe.Field() + " must be a Nigerian mobile number"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}
