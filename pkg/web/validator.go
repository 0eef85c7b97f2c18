package web

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type supporter interface {
	IsSupported() bool
}

// ValidSupported validates enum like fields which know their supported values.
var ValidSupported validator.Func = func(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(supporter); ok {
		return s.IsSupported()
	}

	return false
}

// maxAmount is the largest value a numeric(14,2) column holds.
var maxAmount = decimal.RequireFromString("999999999999.99")

// ValidAmount validates a positive decimal string with at most 2 decimal places
// that fits a stored balance.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}

	return d.IsPositive() && d.Equal(d.Round(2)) && d.LessThanOrEqual(maxAmount)
}

// RegisterValidators adds the custom binding tags used by request structs.
func RegisterValidators(v *validator.Validate) error {
	validations := map[string]validator.Func{
		"account_type":   ValidSupported,
		"payment_method": ValidSupported,
		"amount":         ValidAmount,
	}

	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	return nil
}
