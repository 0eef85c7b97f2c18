// Package web defines common components for a web application.
package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Response holds the common response type for all APIs.
type Response struct {
	AccessToken          string `json:"access_token,omitempty"`
	AccessTokenExpiresAt string `json:"access_token_expires_at,omitempty"`
	Data                 any    `json:"data,omitempty"`
	Error                string `json:"error,omitempty"`
}

// Error wraps a given err into json friendly response.
func Error(err error) Response {
	return Response{Error: err.Error()}
}

// BindingError turns a request binding error into a json friendly response.
//
// Validation errors are reported for the first failed field only.
func BindingError(err error) Response {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		field := ve[0]
		return Response{Error: field.Field() + GetErrorMsg(field)}
	}

	return Response{Error: err.Error()}
}

// GetErrorMsg returns human readable suffix for the failed validation tag.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " field is required"
	case "min":
		return " must be at least " + fe.Param()
	case "max":
		return " must be at most " + fe.Param()
	case "alphanum":
		return " accepts only alphanumeric characters"
	case "account_type":
		return " is not a supported account type"
	case "payment_method":
		return " is not a supported payment method"
	case "amount":
		return " must be a positive amount with at most 2 decimal places"
	}

	return " is invalid"
}

// ErrInternal replaces infrastructure errors in responses so their details stay in the logs.
var ErrInternal = errors.New("internal")
