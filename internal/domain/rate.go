package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateNotFound indicates that no interest rate is effective for the account type.
var ErrRateNotFound = errors.New("interest rate not found")

// DefaultInterestRate is used when no rate row is effective for the account type.
var DefaultInterestRate = decimal.RequireFromString("2.5")

// MaxInterestRate is the largest rate the interest_rates table stores.
var MaxInterestRate = decimal.RequireFromString("999.99")

// InterestRate is an annual percentage rate effective from a date.
type InterestRate struct {
	ID            int64           `json:"id"`
	AccountType   AccountType     `json:"account_type"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveDate time.Time       `json:"effective_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CreateRateParams is the input data to publish a new rate.
type CreateRateParams struct {
	AccountType   AccountType     `json:"account_type"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveDate time.Time       `json:"effective_date"`
}
