package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotActive indicates that the account does not accept postings in its status.
	ErrAccountNotActive = errors.New("account not active")
	// ErrInsufficientFunds indicates that the posting would drive the balance below the floor.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount indicates invalid amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrUnknownTransactionType indicates unsupported transaction type.
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	// ErrDuplicateReference indicates that the transaction reference already exists.
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	// ErrUnknownPaymentMethod indicates unsupported payment method.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	// ErrTransactionNotFound indicates that the ledger entry does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrNotReversible indicates that the ledger entry cannot be reversed.
	ErrNotReversible = errors.New("transaction not reversible")
	// ErrAlreadyReversed indicates that the ledger entry already has a reversal.
	ErrAlreadyReversed = errors.New("transaction already reversed")
	// ErrInvalidDateRange indicates that the end of a date range precedes its start.
	ErrInvalidDateRange = errors.New("invalid date range")
)

// MaxAmount is the largest amount a balance or ledger entry can hold.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// TransactionType is the kind of ledger entry.
type TransactionType string

// Ledger entry types.
const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeCharge     TransactionType = "CHARGE"
)

// IsSupported returns true if the transaction type is known.
func (t TransactionType) IsSupported() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeCharge:
		return true
	}

	return false
}

// PaymentMethod is the channel money moved through.
type PaymentMethod string

// Payment methods.
const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodInternal     PaymentMethod = "INTERNAL"
)

// IsSupported returns true if the payment method is known.
func (m PaymentMethod) IsSupported() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMobileMoney, PaymentMethodBankTransfer, PaymentMethodInternal:
		return true
	}

	return false
}

// Transaction is an immutable ledger entry of one account.
type Transaction struct {
	ID                int64           `json:"id"`
	AccountID         int64           `json:"account_id"`
	Type              TransactionType `json:"transaction_type"`
	Amount            decimal.Decimal `json:"amount"`
	BalanceAfter      decimal.Decimal `json:"balance_after"`
	Reference         string          `json:"reference"`
	TransferReference string          `json:"transfer_reference,omitempty"`
	ReversalOf        int64           `json:"reversal_of,omitempty"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	Description       string          `json:"description"`
	CreatedAt         time.Time       `json:"created_at"`
}

// CreateTransactionParams is the input data to insert a ledger entry.
type CreateTransactionParams struct {
	AccountID         int64
	Type              TransactionType
	Amount            decimal.Decimal
	BalanceAfter      decimal.Decimal
	Reference         string
	TransferReference string
	ReversalOf        int64
	PaymentMethod     PaymentMethod
	Description       string
}

// ApplyTransactionParams is the input data to post a balance change to an account.
type ApplyTransactionParams struct {
	AccountID         int64           `json:"account_id"`
	Type              TransactionType `json:"transaction_type"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	Reference         string          `json:"reference,omitempty"`
	TransferReference string          `json:"transfer_reference,omitempty"`
}

// ReversalType returns the entry type that compensates an entry of type t.
func (t TransactionType) ReversalType() TransactionType {
	if t == TransactionTypeDeposit {
		return TransactionTypeWithdrawal
	}

	return TransactionTypeDeposit
}

// TransactionFilter narrows ledger listings to entries created in [Since, Until).
// A zero bound is open.
type TransactionFilter struct {
	Since time.Time
	Until time.Time
}

// NewTransactionFilter converts inclusive calendar dates into a TransactionFilter.
func NewTransactionFilter(startDate, endDate time.Time) TransactionFilter {
	f := TransactionFilter{Since: startDate}

	if !endDate.IsZero() {
		f.Until = endDate.AddDate(0, 0, 1)
	}

	return f
}

// Validate returns ErrInvalidDateRange when the range is empty.
func (f TransactionFilter) Validate() error {
	if !f.Since.IsZero() && !f.Until.IsZero() && !f.Until.After(f.Since) {
		return fmt.Errorf("%w: %s is not before %s", ErrInvalidDateRange,
			f.Since.Format(time.RFC3339), f.Until.Format(time.RFC3339))
	}

	return nil
}

// ListTransactionsParams is the input data to page through the ledger of an account.
type ListTransactionsParams struct {
	AccountID int64
	TransactionFilter
	Limit  int32
	Offset int32
}

// TransactionTotal aggregates the ledger entries of one type.
type TransactionTotal struct {
	Type   TransactionType
	Count  int64
	Amount decimal.Decimal
}

// TransactionSummary aggregates the ledger of an account over a date range.
type TransactionSummary struct {
	AccountID        int64           `json:"account_id"`
	Count            int64           `json:"transaction_count"`
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	TotalCharges     decimal.Decimal `json:"total_charges"`
	NetChange        decimal.Decimal `json:"net_change"`
}
