// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUnknownAccountType indicates that the account type is not one of the supported types.
	ErrUnknownAccountType = errors.New("unknown account type")
	// ErrInvalidMember indicates that the member does not exist or is not active.
	ErrInvalidMember = errors.New("invalid member")
	// ErrIneligibleAccountType indicates that the member already holds the maximum number of accounts of the type.
	ErrIneligibleAccountType = errors.New("member not eligible for this account type")
	// ErrInsufficientInitialDeposit indicates that the initial deposit is below the type minimum balance.
	ErrInsufficientInitialDeposit = errors.New("insufficient initial deposit")
	// ErrAlreadyClosed indicates that the account is closed.
	ErrAlreadyClosed = errors.New("account already closed")
	// ErrNotFrozen indicates that the account is not frozen.
	ErrNotFrozen = errors.New("account is not frozen")
	// ErrAccountNumberTaken indicates that the generated account number already exists.
	ErrAccountNumberTaken = errors.New("account number already exists")
)

// AccountType is the kind of savings product.
type AccountType string

// Supported account types.
const (
	AccountTypeRegular  AccountType = "REGULAR"
	AccountTypeFixed    AccountType = "FIXED"
	AccountTypeChildren AccountType = "CHILDREN"
	AccountTypeGroup    AccountType = "GROUP"
)

// MaxAccountsPerMember limits open accounts of the capped types.
const MaxAccountsPerMember = 3

type accountTypeRules struct {
	prefix         string
	minimumBalance decimal.Decimal
	capped         bool
}

var accountTypes = map[AccountType]accountTypeRules{
	AccountTypeRegular:  {prefix: "SAV", minimumBalance: decimal.NewFromInt(100)},
	AccountTypeFixed:    {prefix: "FIX", minimumBalance: decimal.NewFromInt(1000), capped: true},
	AccountTypeChildren: {prefix: "CHD", minimumBalance: decimal.NewFromInt(50), capped: true},
	AccountTypeGroup:    {prefix: "GRP", minimumBalance: decimal.NewFromInt(500)},
}

// AccountTypes lists supported account types in display order.
var AccountTypes = []AccountType{
	AccountTypeRegular,
	AccountTypeFixed,
	AccountTypeChildren,
	AccountTypeGroup,
}

// IsSupported returns true if the account type is known.
func (t AccountType) IsSupported() bool {
	_, ok := accountTypes[t]
	return ok
}

// MinimumBalance returns the balance floor of the account type.
func (t AccountType) MinimumBalance() decimal.Decimal {
	return accountTypes[t].minimumBalance
}

// NumberPrefix returns the account number prefix of the account type.
func (t AccountType) NumberPrefix() string {
	return accountTypes[t].prefix
}

// Capped reports whether a member may hold only MaxAccountsPerMember open accounts of the type.
func (t AccountType) Capped() bool {
	return accountTypes[t].capped
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

// Account statuses.
const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusFrozen  AccountStatus = "FROZEN"
	AccountStatusClosed  AccountStatus = "CLOSED"
	AccountStatusDormant AccountStatus = "DORMANT"
)

// Account holds member savings.
type Account struct {
	ID             int64           `json:"id"`
	MemberID       int64           `json:"member_id"`
	Number         string          `json:"account_number"`
	Type           AccountType     `json:"account_type"`
	Balance        decimal.Decimal `json:"balance"`
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	Status         AccountStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
}

// CreateAccountParams is the input data to insert an account row.
type CreateAccountParams struct {
	MemberID       int64
	Number         string
	Type           AccountType
	MinimumBalance decimal.Decimal
	InterestRate   decimal.Decimal
}

// OpenAccountParams is the input data to open an account for a member.
type OpenAccountParams struct {
	MemberID       int64           `json:"member_id"`
	Type           AccountType     `json:"account_type"`
	InitialDeposit decimal.Decimal `json:"initial_deposit"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
}

// MemberSummary aggregates all accounts of a member.
type MemberSummary struct {
	Member         Member          `json:"member"`
	TotalAccounts  int             `json:"total_accounts"`
	ActiveAccounts int             `json:"active_accounts"`
	TotalBalance   decimal.Decimal `json:"total_balance"`
	Accounts       []Account       `json:"accounts"`
}
