package domain

import "errors"

var (
	// ErrSourceNotFound indicates that the source member has no account to debit.
	ErrSourceNotFound = errors.New("source account not found")
	// ErrDestinationNotFound indicates that the destination member has no account to credit.
	ErrDestinationNotFound = errors.New("destination account not found")
	// ErrSameAccount indicates that both transfer legs resolve to one account.
	ErrSameAccount = errors.New("source and destination accounts are the same")
	// ErrTransferNotFound indicates that no ledger entries carry the transfer reference.
	ErrTransferNotFound = errors.New("transfer not found")
)

// CreateTransferParams is the input data for the transfer transaction.
type CreateTransferParams struct {
	SourceMemberID      int64
	DestinationMemberID int64
	Amount              string
	Description         string
	PaymentMethod       PaymentMethod
}

// TransferResult is the result of the transfer transaction.
type TransferResult struct {
	Reference string      `json:"reference"`
	Debit     Transaction `json:"debit_transaction"`
	Credit    Transaction `json:"credit_transaction"`
}
