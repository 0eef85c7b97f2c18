// Package store composes the repositories behind a single transactional boundary.
//
// Every balance-changing operation runs its reads and writes through the Querier
// handed to ExecTx, so row locks taken there are held until commit or rollback.
package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/internal/accountrepo"
	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/memberrepo"
	"github.com/go-petr/sacco/internal/transactionrepo"
	"github.com/go-petr/sacco/pkg/dbpkg"
)

// Querier provides data access used by the savings core.
type Querier interface {
	GetMember(ctx context.Context, id int64) (domain.Member, error)

	LockNumberSequence(ctx context.Context, prefix string) error
	CountAccountsByNumberPrefix(ctx context.Context, prefix string) (int64, error)
	CountOpenAccountsByType(ctx context.Context, memberID int64, accountType domain.AccountType) (int64, error)
	CreateAccount(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	GetAccount(ctx context.Context, id int64) (domain.Account, error)
	GetAccountForUpdate(ctx context.Context, id int64) (domain.Account, error)
	GetPrimaryAccount(ctx context.Context, memberID int64) (domain.Account, error)
	ListAccounts(ctx context.Context, memberID int64, limit, offset int32) ([]domain.Account, error)
	UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) (domain.Account, error)
	UpdateAccountStatus(ctx context.Context, id int64, status domain.AccountStatus) (domain.Account, error)

	CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (domain.Transaction, error)
	ListTransactions(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
	ListTransferTransactions(ctx context.Context, transferReference string) ([]domain.Transaction, error)
	SummarizeTransactions(ctx context.Context, accountID int64, filter domain.TransactionFilter) ([]domain.TransactionTotal, error)
}

// Store provides all queries plus transaction execution.
//
//go:generate mockgen -source store.go -destination store_mock.go -package store
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(q Querier) error) error
}

// Queries implements Querier on top of any SQLInterface.
type Queries struct {
	accounts     *accountrepo.RepoPGS
	members      *memberrepo.RepoPGS
	transactions *transactionrepo.RepoPGS
}

// NewQueries returns Queries bound to db, which may be a *sql.DB or a *sql.Tx.
func NewQueries(db dbpkg.SQLInterface) *Queries {
	return &Queries{
		accounts:     accountrepo.NewRepoPGS(db),
		members:      memberrepo.NewRepoPGS(db),
		transactions: transactionrepo.NewRepoPGS(db),
	}
}

// SQLStore provides all functions to execute SQL queries and transactions.
type SQLStore struct {
	*Queries
	db *sql.DB
}

// NewSQLStore returns SQLStore.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		Queries: NewQueries(db),
		db:      db,
	}
}

// ExecTx executes fn within a database transaction.
//
// The transaction is committed when fn returns nil and rolled back otherwise.
// The error returned by fn is passed through unchanged.
func (s *SQLStore) ExecTx(ctx context.Context, fn func(q Querier) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errors.WithStack(err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	if err := fn(NewQueries(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return errors.WithStack(err)
	}

	return nil
}

// GetMember returns the member with the given id.
func (q *Queries) GetMember(ctx context.Context, id int64) (domain.Member, error) {
	return q.members.Get(ctx, id)
}

// LockNumberSequence serializes account number allocation for the prefix.
func (q *Queries) LockNumberSequence(ctx context.Context, prefix string) error {
	return q.accounts.LockNumberSequence(ctx, prefix)
}

// CountAccountsByNumberPrefix counts accounts whose numbers start with prefix.
func (q *Queries) CountAccountsByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	return q.accounts.CountByNumberPrefix(ctx, prefix)
}

// CountOpenAccountsByType counts ACTIVE and FROZEN accounts of the type held by the member.
func (q *Queries) CountOpenAccountsByType(ctx context.Context, memberID int64, accountType domain.AccountType) (int64, error) {
	return q.accounts.CountOpenByType(ctx, memberID, accountType)
}

// CreateAccount inserts an account with zero balance.
func (q *Queries) CreateAccount(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	return q.accounts.Create(ctx, arg)
}

// GetAccount returns the account with the given id.
func (q *Queries) GetAccount(ctx context.Context, id int64) (domain.Account, error) {
	return q.accounts.Get(ctx, id)
}

// GetAccountForUpdate returns the account and locks its row.
func (q *Queries) GetAccountForUpdate(ctx context.Context, id int64) (domain.Account, error) {
	return q.accounts.GetForUpdate(ctx, id)
}

// GetPrimaryAccount returns the member's primary account.
func (q *Queries) GetPrimaryAccount(ctx context.Context, memberID int64) (domain.Account, error) {
	return q.accounts.GetPrimary(ctx, memberID)
}

// ListAccounts returns a page of the member's accounts.
func (q *Queries) ListAccounts(ctx context.Context, memberID int64, limit, offset int32) ([]domain.Account, error) {
	return q.accounts.List(ctx, memberID, limit, offset)
}

// UpdateAccountBalance sets the account balance.
func (q *Queries) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) (domain.Account, error) {
	return q.accounts.UpdateBalance(ctx, id, balance)
}

// UpdateAccountStatus sets the account status.
func (q *Queries) UpdateAccountStatus(ctx context.Context, id int64, status domain.AccountStatus) (domain.Account, error) {
	return q.accounts.UpdateStatus(ctx, id, status)
}

// CreateTransaction appends a ledger entry.
func (q *Queries) CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	return q.transactions.Create(ctx, arg)
}

// GetTransaction returns the ledger entry with the given id.
func (q *Queries) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return q.transactions.Get(ctx, id)
}

// ListTransactions returns a page of the account's ledger entries, newest first.
func (q *Queries) ListTransactions(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	return q.transactions.List(ctx, arg)
}

// ListTransferTransactions returns both legs of a transfer.
func (q *Queries) ListTransferTransactions(ctx context.Context, transferReference string) ([]domain.Transaction, error) {
	return q.transactions.ListByTransfer(ctx, transferReference)
}

// SummarizeTransactions returns per type totals of the account's ledger entries.
func (q *Queries) SummarizeTransactions(ctx context.Context, accountID int64, filter domain.TransactionFilter) ([]domain.TransactionTotal, error) {
	return q.transactions.Summarize(ctx, accountID, filter)
}
