// Package transactionrepo manages repository layer of ledger transactions.
package transactionrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/pkg/dbpkg"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const transactionColumns = `
	id, account_id, transaction_type, amount, balance_after, reference,
	transfer_reference, reversal_of, payment_method, description, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var (
		t           domain.Transaction
		transferRef sql.NullString
		reversalOf  sql.NullInt64
	)

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Type,
		&t.Amount,
		&t.BalanceAfter,
		&t.Reference,
		&transferRef,
		&reversalOf,
		&t.PaymentMethod,
		&t.Description,
		&t.CreatedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	t.TransferReference = transferRef.String
	t.ReversalOf = reversalOf.Int64

	return t, nil
}

const createQuery = `
INSERT INTO transactions (
    account_id, transaction_type, amount, balance_after, reference,
    transfer_reference, reversal_of, payment_method, description
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9
) RETURNING` + transactionColumns

// Create appends the ledger entry and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	transferRef := sql.NullString{String: arg.TransferReference, Valid: arg.TransferReference != ""}
	reversalOf := sql.NullInt64{Int64: arg.ReversalOf, Valid: arg.ReversalOf != 0}

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.AccountID,
		arg.Type,
		arg.Amount,
		arg.BalanceAfter,
		arg.Reference,
		transferRef,
		reversalOf,
		arg.PaymentMethod,
		arg.Description,
	)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transactions_reference_key":
				return t, domain.ErrDuplicateReference
			case "transactions_reversal_of_key":
				return t, domain.ErrAlreadyReversed
			case "transactions_reversal_of_fkey":
				return t, domain.ErrTransactionNotFound
			case "transactions_account_id_fkey":
				return t, domain.ErrAccountNotFound
			case "transactions_amount_check":
				return t, domain.ErrInvalidAmount
			}

			if pqErr.Code.Name() == "numeric_value_out_of_range" {
				return t, domain.ErrInvalidAmount
			}
		}

		return t, errors.WithStack(err)
	}

	return t, nil
}

const getQuery = `
SELECT` + transactionColumns + `
FROM transactions
WHERE id = $1
`

// Get returns the ledger entry with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, domain.ErrTransactionNotFound
		}

		zerolog.Ctx(ctx).Error().Err(err).Msgf("Get(ctx, %d)", id)

		return t, errors.WithStack(err)
	}

	return t, nil
}

// Both bounds are optional: a NULL bound does not filter.
const rangeCondition = `
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)`

func bound(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

const listQuery = `
SELECT` + transactionColumns + `
FROM transactions
WHERE account_id = $1` + rangeCondition + `
ORDER BY id DESC
LIMIT $4 OFFSET $5
`

// List returns the account's ledger entries in the filter range, newest first.
func (r *RepoPGS) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	return r.list(ctx, listQuery, arg.AccountID, bound(arg.Since), bound(arg.Until), arg.Limit, arg.Offset)
}

const summarizeQuery = `
SELECT transaction_type, COUNT(*), COALESCE(SUM(amount), 0)
FROM transactions
WHERE account_id = $1` + rangeCondition + `
GROUP BY transaction_type
ORDER BY transaction_type
`

// Summarize returns entry counts and amount totals per transaction type in the filter range.
func (r *RepoPGS) Summarize(ctx context.Context, accountID int64, f domain.TransactionFilter) ([]domain.TransactionTotal, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, summarizeQuery, accountID, bound(f.Since), bound(f.Until))
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	totals := []domain.TransactionTotal{}

	for rows.Next() {
		var total domain.TransactionTotal

		if err := rows.Scan(&total.Type, &total.Count, &total.Amount); err != nil {
			l.Error().Err(err).Send()
			return nil, errors.WithStack(err)
		}

		totals = append(totals, total)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errors.WithStack(err)
	}

	return totals, nil
}

const listByTransferQuery = `
SELECT` + transactionColumns + `
FROM transactions
WHERE transfer_reference = $1
ORDER BY id
`

// ListByTransfer returns both legs of the transfer in posting order.
func (r *RepoPGS) ListByTransfer(ctx context.Context, transferReference string) ([]domain.Transaction, error) {
	return r.list(ctx, listByTransferQuery, transferReference)
}

func (r *RepoPGS) list(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errors.WithStack(err)
		}

		items = append(items, t)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errors.WithStack(err)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errors.WithStack(err)
	}

	return items, nil
}
