// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/pkg/dbpkg"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const accountColumns = `
	id, member_id, account_number, account_type, balance, minimum_balance,
	interest_rate, status, created_at, updated_at, closed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (domain.Account, error) {
	var (
		a        domain.Account
		closedAt sql.NullTime
	)

	err := row.Scan(
		&a.ID,
		&a.MemberID,
		&a.Number,
		&a.Type,
		&a.Balance,
		&a.MinimumBalance,
		&a.InterestRate,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&closedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}

	if closedAt.Valid {
		t := closedAt.Time
		a.ClosedAt = &t
	}

	return a, nil
}

const createQuery = `
INSERT INTO accounts (
    member_id, account_number, account_type, minimum_balance, interest_rate
) VALUES (
    $1, $2, $3, $4, $5
) RETURNING` + accountColumns

// Create inserts an ACTIVE account with zero balance and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.MemberID,
		arg.Number,
		arg.Type,
		arg.MinimumBalance,
		arg.InterestRate,
	)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "accounts_member_id_fkey":
				return a, domain.ErrMemberNotFound
			case "accounts_account_number_key":
				return a, domain.ErrAccountNumberTaken
			}
		}

		return a, errors.WithStack(err)
	}

	return a, nil
}

const getQuery = `
SELECT` + accountColumns + `
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, getQuery, id)
}

const getForUpdateQuery = `
SELECT` + accountColumns + `
FROM accounts
WHERE id = $1
FOR UPDATE
`

// GetForUpdate returns the account with the given id and holds its row lock
// until the surrounding transaction ends.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, getForUpdateQuery, id)
}

func (r *RepoPGS) get(ctx context.Context, query string, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			l.Info().Int64("account_id", id).Msg("account not found")
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errors.WithStack(err)
	}

	return a, nil
}

const getPrimaryQuery = `
SELECT` + accountColumns + `
FROM accounts
WHERE member_id = $1 AND status <> 'CLOSED'
ORDER BY (account_type = 'REGULAR') DESC, created_at, id
LIMIT 1
`

// GetPrimary returns the oldest open REGULAR account of the member,
// or the oldest open account of any type when the member has no REGULAR one.
func (r *RepoPGS) GetPrimary(ctx context.Context, memberID int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, getPrimaryQuery, memberID))
	if err != nil {
		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errors.WithStack(err)
	}

	return a, nil
}

const lockNumberSequenceQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

// LockNumberSequence serializes account number allocation for the prefix
// until the surrounding transaction ends.
func (r *RepoPGS) LockNumberSequence(ctx context.Context, prefix string) error {
	if _, err := r.db.ExecContext(ctx, lockNumberSequenceQuery, prefix); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("prefix", prefix).Send()
		return errors.WithStack(err)
	}

	return nil
}

const countByNumberPrefixQuery = `
SELECT count(*)
FROM accounts
WHERE account_number LIKE $1 || '%'
`

// CountByNumberPrefix returns how many accounts have numbers starting with prefix.
func (r *RepoPGS) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64

	if err := r.db.QueryRowContext(ctx, countByNumberPrefixQuery, prefix).Scan(&n); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return 0, errors.WithStack(err)
	}

	return n, nil
}

const countOpenByTypeQuery = `
SELECT count(*)
FROM accounts
WHERE member_id = $1 AND account_type = $2 AND status IN ('ACTIVE', 'FROZEN')
`

// CountOpenByType returns the number of ACTIVE or FROZEN accounts of the type held by the member.
func (r *RepoPGS) CountOpenByType(ctx context.Context, memberID int64, accountType domain.AccountType) (int64, error) {
	var n int64

	if err := r.db.QueryRowContext(ctx, countOpenByTypeQuery, memberID, accountType).Scan(&n); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return 0, errors.WithStack(err)
	}

	return n, nil
}

const updateBalanceQuery = `
UPDATE accounts
SET balance = $1, updated_at = now()
WHERE id = $2
RETURNING` + accountColumns

// UpdateBalance sets the account's balance and returns the changed account.
func (r *RepoPGS) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, updateBalanceQuery, balance, id))
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "accounts_balance_check" {
				return a, domain.ErrInsufficientFunds
			}

			if pqErr.Code.Name() == "numeric_value_out_of_range" {
				return a, domain.ErrInvalidAmount
			}
		}

		return a, errors.WithStack(err)
	}

	return a, nil
}

const updateStatusQuery = `
UPDATE accounts
SET status = $1, updated_at = now(), closed_at = $2
WHERE id = $3
RETURNING` + accountColumns

// UpdateStatus sets the account's status and returns the changed account.
//
// closed_at is stamped when the status becomes CLOSED.
func (r *RepoPGS) UpdateStatus(ctx context.Context, id int64, status domain.AccountStatus) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var closedAt sql.NullTime
	if status == domain.AccountStatusClosed {
		closedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	a, err := scanAccount(r.db.QueryRowContext(ctx, updateStatusQuery, status, closedAt, id))
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		return a, errors.WithStack(err)
	}

	return a, nil
}

const listQuery = `
SELECT` + accountColumns + `
FROM accounts
WHERE member_id = $1
ORDER BY id
LIMIT $2 OFFSET $3
`

// List returns the specified number of accounts for the given member.
func (r *RepoPGS) List(ctx context.Context, memberID int64, limit, offset int32) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, memberID, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errors.WithStack(err)
		}

		items = append(items, a)
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
