// Package raterepo manages repository layer of interest rates.
package raterepo

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

// RepoPGS facilitates interest rate repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns interest rate RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const createQuery = `
INSERT INTO interest_rates (account_type, rate, effective_date)
VALUES ($1, $2, $3)
RETURNING id, account_type, rate, effective_date, created_at
`

// Create publishes a rate and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateRateParams) (domain.InterestRate, error) {
	l := zerolog.Ctx(ctx)

	var ir domain.InterestRate

	err := r.db.QueryRowContext(ctx, createQuery, arg.AccountType, arg.Rate, arg.EffectiveDate).Scan(
		&ir.ID,
		&ir.AccountType,
		&ir.Rate,
		&ir.EffectiveDate,
		&ir.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "numeric_value_out_of_range" {
			return domain.InterestRate{}, domain.ErrInvalidAmount
		}

		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)
		return domain.InterestRate{}, errors.WithStack(err)
	}

	return ir, nil
}

const latestQuery = `
SELECT id, account_type, rate, effective_date, created_at
FROM interest_rates
WHERE account_type = $1 AND effective_date <= $2
ORDER BY effective_date DESC, id DESC
LIMIT 1
`

// Latest returns the newest rate of the account type effective on asOf.
func (r *RepoPGS) Latest(ctx context.Context, accountType domain.AccountType, asOf time.Time) (domain.InterestRate, error) {
	l := zerolog.Ctx(ctx)

	var ir domain.InterestRate

	err := r.db.QueryRowContext(ctx, latestQuery, accountType, asOf).Scan(
		&ir.ID,
		&ir.AccountType,
		&ir.Rate,
		&ir.EffectiveDate,
		&ir.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.InterestRate{}, domain.ErrRateNotFound
		}

		l.Error().Err(err).Send()

		return domain.InterestRate{}, errors.WithStack(err)
	}

	return ir, nil
}

const listQuery = `
SELECT id, account_type, rate, effective_date, created_at
FROM interest_rates
ORDER BY account_type, effective_date DESC, id DESC
`

// List returns the full rate history grouped by account type.
func (r *RepoPGS) List(ctx context.Context) ([]domain.InterestRate, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	items := []domain.InterestRate{}

	for rows.Next() {
		var ir domain.InterestRate
		if err := rows.Scan(
			&ir.ID,
			&ir.AccountType,
			&ir.Rate,
			&ir.EffectiveDate,
			&ir.CreatedAt,
		); err != nil {
			l.Error().Err(err).Send()
			return nil, errors.WithStack(err)
		}

		items = append(items, ir)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errors.WithStack(err)
	}

	return items, nil
}
