// Package memberrepo manages repository layer of members.
//
// Members are owned by the membership directory; the savings core only reads
// them. Create exists for seeding.
package memberrepo

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/pkg/dbpkg"
)

// RepoPGS facilitates member repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns member RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const createQuery = `
INSERT INTO members (full_name, membership_status)
VALUES ($1, $2)
RETURNING id, full_name, membership_status, created_at
`

// Create inserts the member and then returns it.
func (r *RepoPGS) Create(ctx context.Context, fullName string, status domain.MembershipStatus) (domain.Member, error) {
	l := zerolog.Ctx(ctx)

	var m domain.Member

	err := r.db.QueryRowContext(ctx, createQuery, fullName, status).Scan(
		&m.ID,
		&m.FullName,
		&m.Status,
		&m.CreatedAt,
	)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Member{}, errors.WithStack(err)
	}

	return m, nil
}

const getQuery = `
SELECT id, full_name, membership_status, created_at
FROM members
WHERE id = $1
`

// Get returns the member with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Member, error) {
	l := zerolog.Ctx(ctx)

	var m domain.Member

	err := r.db.QueryRowContext(ctx, getQuery, id).Scan(
		&m.ID,
		&m.FullName,
		&m.Status,
		&m.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			l.Info().Int64("member_id", id).Msg("member not found")
			return domain.Member{}, domain.ErrMemberNotFound
		}

		l.Error().Err(err).Send()

		return domain.Member{}, errors.WithStack(err)
	}

	return m, nil
}
