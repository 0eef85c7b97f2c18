// Package userrepo manages repository layer of back office staff users.
package userrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/pkg/dbpkg"
)

// RepoPGS facilitates user repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns user RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const userColumns = `username, hashed_password, full_name, role, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var u domain.User

	err := row.Scan(
		&u.Username,
		&u.HashedPassword,
		&u.FullName,
		&u.Role,
		&u.CreatedAt,
	)

	return u, err
}

// mapError turns users table failures into domain errors.
func mapError(l *zerolog.Logger, err error, username string) error {
	if errors.Is(err, sql.ErrNoRows) {
		l.Info().Str("username", username).Msg("user not found")
		return domain.ErrUserNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Constraint == "users_pkey":
			return domain.ErrUsernameAlreadyExists
		case pqErr.Code.Name() == "check_violation":
			return domain.ErrUnknownRole
		}
	}

	l.Error().Err(err).Str("username", username).Send()

	return pkgerrors.WithStack(err)
}

const createQuery = `
INSERT INTO users (
    username,
    hashed_password,
    full_name,
    role
) VALUES (
    $1, $2, $3, $4
) RETURNING ` + userColumns

// Create inserts the staff user and returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, createQuery, arg.Username, arg.HashedPassword, arg.FullName, arg.Role)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapError(zerolog.Ctx(ctx), err, arg.Username)
	}

	return u, nil
}

const getQuery = `
SELECT ` + userColumns + `
FROM users
WHERE username = $1
`

// Get returns the user with the given username.
func (r *RepoPGS) Get(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getQuery, username))
	if err != nil {
		return domain.User{}, mapError(zerolog.Ctx(ctx), err, username)
	}

	return u, nil
}

const listQuery = `
SELECT ` + userColumns + `
FROM users
ORDER BY username
LIMIT $1
OFFSET $2
`

// List returns a page of staff users ordered by username.
func (r *RepoPGS) List(ctx context.Context, limit, offset int32) ([]domain.User, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, pkgerrors.WithStack(err)
	}
	defer rows.Close()

	users := []domain.User{}

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, pkgerrors.WithStack(err)
		}

		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, pkgerrors.WithStack(err)
	}

	return users, nil
}

const updateRoleQuery = `
UPDATE users
SET role = $2
WHERE username = $1
RETURNING ` + userColumns

// UpdateRole changes the role of the user and returns the updated row.
func (r *RepoPGS) UpdateRole(ctx context.Context, username, role string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, updateRoleQuery, username, role))
	if err != nil {
		return domain.User{}, mapError(zerolog.Ctx(ctx), err, username)
	}

	return u, nil
}
