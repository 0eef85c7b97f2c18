// Package userservice manages business logic layer of back office users.
package userservice

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/pkg/passpkg"
	"github.com/go-petr/sacco/pkg/tokenpkg"
)

// Repo provides data access layer interface needed by user service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package userservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, error)
	Get(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context, limit, offset int32) ([]domain.User, error)
	UpdateRole(ctx context.Context, username, role string) (domain.User, error)
}

// Service facilitates user service layer logic.
type Service struct {
	repo          Repo
	tokenMaker    tokenpkg.Maker
	tokenDuration time.Duration
}

// New return user service struct to manage staff users and their access tokens.
func New(ur Repo, tokenMaker tokenpkg.Maker, tokenDuration time.Duration) *Service {
	return &Service{
		repo:          ur,
		tokenMaker:    tokenMaker,
		tokenDuration: tokenDuration,
	}
}

// NewUserWihtoutPassword returns user with removed sensitive data.
func NewUserWihtoutPassword(u domain.User) domain.UserWihtoutPassword {
	return domain.UserWihtoutPassword{
		Username:  u.Username,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// IsSupportedRole returns true if the role is one of the staff roles.
func IsSupportedRole(role string) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleStaff, domain.RoleAuditor:
		return true
	}

	return false
}

// Create creates and returns user.
func (s *Service) Create(ctx context.Context, username, password, fullname, role string) (domain.UserWihtoutPassword, error) {
	l := zerolog.Ctx(ctx)

	var result domain.UserWihtoutPassword

	if !IsSupportedRole(role) {
		return result, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}

	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		l.Info().Err(err).Str("username", username).Send()
		return result, errors.Wrap(err, "cannot hash password")
	}

	arg := domain.CreateUserParams{
		Username:       username,
		HashedPassword: hashedPassword,
		FullName:       fullname,
		Role:           role,
	}

	gotUser, err := s.repo.Create(ctx, arg)
	if err != nil {
		return result, err
	}

	result = NewUserWihtoutPassword(gotUser)

	return result, nil
}

// CheckPassword checks if the password is valid for the given username.
func (s *Service) CheckPassword(ctx context.Context, username, pass string) (domain.UserWihtoutPassword, error) {
	l := zerolog.Ctx(ctx)

	var response domain.UserWihtoutPassword

	gotUser, err := s.repo.Get(ctx, username)
	if err != nil {
		return response, err
	}

	err = passpkg.Check(pass, gotUser.HashedPassword)
	if err != nil {
		l.Warn().Err(err).Send()
		return response, domain.ErrWrongPassword
	}

	response = NewUserWihtoutPassword(gotUser)

	return response, nil
}

// Login checks the credentials and issues an access token carrying the user's role.
func (s *Service) Login(ctx context.Context, username, pass string) (string, *tokenpkg.Payload, domain.UserWihtoutPassword, error) {
	l := zerolog.Ctx(ctx)

	user, err := s.CheckPassword(ctx, username, pass)
	if err != nil {
		return "", nil, user, err
	}

	token, payload, err := s.tokenMaker.CreateToken(user.Username, user.Role, s.tokenDuration)
	if err != nil {
		l.Error().Err(err).Send()
		return "", nil, domain.UserWihtoutPassword{}, errors.Wrap(err, "cannot create access token")
	}

	return token, payload, user, nil
}

// List returns a page of staff users without their password hashes.
func (s *Service) List(ctx context.Context, pageSize, pageID int32) ([]domain.UserWihtoutPassword, error) {
	users, err := s.repo.List(ctx, pageSize, (pageID-1)*pageSize)
	if err != nil {
		return nil, err
	}

	result := make([]domain.UserWihtoutPassword, 0, len(users))
	for _, u := range users {
		result = append(result, NewUserWihtoutPassword(u))
	}

	return result, nil
}

// ChangeRole moves the user to another staff role.
//
// Tokens issued before the change keep their old role until they expire.
func (s *Service) ChangeRole(ctx context.Context, username, role string) (domain.UserWihtoutPassword, error) {
	if !IsSupportedRole(role) {
		return domain.UserWihtoutPassword{}, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}

	u, err := s.repo.UpdateRole(ctx, username, role)
	if err != nil {
		return domain.UserWihtoutPassword{}, err
	}

	zerolog.Ctx(ctx).Info().Str("username", u.Username).Str("role", u.Role).Msg("user role changed")

	return NewUserWihtoutPassword(u), nil
}
