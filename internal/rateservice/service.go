// Package rateservice manages business logic layer of interest rates.
package rateservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/internal/domain"
)

// Repo provides data access layer interface needed by rate service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package rateservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateRateParams) (domain.InterestRate, error)
	Latest(ctx context.Context, accountType domain.AccountType, asOf time.Time) (domain.InterestRate, error)
	List(ctx context.Context) ([]domain.InterestRate, error)
}

// Cache keeps recently read rates.
type Cache interface {
	Once(ctx context.Context, accountType domain.AccountType, load func(ctx context.Context) (decimal.Decimal, error)) (decimal.Decimal, error)
	Invalidate(ctx context.Context, accountType domain.AccountType) error
}

// Service facilitates interest rate service layer logic.
type Service struct {
	repo  Repo
	cache Cache
	now   func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithCache puts a cache in front of rate lookups.
func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithClock replaces the wall clock used to pick the effective rate.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New returns rate service struct to manage interest rates.
func New(repo Repo, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Latest returns the annual rate effective today for the account type.
//
// DefaultInterestRate is returned when no rate has been published for the type.
func (s *Service) Latest(ctx context.Context, accountType domain.AccountType) (decimal.Decimal, error) {
	if !accountType.IsSupported() {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", domain.ErrUnknownAccountType, accountType)
	}

	var loadErr error

	load := func(ctx context.Context) (decimal.Decimal, error) {
		rate, err := s.repo.Latest(ctx, accountType, s.now())
		if err != nil {
			if errors.Is(err, domain.ErrRateNotFound) {
				return domain.DefaultInterestRate, nil
			}

			loadErr = err

			return decimal.Decimal{}, err
		}

		return rate.Rate, nil
	}

	if s.cache == nil {
		return load(ctx)
	}

	rate, err := s.cache.Once(ctx, accountType, load)
	if err != nil {
		if loadErr != nil {
			return decimal.Decimal{}, loadErr
		}

		zerolog.Ctx(ctx).Warn().Err(err).Str("account_type", string(accountType)).Msg("rate cache unavailable")

		return load(ctx)
	}

	return rate, nil
}

// List returns the published rate history.
func (s *Service) List(ctx context.Context) ([]domain.InterestRate, error) {
	return s.repo.List(ctx)
}

// Create publishes a new rate and drops the cached one for its account type.
func (s *Service) Create(ctx context.Context, arg domain.CreateRateParams) (domain.InterestRate, error) {
	l := zerolog.Ctx(ctx)

	if !arg.AccountType.IsSupported() {
		return domain.InterestRate{}, fmt.Errorf("%w: %q", domain.ErrUnknownAccountType, arg.AccountType)
	}

	if arg.Rate.IsNegative() {
		return domain.InterestRate{}, fmt.Errorf("%w: rate %s is negative", domain.ErrInvalidAmount, arg.Rate)
	}

	if arg.Rate.GreaterThan(domain.MaxInterestRate) {
		return domain.InterestRate{}, fmt.Errorf("%w: rate %s exceeds %s", domain.ErrInvalidAmount, arg.Rate, domain.MaxInterestRate)
	}

	if arg.EffectiveDate.IsZero() {
		arg.EffectiveDate = s.now()
	}

	arg.EffectiveDate = arg.EffectiveDate.UTC().Truncate(24 * time.Hour)

	rate, err := s.repo.Create(ctx, arg)
	if err != nil {
		return domain.InterestRate{}, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, arg.AccountType); err != nil {
			l.Warn().Err(err).Str("account_type", string(arg.AccountType)).Msg("rate cache not invalidated")
		}
	}

	l.Info().Str("account_type", string(rate.AccountType)).Str("rate", rate.Rate.String()).Msg("interest rate published")

	return rate, nil
}
