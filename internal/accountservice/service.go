// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/store"
)

// Ledger posts balance changes within the caller's database transaction.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Ledger interface {
	ApplyTx(ctx context.Context, q store.Querier, arg domain.ApplyTransactionParams) (domain.Transaction, error)
	AuditTx(ctx context.Context, q store.Querier, accountID int64, reference, description string) (domain.Transaction, error)
	SettleTx(ctx context.Context, q store.Querier, accountID int64, reference, description string) (domain.Transaction, error)
}

// Rates provides the interest rate effective today.
type Rates interface {
	Latest(ctx context.Context, accountType domain.AccountType) (decimal.Decimal, error)
}

// Service facilitates account service layer logic.
type Service struct {
	store  store.Store
	ledger Ledger
	rates  Rates
	now    func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithClock replaces the wall clock used for account numbers and references.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New returns account service struct to manage account lifecycle.
func New(st store.Store, ledger Ledger, rates Rates, opts ...Option) *Service {
	s := &Service{
		store:  st,
		ledger: ledger,
		rates:  rates,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// auditReference builds a reference unique per event, e.g. FREEZE_SAV2026000001_20260514093000_1f2e3d4c.
func auditReference(event, accountNumber string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s", event, accountNumber, at.UTC().Format("20060102150405"), uuid.NewString()[:8])
}

// Open opens an account of the given type for the member and posts the initial deposit.
func (s *Service) Open(ctx context.Context, arg domain.OpenAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if !arg.Type.IsSupported() {
		return domain.Account{}, fmt.Errorf("%w: %q", domain.ErrUnknownAccountType, arg.Type)
	}

	rate, err := s.rates.Latest(ctx, arg.Type)
	if err != nil {
		return domain.Account{}, err
	}

	now := s.now()

	var account domain.Account

	err = s.store.ExecTx(ctx, func(q store.Querier) error {
		member, err := q.GetMember(ctx, arg.MemberID)
		if err != nil {
			if errors.Is(err, domain.ErrMemberNotFound) {
				return fmt.Errorf("%w: member %d does not exist", domain.ErrInvalidMember, arg.MemberID)
			}

			return err
		}

		if member.Status != domain.MembershipStatusActive {
			return fmt.Errorf("%w: member %d is %s", domain.ErrInvalidMember, member.ID, member.Status)
		}

		// The prefix names a single account type, so holding its lock also
		// serializes the per-member cap check against concurrent opens.
		prefix := fmt.Sprintf("%s%d", arg.Type.NumberPrefix(), now.Year())

		if err := q.LockNumberSequence(ctx, prefix); err != nil {
			return err
		}

		if arg.Type.Capped() {
			n, err := q.CountOpenAccountsByType(ctx, member.ID, arg.Type)
			if err != nil {
				return err
			}

			if n >= domain.MaxAccountsPerMember {
				return fmt.Errorf("%w: member %d already holds %d %s accounts",
					domain.ErrIneligibleAccountType, member.ID, n, arg.Type)
			}
		}

		minimum := arg.Type.MinimumBalance()
		if arg.InitialDeposit.LessThan(minimum) {
			return fmt.Errorf("%w: %s account requires at least %s, got %s",
				domain.ErrInsufficientInitialDeposit, arg.Type, minimum, arg.InitialDeposit)
		}

		count, err := q.CountAccountsByNumberPrefix(ctx, prefix)
		if err != nil {
			return err
		}

		account, err = q.CreateAccount(ctx, domain.CreateAccountParams{
			MemberID:       member.ID,
			Number:         fmt.Sprintf("%s%06d", prefix, count+1),
			Type:           arg.Type,
			MinimumBalance: minimum,
			InterestRate:   rate,
		})
		if err != nil {
			return err
		}

		deposit, err := s.ledger.ApplyTx(ctx, q, domain.ApplyTransactionParams{
			AccountID:     account.ID,
			Type:          domain.TransactionTypeDeposit,
			Amount:        arg.InitialDeposit,
			Description:   "Initial deposit",
			PaymentMethod: arg.PaymentMethod,
			Reference:     auditReference("INIT", account.Number, now),
		})
		if err != nil {
			return err
		}

		account.Balance = deposit.BalanceAfter

		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	l.Info().
		Int64("member_id", account.MemberID).
		Str("account_number", account.Number).
		Str("account_type", string(account.Type)).
		Msg("account opened")

	return account, nil
}

// Freeze blocks postings to the account and records the reason in the ledger.
func (s *Service) Freeze(ctx context.Context, id int64, reason string) (domain.Account, error) {
	if reason == "" {
		reason = "Administrative action"
	}

	return s.changeStatus(ctx, id, "FREEZE", reason, func(a domain.Account) (domain.AccountStatus, error) {
		if a.Status == domain.AccountStatusClosed {
			return "", fmt.Errorf("%w: account %s", domain.ErrAlreadyClosed, a.Number)
		}

		return domain.AccountStatusFrozen, nil
	})
}

// Unfreeze returns a frozen account to ACTIVE.
func (s *Service) Unfreeze(ctx context.Context, id int64) (domain.Account, error) {
	return s.changeStatus(ctx, id, "UNFREEZE", "Account unfrozen", func(a domain.Account) (domain.AccountStatus, error) {
		if a.Status != domain.AccountStatusFrozen {
			return "", fmt.Errorf("%w: account %s is %s", domain.ErrNotFrozen, a.Number, a.Status)
		}

		return domain.AccountStatusActive, nil
	})
}

func (s *Service) changeStatus(
	ctx context.Context,
	id int64,
	event, description string,
	next func(a domain.Account) (domain.AccountStatus, error),
) (domain.Account, error) {
	var account domain.Account

	err := s.store.ExecTx(ctx, func(q store.Querier) error {
		current, err := q.GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}

		status, err := next(current)
		if err != nil {
			return err
		}

		account, err = q.UpdateAccountStatus(ctx, id, status)
		if err != nil {
			return err
		}

		_, err = s.ledger.AuditTx(ctx, q, id, auditReference(event, current.Number, s.now()), description)

		return err
	})
	if err != nil {
		return domain.Account{}, err
	}

	zerolog.Ctx(ctx).Info().
		Str("account_number", account.Number).
		Str("status", string(account.Status)).
		Str("reason", description).
		Msg("account status changed")

	return account, nil
}

// Close pays out the remaining balance and closes the account for good.
//
// It returns the balance paid out.
func (s *Service) Close(ctx context.Context, id int64, reason string) (decimal.Decimal, error) {
	if reason == "" {
		reason = "Member request"
	}

	var final decimal.Decimal

	err := s.store.ExecTx(ctx, func(q store.Querier) error {
		account, err := q.GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if account.Status == domain.AccountStatusClosed {
			return fmt.Errorf("%w: account %s", domain.ErrAlreadyClosed, account.Number)
		}

		final = account.Balance
		reference := auditReference("CLOSE", account.Number, s.now())

		if account.Balance.IsPositive() {
			_, err = s.ledger.SettleTx(ctx, q, id, reference, reason)
		} else {
			_, err = s.ledger.AuditTx(ctx, q, id, reference, reason)
		}

		if err != nil {
			return err
		}

		_, err = q.UpdateAccountStatus(ctx, id, domain.AccountStatusClosed)

		return err
	})
	if err != nil {
		return decimal.Decimal{}, err
	}

	zerolog.Ctx(ctx).Info().Int64("account_id", id).Str("final_balance", final.String()).Msg("account closed")

	return final, nil
}

var daysInYear = decimal.NewFromInt(365)

// CalculateInterest returns one day of simple interest on the current balance.
//
// Only ACTIVE accounts earn interest. The balance is not changed.
func (s *Service) CalculateInterest(ctx context.Context, id int64) (decimal.Decimal, error) {
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return DailyInterest(account), nil
}

// DailyInterest is balance * rate / 100 / 365 rounded half-up to cents.
func DailyInterest(a domain.Account) decimal.Decimal {
	if a.Status != domain.AccountStatusActive {
		return decimal.Zero
	}

	return a.Balance.Mul(a.InterestRate).Div(decimal.NewFromInt(100)).Div(daysInYear).Round(2)
}

// Get returns the account with the given id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// List returns a page of the member's accounts.
func (s *Service) List(ctx context.Context, memberID int64, pageSize, pageID int32) ([]domain.Account, error) {
	limit := pageSize
	offset := (pageID - 1) * pageSize

	return s.store.ListAccounts(ctx, memberID, limit, offset)
}

// Statement returns the account with a page of its ledger entries in the filter range, newest first.
func (s *Service) Statement(ctx context.Context, id int64, filter domain.TransactionFilter, pageSize, pageID int32) (domain.Account, []domain.Transaction, error) {
	if err := filter.Validate(); err != nil {
		return domain.Account{}, nil, err
	}

	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return domain.Account{}, nil, err
	}

	txs, err := s.store.ListTransactions(ctx, domain.ListTransactionsParams{
		AccountID:         id,
		TransactionFilter: filter,
		Limit:             pageSize,
		Offset:            (pageID - 1) * pageSize,
	})
	if err != nil {
		return domain.Account{}, nil, err
	}

	return account, txs, nil
}

// Summary aggregates all accounts of the member.
//
// TotalBalance counts ACTIVE accounts only.
func (s *Service) Summary(ctx context.Context, memberID int64) (domain.MemberSummary, error) {
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return domain.MemberSummary{}, err
	}

	accounts, err := s.store.ListAccounts(ctx, memberID, math.MaxInt32, 0)
	if err != nil {
		return domain.MemberSummary{}, err
	}

	summary := domain.MemberSummary{
		Member:        member,
		TotalAccounts: len(accounts),
		TotalBalance:  decimal.Zero,
		Accounts:      accounts,
	}

	for _, a := range accounts {
		if a.Status == domain.AccountStatusActive {
			summary.ActiveAccounts++
			summary.TotalBalance = summary.TotalBalance.Add(a.Balance)
		}
	}

	return summary, nil
}
