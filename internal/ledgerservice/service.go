// Package ledgerservice manages every balance mutation of savings accounts.
//
// All postings go through one path: lock the account row, admit the posting
// for the account status, compute the new balance, write the balance and
// append the ledger entry inside the caller's database transaction.
package ledgerservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/store"
)

// Service facilitates ledger service layer logic.
type Service struct {
	store store.Store
}

// New returns ledger service.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// NewReference returns a unique reference for a direct posting.
func NewReference() string {
	return "TXN_" + uuid.NewString()
}

type rule struct {
	admit        func(a domain.Account) error
	enforceFloor bool
	drain        bool
	reversalOf   int64
}

func requireActive(a domain.Account) error {
	if a.Status != domain.AccountStatusActive {
		return fmt.Errorf("%w: account %s is %s", domain.ErrAccountNotActive, a.Number, a.Status)
	}

	return nil
}

func requireOpen(a domain.Account) error {
	if a.Status == domain.AccountStatusClosed {
		return fmt.Errorf("%w: account %s", domain.ErrAlreadyClosed, a.Number)
	}

	return nil
}

func anyStatus(domain.Account) error { return nil }

// Apply posts a deposit, withdrawal or charge to an ACTIVE account in its own database transaction.
func (s *Service) Apply(ctx context.Context, arg domain.ApplyTransactionParams) (domain.Transaction, error) {
	var t domain.Transaction

	err := s.store.ExecTx(ctx, func(q store.Querier) error {
		var err error

		t, err = s.ApplyTx(ctx, q, arg)

		return err
	})

	return t, err
}

// ApplyTx posts a deposit, withdrawal or charge to an ACTIVE account within the caller's transaction.
//
// Withdrawals and charges must keep the balance at or above the account minimum.
func (s *Service) ApplyTx(ctx context.Context, q store.Querier, arg domain.ApplyTransactionParams) (domain.Transaction, error) {
	if !arg.Type.IsSupported() {
		return domain.Transaction{}, fmt.Errorf("%w: %q", domain.ErrUnknownTransactionType, arg.Type)
	}

	if arg.Amount.IsNegative() || arg.Amount.GreaterThan(domain.MaxAmount) || !arg.Amount.Equal(arg.Amount.Round(2)) {
		return domain.Transaction{}, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, arg.Amount)
	}

	if arg.PaymentMethod == "" {
		arg.PaymentMethod = domain.PaymentMethodInternal
	}

	if !arg.PaymentMethod.IsSupported() {
		return domain.Transaction{}, fmt.Errorf("%w: %q", domain.ErrUnknownPaymentMethod, arg.PaymentMethod)
	}

	if arg.Reference == "" {
		arg.Reference = NewReference()
	}

	return s.post(ctx, q, arg, rule{admit: requireActive, enforceFloor: true})
}

// AuditTx appends a zero-amount CHARGE recording a status transition.
//
// It is accepted in any account status and never changes the balance.
func (s *Service) AuditTx(ctx context.Context, q store.Querier, accountID int64, reference, description string) (domain.Transaction, error) {
	arg := domain.ApplyTransactionParams{
		AccountID:     accountID,
		Type:          domain.TransactionTypeCharge,
		Amount:        decimal.Zero,
		Description:   description,
		PaymentMethod: domain.PaymentMethodInternal,
		Reference:     reference,
	}

	return s.post(ctx, q, arg, rule{admit: anyStatus})
}

// SettleTx withdraws the full balance of a not yet CLOSED account as a closure payout.
func (s *Service) SettleTx(ctx context.Context, q store.Querier, accountID int64, reference, description string) (domain.Transaction, error) {
	arg := domain.ApplyTransactionParams{
		AccountID:     accountID,
		Type:          domain.TransactionTypeWithdrawal,
		Description:   description,
		PaymentMethod: domain.PaymentMethodInternal,
		Reference:     reference,
	}

	return s.post(ctx, q, arg, rule{admit: requireOpen, drain: true})
}

func (s *Service) post(ctx context.Context, q store.Querier, arg domain.ApplyTransactionParams, r rule) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	account, err := q.GetAccountForUpdate(ctx, arg.AccountID)
	if err != nil {
		return domain.Transaction{}, err
	}

	if err := r.admit(account); err != nil {
		l.Info().Err(err).Int64("account_id", account.ID).Str("type", string(arg.Type)).Msg("posting rejected")
		return domain.Transaction{}, err
	}

	if r.drain {
		arg.Amount = account.Balance
	}

	balance := account.Balance

	switch arg.Type {
	case domain.TransactionTypeDeposit:
		balance = balance.Add(arg.Amount)

		if balance.GreaterThan(domain.MaxAmount) {
			return domain.Transaction{}, fmt.Errorf("%w: balance of %s would exceed %s",
				domain.ErrInvalidAmount, account.Number, domain.MaxAmount)
		}
	case domain.TransactionTypeWithdrawal, domain.TransactionTypeCharge:
		balance = balance.Sub(arg.Amount)

		if balance.IsNegative() || (r.enforceFloor && balance.LessThan(account.MinimumBalance)) {
			l.Info().
				Int64("account_id", account.ID).
				Str("balance", account.Balance.String()).
				Str("amount", arg.Amount.String()).
				Str("minimum_balance", account.MinimumBalance.String()).
				Msg("posting would breach the balance floor")

			return domain.Transaction{}, fmt.Errorf("%w: %s %s from %s would leave %s, minimum is %s",
				domain.ErrInsufficientFunds, arg.Type, arg.Amount, account.Number, balance, account.MinimumBalance)
		}
	}

	if !balance.Equal(account.Balance) {
		if _, err := q.UpdateAccountBalance(ctx, account.ID, balance); err != nil {
			return domain.Transaction{}, err
		}
	}

	t, err := q.CreateTransaction(ctx, domain.CreateTransactionParams{
		AccountID:         account.ID,
		Type:              arg.Type,
		Amount:            arg.Amount,
		BalanceAfter:      balance,
		Reference:         arg.Reference,
		TransferReference: arg.TransferReference,
		ReversalOf:        r.reversalOf,
		PaymentMethod:     arg.PaymentMethod,
		Description:       arg.Description,
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	l.Info().
		Int64("account_id", account.ID).
		Str("type", string(t.Type)).
		Str("amount", t.Amount.String()).
		Str("balance_after", t.BalanceAfter.String()).
		Str("reference", t.Reference).
		Msg("transaction posted")

	return t, nil
}

// Reverse posts the compensating entry of a completed deposit, withdrawal or charge.
//
// The reversal goes through the same admission and floor checks as any other
// posting, so a deposit cannot be reversed once the money has been spent.
// Transfer legs and zero-amount audit entries cannot be reversed, and an entry
// is reversed at most once.
func (s *Service) Reverse(ctx context.Context, id int64, reason string) (domain.Transaction, error) {
	var t domain.Transaction

	err := s.store.ExecTx(ctx, func(q store.Querier) error {
		original, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case original.ReversalOf != 0:
			return fmt.Errorf("%w: %s is itself a reversal", domain.ErrNotReversible, original.Reference)
		case original.TransferReference != "":
			return fmt.Errorf("%w: %s is a leg of transfer %s", domain.ErrNotReversible,
				original.Reference, original.TransferReference)
		case !original.Amount.IsPositive():
			return fmt.Errorf("%w: %s has no amount", domain.ErrNotReversible, original.Reference)
		}

		if reason == "" {
			reason = "Reversal of " + original.Reference
		}

		arg := domain.ApplyTransactionParams{
			AccountID:     original.AccountID,
			Type:          original.Type.ReversalType(),
			Amount:        original.Amount,
			Description:   reason,
			PaymentMethod: original.PaymentMethod,
			Reference:     "REV_" + original.Reference,
		}

		t, err = s.post(ctx, q, arg, rule{admit: requireActive, enforceFloor: true, reversalOf: original.ID})
		if errors.Is(err, domain.ErrDuplicateReference) {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyReversed, original.Reference)
		}

		return err
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	return t, nil
}

// List returns the account's ledger entries in the filter range, newest first.
func (s *Service) List(ctx context.Context, accountID int64, filter domain.TransactionFilter, pageSize, pageID int32) ([]domain.Transaction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	return s.store.ListTransactions(ctx, domain.ListTransactionsParams{
		AccountID:         accountID,
		TransactionFilter: filter,
		Limit:             pageSize,
		Offset:            (pageID - 1) * pageSize,
	})
}

// Summary totals the account's ledger entries in the filter range.
//
// NetChange is deposits minus withdrawals and charges.
func (s *Service) Summary(ctx context.Context, accountID int64, filter domain.TransactionFilter) (domain.TransactionSummary, error) {
	if err := filter.Validate(); err != nil {
		return domain.TransactionSummary{}, err
	}

	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return domain.TransactionSummary{}, err
	}

	totals, err := s.store.SummarizeTransactions(ctx, accountID, filter)
	if err != nil {
		return domain.TransactionSummary{}, err
	}

	summary := domain.TransactionSummary{
		AccountID:        accountID,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		TotalCharges:     decimal.Zero,
	}

	for _, total := range totals {
		summary.Count += total.Count

		switch total.Type {
		case domain.TransactionTypeDeposit:
			summary.TotalDeposits = summary.TotalDeposits.Add(total.Amount)
		case domain.TransactionTypeWithdrawal:
			summary.TotalWithdrawals = summary.TotalWithdrawals.Add(total.Amount)
		case domain.TransactionTypeCharge:
			summary.TotalCharges = summary.TotalCharges.Add(total.Amount)
		}
	}

	summary.NetChange = summary.TotalDeposits.Sub(summary.TotalWithdrawals).Sub(summary.TotalCharges)

	return summary, nil
}
