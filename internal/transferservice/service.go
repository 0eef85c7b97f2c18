// Package transferservice manages business logic layer of transfers.
package transferservice

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

// Ledger posts balance changes within the caller's database transaction.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Ledger interface {
	ApplyTx(ctx context.Context, q store.Querier, arg domain.ApplyTransactionParams) (domain.Transaction, error)
}

// Service facilitates transfer service layer logic.
type Service struct {
	store  store.Store
	ledger Ledger
}

// New returns transfer service struct to manage transfers between members.
func New(st store.Store, ledger Ledger) *Service {
	return &Service{
		store:  st,
		ledger: ledger,
	}
}

func resolve(ctx context.Context, q store.Querier, memberID int64, notFound error) (domain.Account, error) {
	a, err := q.GetPrimaryAccount(ctx, memberID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return a, fmt.Errorf("%w: member %d has no open account", notFound, memberID)
		}

		return a, err
	}

	return a, nil
}

// Transfer moves money between the primary accounts of two members.
//
// The debit and the credit commit together or not at all. Both account rows
// are locked in ascending account number order so transfers running in
// opposite directions cannot deadlock.
func (s *Service) Transfer(ctx context.Context, arg domain.CreateTransferParams) (domain.TransferResult, error) {
	l := zerolog.Ctx(ctx)

	amount, err := decimal.NewFromString(arg.Amount)
	if err != nil {
		l.Info().Err(err).Send()
		return domain.TransferResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, arg.Amount)
	}

	if !amount.IsPositive() {
		return domain.TransferResult{}, fmt.Errorf("%w: transfer amount must be positive", domain.ErrInvalidAmount)
	}

	if arg.PaymentMethod == "" {
		arg.PaymentMethod = domain.PaymentMethodInternal
	}

	result := domain.TransferResult{Reference: "TRF_" + uuid.NewString()}

	err = s.store.ExecTx(ctx, func(q store.Querier) error {
		source, err := resolve(ctx, q, arg.SourceMemberID, domain.ErrSourceNotFound)
		if err != nil {
			return err
		}

		destination, err := resolve(ctx, q, arg.DestinationMemberID, domain.ErrDestinationNotFound)
		if err != nil {
			return err
		}

		if source.ID == destination.ID {
			return fmt.Errorf("%w: %s", domain.ErrSameAccount, source.Number)
		}

		first, second := source, destination
		if second.Number < first.Number {
			first, second = second, first
		}

		if _, err := q.GetAccountForUpdate(ctx, first.ID); err != nil {
			return err
		}

		if _, err := q.GetAccountForUpdate(ctx, second.ID); err != nil {
			return err
		}

		result.Debit, err = s.ledger.ApplyTx(ctx, q, domain.ApplyTransactionParams{
			AccountID:         source.ID,
			Type:              domain.TransactionTypeWithdrawal,
			Amount:            amount,
			Description:       arg.Description,
			PaymentMethod:     arg.PaymentMethod,
			Reference:         result.Reference + "-DR",
			TransferReference: result.Reference,
		})
		if err != nil {
			return err
		}

		result.Credit, err = s.ledger.ApplyTx(ctx, q, domain.ApplyTransactionParams{
			AccountID:         destination.ID,
			Type:              domain.TransactionTypeDeposit,
			Amount:            amount,
			Description:       arg.Description,
			PaymentMethod:     arg.PaymentMethod,
			Reference:         result.Reference + "-CR",
			TransferReference: result.Reference,
		})

		return err
	})
	if err != nil {
		return domain.TransferResult{}, err
	}

	l.Info().
		Str("reference", result.Reference).
		Int64("source_account_id", result.Debit.AccountID).
		Int64("destination_account_id", result.Credit.AccountID).
		Str("amount", amount.String()).
		Msg("transfer completed")

	return result, nil
}

// Get returns both legs of the transfer with the given reference.
func (s *Service) Get(ctx context.Context, reference string) (domain.TransferResult, error) {
	legs, err := s.store.ListTransferTransactions(ctx, reference)
	if err != nil {
		return domain.TransferResult{}, err
	}

	result := domain.TransferResult{Reference: reference}

	for _, t := range legs {
		switch t.Type {
		case domain.TransactionTypeWithdrawal:
			result.Debit = t
		case domain.TransactionTypeDeposit:
			result.Credit = t
		}
	}

	if result.Debit.ID == 0 || result.Credit.ID == 0 {
		return domain.TransferResult{}, fmt.Errorf("%w: %s", domain.ErrTransferNotFound, reference)
	}

	return result, nil
}
