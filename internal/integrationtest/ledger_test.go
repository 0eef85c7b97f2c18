//go:build integration

package integrationtest_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/integrationtest"
)

func TestOpenAccount(t *testing.T) {
	s, db := integrationtest.SetupServices(t)
	ctx := context.Background()

	member := integrationtest.SeedMember(t, db, domain.MembershipStatusActive)

	t.Run("InitialDepositPosted", func(t *testing.T) {
		account := integrationtest.OpenAccount(t, s, member.ID, domain.AccountTypeRegular, "500")

		require.Equal(t, domain.AccountStatusActive, account.Status)
		require.True(t, decimal.NewFromInt(500).Equal(account.Balance))
		require.Equal(t, fmt.Sprintf("SAV%d000001", time.Now().Year()), account.Number)

		_, txs, err := s.Accounts.Statement(ctx, account.ID, domain.TransactionFilter{}, 10, 1)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		require.Equal(t, domain.TransactionTypeDeposit, txs[0].Type)
		require.True(t, decimal.NewFromInt(500).Equal(txs[0].Amount))
		require.True(t, decimal.NewFromInt(500).Equal(txs[0].BalanceAfter))
	})

	t.Run("InsufficientInitialDeposit", func(t *testing.T) {
		_, err := s.Accounts.Open(ctx, domain.OpenAccountParams{
			MemberID:       member.ID,
			Type:           domain.AccountTypeRegular,
			InitialDeposit: decimal.NewFromInt(50),
		})
		require.ErrorIs(t, err, domain.ErrInsufficientInitialDeposit)

		accounts, err := s.Accounts.List(ctx, member.ID, 10, 1)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
	})

	t.Run("SuspendedMember", func(t *testing.T) {
		suspended := integrationtest.SeedMember(t, db, domain.MembershipStatusSuspended)

		_, err := s.Accounts.Open(ctx, domain.OpenAccountParams{
			MemberID:       suspended.ID,
			Type:           domain.AccountTypeRegular,
			InitialDeposit: decimal.NewFromInt(500),
		})
		require.ErrorIs(t, err, domain.ErrInvalidMember)
	})

	t.Run("CappedType", func(t *testing.T) {
		for i := 0; i < domain.MaxAccountsPerMember; i++ {
			integrationtest.OpenAccount(t, s, member.ID, domain.AccountTypeChildren, "50")
		}

		_, err := s.Accounts.Open(ctx, domain.OpenAccountParams{
			MemberID:       member.ID,
			Type:           domain.AccountTypeChildren,
			InitialDeposit: decimal.NewFromInt(50),
		})
		require.ErrorIs(t, err, domain.ErrIneligibleAccountType)
	})
}

func TestCalculateInterest(t *testing.T) {
	s, db := integrationtest.SetupServices(t)
	ctx := context.Background()

	_, err := s.Rates.Create(ctx, domain.CreateRateParams{
		AccountType: domain.AccountTypeRegular,
		Rate:        decimal.RequireFromString("3.5"),
	})
	require.NoError(t, err)

	member := integrationtest.SeedMember(t, db, domain.MembershipStatusActive)
	account := integrationtest.OpenAccount(t, s, member.ID, domain.AccountTypeRegular, "1000")
	require.True(t, decimal.RequireFromString("3.5").Equal(account.InterestRate))

	interest, err := s.Accounts.CalculateInterest(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, "0.1", interest.String())

	got, err := s.Accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(1000).Equal(got.Balance))

	_, err = s.Accounts.Freeze(ctx, account.ID, "")
	require.NoError(t, err)

	interest, err = s.Accounts.CalculateInterest(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, interest.IsZero())
}

func TestWithdrawBelowMinimum(t *testing.T) {
	s, db := integrationtest.SetupServices(t)
	ctx := context.Background()

	member := integrationtest.SeedMember(t, db, domain.MembershipStatusActive)
	account := integrationtest.OpenAccount(t, s, member.ID, domain.AccountTypeRegular, "1000")

	_, err := s.Ledger.Apply(ctx, domain.ApplyTransactionParams{
		AccountID: account.ID,
		Type:      domain.TransactionTypeWithdrawal,
		Amount:    decimal.NewFromInt(950),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	got, err := s.Accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(1000).Equal(got.Balance))

	txs, err := s.Ledger.List(ctx, account.ID, domain.TransactionFilter{}, 10, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
}

func TestConcurrentWithdrawalsKeepFloor(t *testing.T) {
	s, db := integrationtest.SetupServices(t)
	ctx := context.Background()

	member := integrationtest.SeedMember(t, db, domain.MembershipStatusActive)
	account := integrationtest.OpenAccount(t, s, member.ID, domain.AccountTypeRegular, "1000")

	const n = 20

	var wg sync.WaitGroup

	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := s.Ledger.Apply(ctx, domain.ApplyTransactionParams{
				AccountID:     account.ID,
				Type:          domain.TransactionTypeWithdrawal,
				Amount:        decimal.NewFromInt(100),
				PaymentMethod: domain.PaymentMethodCash,
			})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	ok := 0

	for err := range errs {
		if err == nil {
			ok++
			continue
		}

		require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	}

	require.Equal(t, 9, ok)

	got, err := s.Accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, got.MinimumBalance.Equal(got.Balance))
	require.True(t, got.Balance.Equal(integrationtest.LedgerSum(t, db, account.ID)))

	txs, err := s.Ledger.List(ctx, account.ID, domain.TransactionFilter{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.True(t, got.Balance.Equal(txs[0].BalanceAfter))
}

func TestCloseAccount(t *testing.T) {
	s, db := integrationtest.SetupServices(t)
	ctx := context.Background()

	member := integrationtest.SeedMember(t, db, domain.MembershipStatusActive)
	account := integrationtest.OpenAccount(t, s, member.ID, domain.AccountTypeRegular, "750")

	_, err := s.Accounts.Freeze(ctx, account.ID, "Suspicious activity")
	require.NoError(t, err)

	final, err := s.Accounts.Close(ctx, account.ID, "")
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(750).Equal(final))

	got, err := s.Accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AccountStatusClosed, got.Status)
	require.True(t, got.Balance.IsZero())
	require.NotNil(t, got.ClosedAt)
	require.True(t, integrationtest.LedgerSum(t, db, account.ID).IsZero())

	txs, err := s.Ledger.List(ctx, account.ID, domain.TransactionFilter{}, 10, 1)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	require.Equal(t, domain.TransactionTypeWithdrawal, txs[0].Type)
	require.True(t, decimal.NewFromInt(750).Equal(txs[0].Amount))
	require.True(t, got.Balance.Equal(txs[0].BalanceAfter))

	_, err = s.Accounts.Close(ctx, account.ID, "")
	require.ErrorIs(t, err, domain.ErrAlreadyClosed)

	_, err = s.Ledger.Apply(ctx, domain.ApplyTransactionParams{
		AccountID: account.ID,
		Type:      domain.TransactionTypeDeposit,
		Amount:    decimal.NewFromInt(10),
	})
	require.ErrorIs(t, err, domain.ErrAccountNotActive)
}

func TestConcurrentOpenNumbersAreSequential(t *testing.T) {
	s, db := integrationtest.SetupServices(t)

	member := integrationtest.SeedMember(t, db, domain.MembershipStatusActive)

	const n = 10

	type result struct {
		number string
		err    error
	}

	var wg sync.WaitGroup

	results := make(chan result, n)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			a, err := s.Accounts.Open(context.Background(), domain.OpenAccountParams{
				MemberID:       member.ID,
				Type:           domain.AccountTypeGroup,
				InitialDeposit: decimal.NewFromInt(500),
			})
			results <- result{number: a.Number, err: err}
		}()
	}

	wg.Wait()
	close(results)

	numbers := make([]string, 0, n)

	for r := range results {
		require.NoError(t, r.err)
		numbers = append(numbers, r.number)
	}

	sort.Strings(numbers)

	want := make([]string, n)
	for i := range want {
		want[i] = fmt.Sprintf("GRP%d%06d", time.Now().Year(), i+1)
	}

	require.Equal(t, want, numbers)
}

func TestConcurrentCappedOpensKeepCap(t *testing.T) {
	s, db := integrationtest.SetupServices(t)

	member := integrationtest.SeedMember(t, db, domain.MembershipStatusActive)

	for i := 0; i < domain.MaxAccountsPerMember-1; i++ {
		integrationtest.OpenAccount(t, s, member.ID, domain.AccountTypeFixed, "1000")
	}

	const n = 5

	var wg sync.WaitGroup

	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := s.Accounts.Open(context.Background(), domain.OpenAccountParams{
				MemberID:       member.ID,
				Type:           domain.AccountTypeFixed,
				InitialDeposit: decimal.NewFromInt(1000),
			})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	ok := 0

	for err := range errs {
		if err == nil {
			ok++
			continue
		}

		require.ErrorIs(t, err, domain.ErrIneligibleAccountType)
	}

	require.Equal(t, 1, ok)

	accounts, err := s.Accounts.List(context.Background(), member.ID, 50, 1)
	require.NoError(t, err)
	require.Len(t, accounts, domain.MaxAccountsPerMember)
}

func TestReverse(t *testing.T) {
	s, db := integrationtest.SetupServices(t)
	ctx := context.Background()

	member := integrationtest.SeedMember(t, db, domain.MembershipStatusActive)
	account := integrationtest.OpenAccount(t, s, member.ID, domain.AccountTypeRegular, "500")

	deposit, err := s.Ledger.Apply(ctx, domain.ApplyTransactionParams{
		AccountID:     account.ID,
		Type:          domain.TransactionTypeDeposit,
		Amount:        decimal.NewFromInt(300),
		PaymentMethod: domain.PaymentMethodMobileMoney,
	})
	require.NoError(t, err)

	reversal, err := s.Ledger.Reverse(ctx, deposit.ID, "posted to the wrong account")
	require.NoError(t, err)
	require.Equal(t, domain.TransactionTypeWithdrawal, reversal.Type)
	require.Equal(t, deposit.ID, reversal.ReversalOf)
	require.True(t, decimal.NewFromInt(500).Equal(reversal.BalanceAfter))

	_, err = s.Ledger.Reverse(ctx, deposit.ID, "")
	require.ErrorIs(t, err, domain.ErrAlreadyReversed)

	_, err = s.Ledger.Reverse(ctx, reversal.ID, "")
	require.ErrorIs(t, err, domain.ErrNotReversible)

	_, err = s.Ledger.Reverse(ctx, reversal.ID+1000, "")
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	got, err := s.Accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(500).Equal(got.Balance))
	require.True(t, got.Balance.Equal(integrationtest.LedgerSum(t, db, account.ID)))

	summary, err := s.Ledger.Summary(ctx, account.ID, domain.TransactionFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(3), summary.Count)
	require.True(t, got.Balance.Equal(summary.NetChange))
}

func TestListByDateRange(t *testing.T) {
	s, db := integrationtest.SetupServices(t)
	ctx := context.Background()

	member := integrationtest.SeedMember(t, db, domain.MembershipStatusActive)
	account := integrationtest.OpenAccount(t, s, member.ID, domain.AccountTypeRegular, "500")

	today := time.Now().UTC().Truncate(24 * time.Hour)

	txs, err := s.Ledger.List(ctx, account.ID, domain.NewTransactionFilter(today, today), 10, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	tomorrow := today.AddDate(0, 0, 1)

	txs, err = s.Ledger.List(ctx, account.ID, domain.NewTransactionFilter(tomorrow, time.Time{}), 10, 1)
	require.NoError(t, err)
	require.Empty(t, txs)

	_, err = s.Ledger.List(ctx, account.ID, domain.NewTransactionFilter(tomorrow, today), 10, 1)
	require.ErrorIs(t, err, domain.ErrInvalidDateRange)
}
