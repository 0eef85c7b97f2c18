package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAccountTypeRules(t *testing.T) {
	testCases := []struct {
		accountType AccountType
		prefix      string
		minimum     string
		capped      bool
	}{
		{AccountTypeRegular, "SAV", "100", false},
		{AccountTypeFixed, "FIX", "1000", true},
		{AccountTypeChildren, "CHD", "50", true},
		{AccountTypeGroup, "GRP", "500", false},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(string(tc.accountType), func(t *testing.T) {
			require.True(t, tc.accountType.IsSupported())
			require.Equal(t, tc.prefix, tc.accountType.NumberPrefix())
			require.True(t, decimal.RequireFromString(tc.minimum).Equal(tc.accountType.MinimumBalance()))
			require.Equal(t, tc.capped, tc.accountType.Capped())
		})
	}

	require.False(t, AccountType("LOAN").IsSupported())
	require.Len(t, AccountTypes, len(testCases))
}

func TestTransactionTypeAndPaymentMethod(t *testing.T) {
	require.True(t, TransactionTypeCharge.IsSupported())
	require.False(t, TransactionType("REVERSAL").IsSupported())

	require.True(t, PaymentMethodMobileMoney.IsSupported())
	require.False(t, PaymentMethod("CHEQUE").IsSupported())
}
