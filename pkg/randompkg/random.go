// Package randompkg generates random staff, member and money values for tests and seeding.
package randompkg

import (
	"crypto/rand"
	"math/big"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// String returns n random lowercase letters drawn from crypto/rand.
//
// Token keys are built with it, so it does not use the gofakeit source.
func String(n int) string {
	b := make([]byte, n)

	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			panic(err)
		}

		b[i] = alphabet[idx.Int64()]
	}

	return string(b)
}

// IntBetween returns a random integer in [min, max].
func IntBetween(min, max int) int64 {
	return int64(gofakeit.Number(min, max))
}

// Username returns a random alphanumeric staff login.
func Username() string {
	return String(8)
}

// FullName returns a random person name.
func FullName() string {
	return gofakeit.Name()
}

// MoneyAmountBetween returns a random amount in [min, max] with at most 2 decimal places.
func MoneyAmountBetween(min, max int) decimal.Decimal {
	return decimal.NewFromFloat(gofakeit.Price(float64(min), float64(max))).Round(2)
}
