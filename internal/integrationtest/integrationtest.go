// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/cmd/httpserver"
	"github.com/go-petr/sacco/db/migration"
	"github.com/go-petr/sacco/internal/accountservice"
	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/ledgerservice"
	"github.com/go-petr/sacco/internal/memberrepo"
	"github.com/go-petr/sacco/internal/middleware"
	"github.com/go-petr/sacco/internal/raterepo"
	"github.com/go-petr/sacco/internal/rateservice"
	"github.com/go-petr/sacco/internal/store"
	"github.com/go-petr/sacco/internal/transferservice"
	"github.com/go-petr/sacco/internal/userrepo"
	"github.com/go-petr/sacco/pkg/configpkg"
	"github.com/go-petr/sacco/pkg/dbpkg"
	"github.com/go-petr/sacco/pkg/passpkg"
	"github.com/go-petr/sacco/pkg/randompkg"
)

const configPath = "../../configs"

// SetupServer returns test server that cleans up database after each integration test.
func SetupServer(t *testing.T) *httpserver.Server {
	t.Helper()

	config, err := configpkg.Load(configPath)
	if err != nil {
		t.Fatalf(`configpkg.Load(%q) returned error: %v`, configPath, err)
	}

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	db := SetupDB(t, config.DBDriver, config.DBSource)

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.New(db, logger, config)
	if err != nil {
		t.Fatalf(`httpserver.New(db, logger, config) returned error: %v`, err)
	}

	return server
}

// Flush flushes all db tables except the migration bookkeeping without droping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables string

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name <> 'gorp_migrations';`

	row := db.QueryRow(query)

	err := row.Scan(&tables)
	if err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables + " RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB connects to the configured database, migrates it and flushes it once the test is done.
//
// The test is skipped when the database is not reachable.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source, 3*time.Second)
	if err != nil {
		t.Skipf("database is not available: %v", err)
	}

	if _, err := migration.Up(db, driver); err != nil {
		t.Fatalf("migration.Up() failed: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// Services bundles the service layer wired over one database.
type Services struct {
	Store     *store.SQLStore
	Rates     *rateservice.Service
	Ledger    *ledgerservice.Service
	Accounts  *accountservice.Service
	Transfers *transferservice.Service
}

// SetupServices returns services over a freshly migrated test database.
func SetupServices(t *testing.T) (Services, *sql.DB) {
	t.Helper()

	config, err := configpkg.Load(configPath)
	if err != nil {
		t.Skipf("config is not available: %v", err)
	}

	db := SetupDB(t, config.DBDriver, config.DBSource)
	st := store.NewSQLStore(db)

	rates := rateservice.New(raterepo.NewRepoPGS(db))
	ledger := ledgerservice.New(st)

	return Services{
		Store:     st,
		Rates:     rates,
		Ledger:    ledger,
		Accounts:  accountservice.New(st, ledger, rates),
		Transfers: transferservice.New(st, ledger),
	}, db
}

// SeedMember inserts a member with the given membership status.
func SeedMember(t *testing.T, db *sql.DB, status domain.MembershipStatus) domain.Member {
	t.Helper()

	m, err := memberrepo.NewRepoPGS(db).Create(context.Background(), randompkg.FullName(), status)
	if err != nil {
		t.Fatalf("memberrepo.Create() failed: %v", err)
	}

	return m
}

// SeedUser inserts a staff user with the role and returns it with its plain password.
func SeedUser(t *testing.T, db *sql.DB, role string) (domain.User, string) {
	t.Helper()

	password := randompkg.String(10)

	hashed, err := passpkg.Hash(password)
	if err != nil {
		t.Fatalf("passpkg.Hash() failed: %v", err)
	}

	u, err := userrepo.NewRepoPGS(db).Create(context.Background(), domain.CreateUserParams{
		Username:       randompkg.Username(),
		HashedPassword: hashed,
		FullName:       randompkg.FullName(),
		Role:           role,
	})
	if err != nil {
		t.Fatalf("userrepo.Create() failed: %v", err)
	}

	return u, password
}

// OpenAccount opens an account for the member with the initial deposit.
func OpenAccount(t *testing.T, s Services, memberID int64, accountType domain.AccountType, deposit string) domain.Account {
	t.Helper()

	a, err := s.Accounts.Open(context.Background(), domain.OpenAccountParams{
		MemberID:       memberID,
		Type:           accountType,
		InitialDeposit: decimal.RequireFromString(deposit),
		PaymentMethod:  domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("Accounts.Open(%v, %v, %v) failed: %v", memberID, accountType, deposit, err)
	}

	return a
}

const ledgerSumQuery = `
SELECT COALESCE(SUM(CASE WHEN transaction_type = 'DEPOSIT' THEN amount ELSE -amount END), 0)
FROM transactions
WHERE account_id = $1
`

// LedgerSum returns deposits minus withdrawals and charges recorded for the account.
func LedgerSum(t *testing.T, db *sql.DB, accountID int64) decimal.Decimal {
	t.Helper()

	var sum decimal.Decimal
	if err := db.QueryRow(ledgerSumQuery, accountID).Scan(&sum); err != nil {
		t.Fatalf("ledger sum failed: %v", err)
	}

	return sum
}
