package transactiondelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/middleware"
	"github.com/go-petr/sacco/pkg/randompkg"
	"github.com/go-petr/sacco/pkg/tokenpkg"
	"github.com/go-petr/sacco/pkg/web"
)

var tokenMaker tokenpkg.Maker

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := web.RegisterValidators(v); err != nil {
			fmt.Fprintf(os.Stderr, "web.RegisterValidators() returned error: %v\n", err)
			os.Exit(1)
		}
	}

	maker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokenpkg.NewPasetoMaker() returned error: %v\n", err)
		os.Exit(1)
	}

	tokenMaker = maker

	os.Exit(m.Run())
}

func newServer(service Service) *gin.Engine {
	h := NewHandler(service)

	server := gin.New()
	auth := server.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	auth.POST("/accounts/:id/deposit", middleware.RequireCapability(middleware.CapTransactionsPost), h.Deposit)
	auth.POST("/accounts/:id/withdraw", middleware.RequireCapability(middleware.CapTransactionsPost), h.Withdraw)
	auth.POST("/accounts/:id/charge", middleware.RequireCapability(middleware.CapTransactionsPost), h.Charge)
	auth.GET("/accounts/:id/transactions", middleware.RequireCapability(middleware.CapAccountsRead), h.List)
	auth.GET("/accounts/:id/transactions/summary", middleware.RequireCapability(middleware.CapAccountsRead), h.Summary)
	auth.POST("/transactions/:id/reverse", middleware.RequireCapability(middleware.CapTransactionsPost), h.Reverse)

	return server
}

func serve(t *testing.T, server *gin.Engine, method, url string, body any, role string) *httptest.ResponseRecorder {
	t.Helper()

	var buf []byte

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Encoding request body error: %v", err)
		}

		buf = b
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("Creating request error: %v", err)
	}

	err = middleware.AddAuthorization(req, tokenMaker, middleware.AuthTypeBearer, randompkg.Username(), role, time.Minute)
	if err != nil {
		t.Fatalf("middleware.AddAuthorization() returned error: %v", err)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	return recorder
}

// echo returns the posted transaction as the ledger would record it.
func echo(balanceAfter decimal.Decimal) func(_ any, arg domain.ApplyTransactionParams) (domain.Transaction, error) {
	return func(_ any, arg domain.ApplyTransactionParams) (domain.Transaction, error) {
		return domain.Transaction{
			ID:            randompkg.IntBetween(1, 1000),
			AccountID:     arg.AccountID,
			Type:          arg.Type,
			Amount:        arg.Amount,
			BalanceAfter:  balanceAfter,
			Reference:     "TXN_" + randompkg.String(8),
			PaymentMethod: domain.PaymentMethodCash,
			Description:   arg.Description,
		}, nil
	}
}

func TestPost(t *testing.T) {
	accountID := randompkg.IntBetween(1, 1000)

	testCases := []struct {
		name           string
		url            string
		role           string
		requestBody    gin.H
		buildStubs     func(service *MockService)
		wantStatusCode int
		wantError      string
		wantType       domain.TransactionType
	}{
		{
			name:        "Deposit",
			url:         fmt.Sprintf("/accounts/%d/deposit", accountID),
			role:        domain.RoleStaff,
			requestBody: gin.H{"amount": "250.50", "payment_method": "CASH", "description": "Monthly savings"},
			buildStubs: func(service *MockService) {
				arg := domain.ApplyTransactionParams{
					AccountID:     accountID,
					Type:          domain.TransactionTypeDeposit,
					Amount:        decimal.RequireFromString("250.50"),
					Description:   "Monthly savings",
					PaymentMethod: domain.PaymentMethodCash,
				}

				service.EXPECT().
					Apply(gomock.Any(), gomock.Eq(arg)).
					Times(1).
					DoAndReturn(echo(decimal.NewFromInt(1250)))
			},
			wantStatusCode: http.StatusCreated,
			wantType:       domain.TransactionTypeDeposit,
		},
		{
			name:        "Withdraw",
			url:         fmt.Sprintf("/accounts/%d/withdraw", accountID),
			role:        domain.RoleAdmin,
			requestBody: gin.H{"amount": "100"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Apply(gomock.Any(), gomock.Any()).
					Times(1).
					DoAndReturn(echo(decimal.NewFromInt(900)))
			},
			wantStatusCode: http.StatusCreated,
			wantType:       domain.TransactionTypeWithdrawal,
		},
		{
			name:        "Charge",
			url:         fmt.Sprintf("/accounts/%d/charge", accountID),
			role:        domain.RoleStaff,
			requestBody: gin.H{"amount": "5", "description": "SMS fee"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Apply(gomock.Any(), gomock.Any()).
					Times(1).
					DoAndReturn(echo(decimal.NewFromInt(995)))
			},
			wantStatusCode: http.StatusCreated,
			wantType:       domain.TransactionTypeCharge,
		},
		{
			name:        "AuditorForbidden",
			url:         fmt.Sprintf("/accounts/%d/deposit", accountID),
			role:        domain.RoleAuditor,
			requestBody: gin.H{"amount": "10"},
			buildStubs: func(service *MockService) {
				service.EXPECT().Apply(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusForbidden,
			wantError:      middleware.ErrForbidden.Error(),
		},
		{
			name:        "MissingAmount",
			url:         fmt.Sprintf("/accounts/%d/deposit", accountID),
			role:        domain.RoleStaff,
			requestBody: gin.H{"description": "no amount"},
			buildStubs: func(service *MockService) {
				service.EXPECT().Apply(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount field is required",
		},
		{
			name:        "NegativeAmount",
			url:         fmt.Sprintf("/accounts/%d/withdraw", accountID),
			role:        domain.RoleStaff,
			requestBody: gin.H{"amount": "-10"},
			buildStubs: func(service *MockService) {
				service.EXPECT().Apply(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Amount must be a positive amount with at most 2 decimal places",
		},
		{
			name:        "InsufficientFunds",
			url:         fmt.Sprintf("/accounts/%d/withdraw", accountID),
			role:        domain.RoleStaff,
			requestBody: gin.H{"amount": "1000000"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Apply(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Transaction{}, domain.ErrInsufficientFunds)
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      domain.ErrInsufficientFunds.Error(),
		},
		{
			name:        "AccountNotActive",
			url:         fmt.Sprintf("/accounts/%d/deposit", accountID),
			role:        domain.RoleStaff,
			requestBody: gin.H{"amount": "10"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Apply(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Transaction{}, domain.ErrAccountNotActive)
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      domain.ErrAccountNotActive.Error(),
		},
		{
			name:        "DuplicateReference",
			url:         fmt.Sprintf("/accounts/%d/deposit", accountID),
			role:        domain.RoleStaff,
			requestBody: gin.H{"amount": "10", "reference": "MPESA-QX12"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Apply(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Transaction{}, domain.ErrDuplicateReference)
			},
			wantStatusCode: http.StatusConflict,
			wantError:      domain.ErrDuplicateReference.Error(),
		},
		{
			name:        "AccountNotFound",
			url:         fmt.Sprintf("/accounts/%d/deposit", accountID),
			role:        domain.RoleStaff,
			requestBody: gin.H{"amount": "10"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Apply(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Transaction{}, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrAccountNotFound.Error(),
		},
		{
			name:        "InternalServerError",
			url:         fmt.Sprintf("/accounts/%d/deposit", accountID),
			role:        domain.RoleStaff,
			requestBody: gin.H{"amount": "10"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Apply(gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Transaction{}, fmt.Errorf("driver: bad connection"))
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      web.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			recorder := serve(t, newServer(service), http.MethodPost, tc.url, tc.requestBody, tc.role)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			got := &data{}

			res := web.Response{Data: got}
			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Fatalf("Decoding response body error: %v", err)
			}

			if res.Error != tc.wantError {
				t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
			}

			if tc.wantStatusCode == http.StatusCreated {
				if got.Transaction.Type != tc.wantType || got.Transaction.AccountID != accountID {
					t.Errorf("got.Transaction = %+v, want type %v account %v", got.Transaction, tc.wantType, accountID)
				}
			}
		})
	}
}

func TestList(t *testing.T) {
	accountID := randompkg.IntBetween(1, 1000)
	txs := []domain.Transaction{
		{
			ID:            3,
			AccountID:     accountID,
			Type:          domain.TransactionTypeCharge,
			Amount:        decimal.Zero,
			BalanceAfter:  decimal.NewFromInt(500),
			Reference:     "FREEZE_SAV2026000001_20260514093000_1f2e3d4c",
			PaymentMethod: domain.PaymentMethodInternal,
			CreatedAt:     time.Now().Truncate(time.Second).UTC(),
		},
	}

	testCases := []struct {
		name           string
		url            string
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name: "OK",
			url:  fmt.Sprintf("/accounts/%d/transactions?page_id=1&page_size=20", accountID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					List(gomock.Any(), gomock.Eq(accountID), gomock.Eq(domain.TransactionFilter{}), gomock.Eq(int32(20)), gomock.Eq(int32(1))).
					Times(1).
					Return(txs, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "DateRange",
			url:  fmt.Sprintf("/accounts/%d/transactions?page_id=1&page_size=20&start_date=2026-05-01&end_date=2026-05-31", accountID),
			buildStubs: func(service *MockService) {
				filter := domain.TransactionFilter{
					Since: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
				}

				service.EXPECT().
					List(gomock.Any(), gomock.Eq(accountID), gomock.Eq(filter), gomock.Eq(int32(20)), gomock.Eq(int32(1))).
					Times(1).
					Return(txs, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "EndBeforeStart",
			url:  fmt.Sprintf("/accounts/%d/transactions?page_id=1&page_size=20&start_date=2026-05-31&end_date=2026-05-01", accountID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					List(gomock.Any(), gomock.Eq(accountID), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(nil, domain.ErrInvalidDateRange)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "BadDate",
			url:  fmt.Sprintf("/accounts/%d/transactions?page_id=1&page_size=20&start_date=01/05/2026", accountID),
			buildStubs: func(service *MockService) {
				service.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "AccountNotFound",
			url:  fmt.Sprintf("/accounts/%d/transactions?page_id=1&page_size=20", accountID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					List(gomock.Any(), gomock.Eq(accountID), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(nil, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "InvalidPage",
			url:  fmt.Sprintf("/accounts/%d/transactions?page_id=0&page_size=20", accountID),
			buildStubs: func(service *MockService) {
				service.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			recorder := serve(t, newServer(service), http.MethodGet, tc.url, nil, domain.RoleAuditor)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Fatalf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			if tc.wantStatusCode != http.StatusOK {
				return
			}

			got := &dataTransactions{}

			res := web.Response{Data: got}
			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Fatalf("Decoding response body error: %v", err)
			}

			compare := cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) })
			if diff := cmp.Diff(txs, got.Transactions, compare, cmpopts.EquateApproxTime(time.Second)); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReverse(t *testing.T) {
	id := randompkg.IntBetween(1, 1000)
	url := fmt.Sprintf("/transactions/%d/reverse", id)

	reversal := domain.Transaction{
		ID:            id + 1,
		AccountID:     7,
		Type:          domain.TransactionTypeWithdrawal,
		Amount:        decimal.NewFromInt(300),
		BalanceAfter:  decimal.NewFromInt(1000),
		Reference:     "REV_TXN_20260514093000_1f2e3d4c",
		ReversalOf:    id,
		PaymentMethod: domain.PaymentMethodCash,
		Description:   "Posted to wrong account",
	}

	testCases := []struct {
		name           string
		role           string
		requestBody    gin.H
		buildStubs     func(service *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name:        "OK",
			role:        domain.RoleStaff,
			requestBody: gin.H{"reason": "Posted to wrong account"},
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Reverse(gomock.Any(), gomock.Eq(id), gomock.Eq("Posted to wrong account")).
					Times(1).
					Return(reversal, nil)
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "NoBody",
			role: domain.RoleAdmin,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Reverse(gomock.Any(), gomock.Eq(id), gomock.Eq("")).
					Times(1).
					Return(reversal, nil)
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name:        "AuditorForbidden",
			role:        domain.RoleAuditor,
			requestBody: gin.H{"reason": "x"},
			buildStubs: func(service *MockService) {
				service.EXPECT().Reverse(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusForbidden,
			wantError:      middleware.ErrForbidden.Error(),
		},
		{
			name: "NotFound",
			role: domain.RoleStaff,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Reverse(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Transaction{}, domain.ErrTransactionNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrTransactionNotFound.Error(),
		},
		{
			name: "TransferLeg",
			role: domain.RoleStaff,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Reverse(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Transaction{}, domain.ErrNotReversible)
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      domain.ErrNotReversible.Error(),
		},
		{
			name: "AlreadyReversed",
			role: domain.RoleStaff,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Reverse(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Transaction{}, domain.ErrAlreadyReversed)
			},
			wantStatusCode: http.StatusConflict,
			wantError:      domain.ErrAlreadyReversed.Error(),
		},
		{
			name: "DepositAlreadySpent",
			role: domain.RoleStaff,
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Reverse(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Transaction{}, domain.ErrInsufficientFunds)
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      domain.ErrInsufficientFunds.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			var body any
			if tc.requestBody != nil {
				body = tc.requestBody
			}

			recorder := serve(t, newServer(service), http.MethodPost, url, body, tc.role)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Fatalf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			got := &data{}

			res := web.Response{Data: got}
			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Fatalf("Decoding response body error: %v", err)
			}

			if res.Error != tc.wantError {
				t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
			}

			if tc.wantStatusCode == http.StatusCreated && got.Transaction.ReversalOf != id {
				t.Errorf("got.Transaction.ReversalOf = %d, want %d", got.Transaction.ReversalOf, id)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	accountID := randompkg.IntBetween(1, 1000)
	summary := domain.TransactionSummary{
		AccountID:        accountID,
		Count:            4,
		TotalDeposits:    decimal.NewFromInt(1500),
		TotalWithdrawals: decimal.NewFromInt(400),
		TotalCharges:     decimal.RequireFromString("15.50"),
		NetChange:        decimal.RequireFromString("1084.50"),
	}

	testCases := []struct {
		name           string
		url            string
		buildStubs     func(service *MockService)
		wantStatusCode int
	}{
		{
			name: "OK",
			url:  fmt.Sprintf("/accounts/%d/transactions/summary?start_date=2026-05-01&end_date=2026-05-31", accountID),
			buildStubs: func(service *MockService) {
				filter := domain.TransactionFilter{
					Since: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
					Until: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
				}

				service.EXPECT().
					Summary(gomock.Any(), gomock.Eq(accountID), gomock.Eq(filter)).
					Times(1).
					Return(summary, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "WholeLedger",
			url:  fmt.Sprintf("/accounts/%d/transactions/summary", accountID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Summary(gomock.Any(), gomock.Eq(accountID), gomock.Eq(domain.TransactionFilter{})).
					Times(1).
					Return(summary, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "EndBeforeStart",
			url:  fmt.Sprintf("/accounts/%d/transactions/summary?start_date=2026-05-31&end_date=2026-05-01", accountID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Summary(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransactionSummary{}, domain.ErrInvalidDateRange)
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "AccountNotFound",
			url:  fmt.Sprintf("/accounts/%d/transactions/summary", accountID),
			buildStubs: func(service *MockService) {
				service.EXPECT().
					Summary(gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.TransactionSummary{}, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			recorder := serve(t, newServer(service), http.MethodGet, tc.url, nil, domain.RoleAuditor)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Fatalf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			if tc.wantStatusCode != http.StatusOK {
				return
			}

			got := &dataSummary{}

			res := web.Response{Data: got}
			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Fatalf("Decoding response body error: %v", err)
			}

			compare := cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) })
			if diff := cmp.Diff(summary, got.Summary, compare); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
