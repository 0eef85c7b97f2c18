// Package transactiondelivery manages delivery layer of ledger postings.
package transactiondelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/middleware"
	"github.com/go-petr/sacco/pkg/web"
)

// Service provides service layer interface needed by transaction delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transactiondelivery
type Service interface {
	Apply(ctx context.Context, arg domain.ApplyTransactionParams) (domain.Transaction, error)
	List(ctx context.Context, accountID int64, filter domain.TransactionFilter, pageSize, pageID int32) ([]domain.Transaction, error)
	Reverse(ctx context.Context, id int64, reason string) (domain.Transaction, error)
	Summary(ctx context.Context, accountID int64, filter domain.TransactionFilter) (domain.TransactionSummary, error)
}

// Handler facilitates transaction delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transaction handler.
func NewHandler(ts Service) *Handler {
	return &Handler{service: ts}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownTransactionType),
		errors.Is(err, domain.ErrUnknownPaymentMethod),
		errors.Is(err, domain.ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotActive),
		errors.Is(err, domain.ErrAlreadyClosed),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrNotReversible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDuplicateReference),
		errors.Is(err, domain.ErrAlreadyReversed):
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

type uriRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

type postRequest struct {
	Amount        string               `json:"amount" binding:"required,amount"`
	Description   string               `json:"description" binding:"max=255"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" binding:"omitempty,payment_method"`
	Reference     string               `json:"reference" binding:"omitempty,max=100"`
}

type data struct {
	Transaction domain.Transaction `json:"transaction"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// Deposit handles http request to deposit money into an account.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.post(gctx, domain.TransactionTypeDeposit)
}

// Withdraw handles http request to withdraw money from an account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.post(gctx, domain.TransactionTypeWithdrawal)
}

// Charge handles http request to charge a fee to an account.
func (h *Handler) Charge(gctx *gin.Context) {
	h.post(gctx, domain.TransactionTypeCharge)
}

func (h *Handler) post(gctx *gin.Context, txType domain.TransactionType) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var (
		uri uriRequest
		req postRequest
	)

	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	arg := domain.ApplyTransactionParams{
		AccountID:     uri.ID,
		Type:          txType,
		Amount:        decimal.RequireFromString(req.Amount),
		Description:   req.Description,
		PaymentMethod: req.PaymentMethod,
		Reference:     req.Reference,
	}

	t, err := h.service.Apply(ctx, arg)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().
		Str("actor", middleware.Actor(gctx)).
		Str("reference", t.Reference).
		Str("type", string(t.Type)).
		Msg("transaction posted")

	gctx.JSON(http.StatusCreated, response{Data: data{t}})
}

func respondError(gctx *gin.Context, err error) {
	l := zerolog.Ctx(gctx.Request.Context())

	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		l.Error().Err(err).Send()
		gctx.JSON(status, web.Error(web.ErrInternal))

		return
	}

	l.Info().Err(err).Send()
	gctx.JSON(status, web.Error(err))
}

type reverseRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// Reverse handles http request to post the compensating entry of a ledger entry.
func (h *Handler) Reverse(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var (
		uri uriRequest
		req reverseRequest
	)

	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	// The body is optional.
	if gctx.Request.ContentLength != 0 {
		if err := gctx.ShouldBindJSON(&req); err != nil {
			l.Info().Err(err).Send()
			gctx.JSON(http.StatusBadRequest, web.BindingError(err))

			return
		}
	}

	t, err := h.service.Reverse(ctx, uri.ID, req.Reason)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().
		Str("actor", middleware.Actor(gctx)).
		Int64("reversal_of", t.ReversalOf).
		Str("reference", t.Reference).
		Msg("transaction reversed")

	gctx.JSON(http.StatusCreated, response{Data: data{t}})
}

type pageRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1"`
	PageSize int32 `form:"page_size" binding:"required,min=1,max=100"`
	web.DateRange
}

type dataTransactions struct {
	Transactions []domain.Transaction `json:"transactions"`
}

type responseTransactions struct {
	Data dataTransactions `json:"data,omitempty"`
}

// List handles http request to list ledger entries of an account, newest first.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var (
		uri  uriRequest
		page pageRequest
	)

	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	if err := gctx.ShouldBindQuery(&page); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	filter := domain.NewTransactionFilter(page.StartDate, page.EndDate)

	txs, err := h.service.List(ctx, uri.ID, filter, page.PageSize, page.PageID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseTransactions{Data: dataTransactions{txs}})
}

type dataSummary struct {
	Summary domain.TransactionSummary `json:"summary"`
}

type responseSummary struct {
	Data dataSummary `json:"data,omitempty"`
}

// Summary handles http request to total the ledger entries of an account over a date range.
func (h *Handler) Summary(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var (
		uri uriRequest
		dr  web.DateRange
	)

	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	if err := gctx.ShouldBindQuery(&dr); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	summary, err := h.service.Summary(ctx, uri.ID, domain.NewTransactionFilter(dr.StartDate, dr.EndDate))
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseSummary{Data: dataSummary{summary}})
}
