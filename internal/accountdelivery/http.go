// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/middleware"
	"github.com/go-petr/sacco/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Open(ctx context.Context, arg domain.OpenAccountParams) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
	List(ctx context.Context, memberID int64, pageSize, pageID int32) ([]domain.Account, error)
	Summary(ctx context.Context, memberID int64) (domain.MemberSummary, error)
	Freeze(ctx context.Context, id int64, reason string) (domain.Account, error)
	Unfreeze(ctx context.Context, id int64) (domain.Account, error)
	Close(ctx context.Context, id int64, reason string) (decimal.Decimal, error)
	CalculateInterest(ctx context.Context, id int64) (decimal.Decimal, error)
	Statement(ctx context.Context, id int64, filter domain.TransactionFilter, pageSize, pageID int32) (domain.Account, []domain.Transaction, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) *Handler {
	return &Handler{service: as}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownAccountType),
		errors.Is(err, domain.ErrUnknownPaymentMethod),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidDateRange):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidMember),
		errors.Is(err, domain.ErrIneligibleAccountType),
		errors.Is(err, domain.ErrInsufficientInitialDeposit),
		errors.Is(err, domain.ErrAlreadyClosed),
		errors.Is(err, domain.ErrNotFrozen):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAccountNumberTaken),
		errors.Is(err, domain.ErrDuplicateReference):
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

func respondError(gctx *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Send()
		gctx.JSON(status, web.Error(web.ErrInternal))

		return
	}

	gctx.JSON(status, web.Error(err))
}

type data struct {
	Account domain.Account `json:"account"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

type openRequest struct {
	MemberID       int64                `json:"member_id" binding:"required,min=1"`
	AccountType    domain.AccountType   `json:"account_type" binding:"required,account_type"`
	InitialDeposit string               `json:"initial_deposit" binding:"required,amount"`
	PaymentMethod  domain.PaymentMethod `json:"payment_method" binding:"omitempty,payment_method"`
}

// Open handles http request to open an account.
func (h *Handler) Open(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req openRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	arg := domain.OpenAccountParams{
		MemberID:       req.MemberID,
		Type:           req.AccountType,
		InitialDeposit: decimal.RequireFromString(req.InitialDeposit),
		PaymentMethod:  req.PaymentMethod,
	}

	account, err := h.service.Open(ctx, arg)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().Str("actor", middleware.Actor(gctx)).Str("account_number", account.Number).Msg("account opened")

	gctx.JSON(http.StatusCreated, response{Data: data{account}})
}

type uriRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	account, err := h.service.Get(ctx, req.ID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{account}})
}

type pageRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1"`
	PageSize int32 `form:"page_size" binding:"required,min=1,max=100"`
}

type dataAccounts struct {
	Accounts []domain.Account `json:"accounts"`
}

type responseAccounts struct {
	Data dataAccounts `json:"data,omitempty"`
}

// List handles http request to list accounts of a member.
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

	accounts, err := h.service.List(ctx, uri.ID, page.PageSize, page.PageID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseAccounts{Data: dataAccounts{accounts}})
}

type dataSummary struct {
	Summary domain.MemberSummary `json:"summary"`
}

type responseSummary struct {
	Data dataSummary `json:"data,omitempty"`
}

// Summary handles http request to aggregate all accounts of a member.
func (h *Handler) Summary(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	summary, err := h.service.Summary(ctx, req.ID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseSummary{Data: dataSummary{summary}})
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// bindReason binds the optional reason body. An empty body is allowed.
func bindReason(gctx *gin.Context) (uriRequest, string, error) {
	var (
		uri  uriRequest
		body reasonRequest
	)

	if err := gctx.ShouldBindUri(&uri); err != nil {
		return uri, "", err
	}

	if err := gctx.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		return uri, "", err
	}

	return uri, body.Reason, nil
}

// Freeze handles http request to freeze an account.
func (h *Handler) Freeze(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	uri, reason, err := bindReason(gctx)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	account, err := h.service.Freeze(ctx, uri.ID, reason)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().Str("actor", middleware.Actor(gctx)).Str("account_number", account.Number).Msg("account frozen")

	gctx.JSON(http.StatusOK, response{Data: data{account}})
}

// Unfreeze handles http request to unfreeze an account.
func (h *Handler) Unfreeze(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	account, err := h.service.Unfreeze(ctx, req.ID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().Str("actor", middleware.Actor(gctx)).Str("account_number", account.Number).Msg("account unfrozen")

	gctx.JSON(http.StatusOK, response{Data: data{account}})
}

type dataClose struct {
	AccountID    int64           `json:"account_id"`
	FinalBalance decimal.Decimal `json:"final_balance"`
}

type responseClose struct {
	Data dataClose `json:"data,omitempty"`
}

// Close handles http request to close an account.
func (h *Handler) Close(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	uri, reason, err := bindReason(gctx)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	final, err := h.service.Close(ctx, uri.ID, reason)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().Str("actor", middleware.Actor(gctx)).Int64("account_id", uri.ID).Msg("account closed")

	gctx.JSON(http.StatusOK, responseClose{Data: dataClose{AccountID: uri.ID, FinalBalance: final}})
}

type dataInterest struct {
	AccountID     int64           `json:"account_id"`
	DailyInterest decimal.Decimal `json:"daily_interest"`
}

type responseInterest struct {
	Data dataInterest `json:"data,omitempty"`
}

// Interest handles http request to calculate one day of interest.
func (h *Handler) Interest(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	interest, err := h.service.CalculateInterest(ctx, req.ID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseInterest{Data: dataInterest{AccountID: req.ID, DailyInterest: interest}})
}

type statementRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1"`
	PageSize int32 `form:"page_size" binding:"required,min=1,max=100"`
	web.DateRange
}

type dataStatement struct {
	Account      domain.Account       `json:"account"`
	Transactions []domain.Transaction `json:"transactions"`
}

type responseStatement struct {
	Data dataStatement `json:"data,omitempty"`
}

// Statement handles http request to get the account with a page of its ledger entries,
// optionally limited to the start_date and end_date calendar days.
func (h *Handler) Statement(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var (
		uri  uriRequest
		page statementRequest
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

	account, txs, err := h.service.Statement(ctx, uri.ID, filter, page.PageSize, page.PageID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseStatement{Data: dataStatement{account, txs}})
}
