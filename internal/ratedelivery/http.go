// Package ratedelivery manages delivery layer of interest rates.
package ratedelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/middleware"
	"github.com/go-petr/sacco/pkg/web"
)

const dateLayout = "2006-01-02"

// Service provides service layer interface needed by rate delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package ratedelivery
type Service interface {
	Latest(ctx context.Context, accountType domain.AccountType) (decimal.Decimal, error)
	List(ctx context.Context) ([]domain.InterestRate, error)
	Create(ctx context.Context, arg domain.CreateRateParams) (domain.InterestRate, error)
}

// Handler facilitates rate delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns rate handler.
func NewHandler(rs Service) *Handler {
	return &Handler{service: rs}
}

func respondError(gctx *gin.Context, err error) {
	l := zerolog.Ctx(gctx.Request.Context())

	switch {
	case errors.Is(err, domain.ErrUnknownAccountType),
		errors.Is(err, domain.ErrInvalidAmount):
		gctx.JSON(http.StatusBadRequest, web.Error(err))
		return
	}

	l.Error().Err(err).Send()
	gctx.JSON(http.StatusInternalServerError, web.Error(web.ErrInternal))
}

type dataRates struct {
	Rates []domain.InterestRate `json:"rates"`
}

type responseRates struct {
	Data dataRates `json:"data,omitempty"`
}

// List handles http request to list the published rate history.
func (h *Handler) List(gctx *gin.Context) {
	rates, err := h.service.List(gctx.Request.Context())
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseRates{Data: dataRates{rates}})
}

type currentRequest struct {
	AccountType domain.AccountType `uri:"account_type" binding:"required,account_type"`
}

type dataCurrent struct {
	AccountType domain.AccountType `json:"account_type"`
	Rate        decimal.Decimal    `json:"rate"`
}

type responseCurrent struct {
	Data dataCurrent `json:"data,omitempty"`
}

// Current handles http request to get the rate effective today for an account type.
func (h *Handler) Current(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req currentRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	rate, err := h.service.Latest(ctx, req.AccountType)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseCurrent{Data: dataCurrent{AccountType: req.AccountType, Rate: rate}})
}

type createRequest struct {
	AccountType   domain.AccountType `json:"account_type" binding:"required,account_type"`
	Rate          string             `json:"rate" binding:"required,numeric"`
	EffectiveDate string             `json:"effective_date" binding:"omitempty,datetime=2006-01-02"`
}

type data struct {
	Rate domain.InterestRate `json:"rate"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// Create handles http request to publish a new interest rate.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	rate, err := decimal.NewFromString(req.Rate)
	if err != nil {
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))
		return
	}

	arg := domain.CreateRateParams{
		AccountType: req.AccountType,
		Rate:        rate,
	}

	if req.EffectiveDate != "" {
		arg.EffectiveDate, _ = time.Parse(dateLayout, req.EffectiveDate)
	}

	created, err := h.service.Create(ctx, arg)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().Str("actor", middleware.Actor(gctx)).Str("account_type", string(created.AccountType)).Msg("rate published")

	gctx.JSON(http.StatusCreated, response{Data: data{created}})
}
