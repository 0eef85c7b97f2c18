// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/middleware"
	"github.com/go-petr/sacco/pkg/web"
)

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Transfer(ctx context.Context, arg domain.CreateTransferParams) (domain.TransferResult, error)
	Get(ctx context.Context, reference string) (domain.TransferResult, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrSourceNotFound),
		errors.Is(err, domain.ErrDestinationNotFound),
		errors.Is(err, domain.ErrTransferNotFound),
		errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownPaymentMethod),
		errors.Is(err, domain.ErrSameAccount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrAccountNotActive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDuplicateReference):
		return http.StatusConflict
	}

	return http.StatusInternalServerError
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

type request struct {
	SourceMemberID      int64                `json:"source_member_id" binding:"required,min=1"`
	DestinationMemberID int64                `json:"destination_member_id" binding:"required,min=1"`
	Amount              string               `json:"amount" binding:"required,amount"`
	Description         string               `json:"description" binding:"max=255"`
	PaymentMethod       domain.PaymentMethod `json:"payment_method" binding:"omitempty,payment_method"`
}

type data struct {
	Transfer domain.TransferResult `json:"transfer"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// Create handles http request to move money between the primary accounts of two members.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req request
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	arg := domain.CreateTransferParams{
		SourceMemberID:      req.SourceMemberID,
		DestinationMemberID: req.DestinationMemberID,
		Amount:              req.Amount,
		Description:         req.Description,
		PaymentMethod:       req.PaymentMethod,
	}

	result, err := h.service.Transfer(ctx, arg)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().Str("actor", middleware.Actor(gctx)).Str("reference", result.Reference).Msg("transfer created")

	gctx.JSON(http.StatusCreated, response{Data: data{result}})
}

type getRequest struct {
	Reference string `uri:"reference" binding:"required,max=100"`
}

// Get handles http request to get both legs of a transfer.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	result, err := h.service.Get(ctx, req.Reference)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{result}})
}
