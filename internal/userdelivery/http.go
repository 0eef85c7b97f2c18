// Package userdelivery manages delivery layer of back office users.
package userdelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/internal/middleware"
	"github.com/go-petr/sacco/pkg/passpkg"
	"github.com/go-petr/sacco/pkg/tokenpkg"
	"github.com/go-petr/sacco/pkg/web"
)

// Service provides service layer interface needed by user delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package userdelivery
type Service interface {
	Create(ctx context.Context, username, password, fullname, role string) (domain.UserWihtoutPassword, error)
	Login(ctx context.Context, username, password string) (string, *tokenpkg.Payload, domain.UserWihtoutPassword, error)
	List(ctx context.Context, pageSize, pageID int32) ([]domain.UserWihtoutPassword, error)
	ChangeRole(ctx context.Context, username, role string) (domain.UserWihtoutPassword, error)
}

// Handler facilitates user delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns user handler.
func NewHandler(us Service) *Handler {
	return &Handler{
		service: us,
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUsernameAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownRole), errors.Is(err, passpkg.ErrTooLong):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWrongPassword):
		return http.StatusUnauthorized
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
	User domain.UserWihtoutPassword `json:"user,omitempty"`
}

type dataUsers struct {
	Users []domain.UserWihtoutPassword `json:"users"`
}

type createRequest struct {
	Username string `json:"username" binding:"required,alphanum"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// Create handles http request to create a staff user.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	createdUser, err := h.service.Create(ctx, req.Username, req.Password, req.FullName, req.Role)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().Str("actor", middleware.Actor(gctx)).Str("username", createdUser.Username).Msg("user created")

	gctx.JSON(http.StatusCreated, web.Response{Data: data{createdUser}})
}

type loginRequest struct {
	Username string `json:"username" binding:"required,alphanum"`
	Password string `json:"password" binding:"required,min=6"`
}

// Login handles http login request and returns user and access token.
func (h *Handler) Login(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req loginRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	accessToken, payload, user, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{
		AccessToken:          accessToken,
		AccessTokenExpiresAt: payload.ExpiredAt.UTC().Format(time.RFC3339),
		Data:                 data{user},
	})
}

type pageRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1"`
	PageSize int32 `form:"page_size" binding:"required,min=5,max=50"`
}

// List handles http request to page through staff users.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req pageRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	users, err := h.service.List(ctx, req.PageSize, req.PageID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: dataUsers{users}})
}

type usernameRequest struct {
	Username string `uri:"username" binding:"required,alphanum"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChangeRole handles http request to move a staff user to another role.
func (h *Handler) ChangeRole(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri usernameRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	var req roleRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	user, err := h.service.ChangeRole(ctx, uri.Username, req.Role)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().Str("actor", middleware.Actor(gctx)).Str("username", user.Username).Str("role", user.Role).Msg("user role changed")

	gctx.JSON(http.StatusOK, web.Response{Data: data{user}})
}
