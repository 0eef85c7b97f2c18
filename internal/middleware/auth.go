// Package middleware provides gin handlers shared by all routes.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-petr/sacco/internal/domain"
	"github.com/go-petr/sacco/pkg/tokenpkg"
	"github.com/go-petr/sacco/pkg/web"
)

// Authorization header parts and the gin context key of the verified payload.
const (
	AuthHeaderKey  = "authorization"
	AuthTypeBearer = "bearer"
	AuthPayloadKey = "authorization_payload"
)

var (
	// ErrAuthHeaderNotFound indicates a request without the authorization header.
	ErrAuthHeaderNotFound = errors.New("authorization header is not provided")
	// ErrBadAuthHeaderFormat indicates the header is not "<type> <token>".
	ErrBadAuthHeaderFormat = errors.New("invalid authorization header format")
	// ErrUnsupportedAuthType indicates a non bearer authorization type.
	ErrUnsupportedAuthType = errors.New("unsupported authorization type")
	// ErrForbidden indicates that the role lacks the capability required by the route.
	ErrForbidden = errors.New("operation not permitted for this role")
)

// Capability names an action a staff role may perform.
type Capability string

// Capabilities checked by the routes.
const (
	CapAccountsRead     Capability = "accounts:read"
	CapAccountsWrite    Capability = "accounts:write"
	CapTransactionsPost Capability = "transactions:post"
	CapTransfersCreate  Capability = "transfers:create"
	CapRatesManage      Capability = "rates:manage"
	CapUsersManage      Capability = "users:manage"
)

var roleCapabilities = map[string]map[Capability]bool{
	domain.RoleAdmin: {
		CapAccountsRead:     true,
		CapAccountsWrite:    true,
		CapTransactionsPost: true,
		CapTransfersCreate:  true,
		CapRatesManage:      true,
		CapUsersManage:      true,
	},
	domain.RoleStaff: {
		CapAccountsRead:     true,
		CapAccountsWrite:    true,
		CapTransactionsPost: true,
		CapTransfersCreate:  true,
	},
	domain.RoleAuditor: {
		CapAccountsRead: true,
	},
}

// Can reports whether the role grants the capability.
func Can(role string, c Capability) bool {
	return roleCapabilities[role][c]
}

// AddAuthorization sets authorization header with a freshly created token.
func AddAuthorization(
	request *http.Request,
	tokenMaker tokenpkg.Maker,
	authorizationType string,
	username string,
	role string,
	duration time.Duration,
) error {
	token, _, err := tokenMaker.CreateToken(username, role, duration)
	if err != nil {
		return err
	}

	authorizationHeader := fmt.Sprintf("%s %s", authorizationType, token)
	request.Header.Set(AuthHeaderKey, authorizationHeader)

	return nil
}

// AuthMiddleware verifies the bearer token and stores its payload in the gin context.
func AuthMiddleware(tokenMaker tokenpkg.Maker) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authorizationHeader := ctx.GetHeader(AuthHeaderKey)
		if len(authorizationHeader) == 0 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrAuthHeaderNotFound))
			return
		}

		fields := strings.Fields(authorizationHeader)
		if len(fields) < 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrBadAuthHeaderFormat))
			return
		}

		authorizationType := strings.ToLower(fields[0])
		if authorizationType != AuthTypeBearer {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrUnsupportedAuthType))
			return
		}

		accessToken := fields[1]

		payload, err := tokenMaker.VerifyToken(accessToken)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(err))
			return
		}

		ctx.Set(AuthPayloadKey, payload)
		ctx.Next()
	}
}

// RequireCapability rejects requests whose token role lacks the capability.
// It must run after AuthMiddleware.
func RequireCapability(c Capability) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		payload, ok := payloadFrom(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrAuthHeaderNotFound))
			return
		}

		if !Can(payload.Role, c) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, web.Error(ErrForbidden))
			return
		}

		ctx.Next()
	}
}

// Actor returns the username of the authenticated staff member, or "system".
func Actor(ctx *gin.Context) string {
	if payload, ok := payloadFrom(ctx); ok {
		return payload.Username
	}

	return "system"
}

func payloadFrom(ctx *gin.Context) (*tokenpkg.Payload, bool) {
	v, ok := ctx.Get(AuthPayloadKey)
	if !ok {
		return nil, false
	}

	payload, ok := v.(*tokenpkg.Payload)

	return payload, ok
}
