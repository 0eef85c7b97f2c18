package middleware

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/go-petr/sacco/pkg/configpkg"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// CreateLogger returns the application logger configured for the environment.
//
// LOG_LEVEL sets the level; development switches to console output with callers.
func CreateLogger(config configpkg.Config) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil || config.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	var output io.Writer = os.Stderr

	if config.Environement == "development" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "sacco")

	if config.Environement == "development" {
		ctx = ctx.Caller()
	}

	return ctx.Logger()
}

// RequestLogger puts a request scoped logger into the request context and logs
// every finished request with the staff user that made it.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Writer.Header().Set(RequestIDHeader, requestID)

		l := logger.With().Str("request_id", requestID).Logger()
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		defer func() {
			if rec := recover(); rec != nil {
				l.Error().Str("path", c.Request.URL.Path).Msgf("panic recovered: %v", rec)
				c.AbortWithStatus(http.StatusInternalServerError)
			}

			status := c.Writer.Status()

			event := l.Info()

			switch {
			case status >= http.StatusInternalServerError:
				event = l.Error()
			case status >= http.StatusBadRequest:
				event = l.Warn()
			}

			event.
				Str("actor", Actor(c)).
				Str("client_ip", c.ClientIP()).
				Str("method", c.Request.Method).
				Str("path", c.FullPath()).
				Int("status_code", status).
				Dur("latency", time.Since(start)).
				Msg(c.Errors.ByType(gin.ErrorTypePrivate).String())
		}()

		c.Next()
	}
}
