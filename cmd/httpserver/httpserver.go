// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-petr/sacco/internal/accountdelivery"
	"github.com/go-petr/sacco/internal/accountservice"
	"github.com/go-petr/sacco/internal/ledgerservice"
	"github.com/go-petr/sacco/internal/middleware"
	"github.com/go-petr/sacco/internal/ratecache"
	"github.com/go-petr/sacco/internal/ratedelivery"
	"github.com/go-petr/sacco/internal/raterepo"
	"github.com/go-petr/sacco/internal/rateservice"
	"github.com/go-petr/sacco/internal/store"
	"github.com/go-petr/sacco/internal/transactiondelivery"
	"github.com/go-petr/sacco/internal/transferdelivery"
	"github.com/go-petr/sacco/internal/transferservice"
	"github.com/go-petr/sacco/internal/userdelivery"
	"github.com/go-petr/sacco/internal/userrepo"
	"github.com/go-petr/sacco/internal/userservice"
	"github.com/go-petr/sacco/pkg/configpkg"
	"github.com/go-petr/sacco/pkg/tokenpkg"
	"github.com/go-petr/sacco/pkg/web"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Redis  *redis.Client
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Close releases the server connections.
func (s *Server) Close() error {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			return err
		}
	}

	return s.DB.Close()
}

// New creates Server type with instantiated domains and routes.
//
// Rate lookups are cached in Redis when REDIS_ADDRESS is configured.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	tokenMaker, err := tokenpkg.NewMaker(config)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create token maker")
	}

	server := &Server{
		DB:     conn,
		Config: config,
	}

	var rateOpts []rateservice.Option

	if config.RedisAddress != "" {
		server.Redis = redis.NewClient(&redis.Options{Addr: config.RedisAddress})
		rateOpts = append(rateOpts, rateservice.WithCache(ratecache.New(server.Redis, config.RateCacheTTL)))
	}

	st := store.NewSQLStore(conn)

	rateService := rateservice.New(raterepo.NewRepoPGS(conn), rateOpts...)
	ledgerService := ledgerservice.New(st)
	accountService := accountservice.New(st, ledgerService, rateService)
	transferService := transferservice.New(st, ledgerService)
	userService := userservice.New(userrepo.NewRepoPGS(conn), tokenMaker, config.AccessTokenDuration)

	accountHandler := accountdelivery.NewHandler(accountService)
	transactionHandler := transactiondelivery.NewHandler(ledgerService)
	transferHandler := transferdelivery.NewHandler(transferService)
	rateHandler := ratedelivery.NewHandler(rateService)
	userHandler := userdelivery.NewHandler(userService)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := web.RegisterValidators(v); err != nil {
			return nil, errors.Wrap(err, "cannot register validators")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/users/login", userHandler.Login)

	auth := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	read := middleware.RequireCapability(middleware.CapAccountsRead)
	write := middleware.RequireCapability(middleware.CapAccountsWrite)
	post := middleware.RequireCapability(middleware.CapTransactionsPost)

	users := middleware.RequireCapability(middleware.CapUsersManage)

	auth.POST("/users", users, userHandler.Create)
	auth.GET("/users", users, userHandler.List)
	auth.PATCH("/users/:username/role", users, userHandler.ChangeRole)

	auth.POST("/accounts", write, accountHandler.Open)
	auth.GET("/accounts/:id", read, accountHandler.Get)
	auth.POST("/accounts/:id/freeze", write, accountHandler.Freeze)
	auth.POST("/accounts/:id/unfreeze", write, accountHandler.Unfreeze)
	auth.POST("/accounts/:id/close", write, accountHandler.Close)
	auth.GET("/accounts/:id/interest", read, accountHandler.Interest)
	auth.GET("/accounts/:id/statement", read, accountHandler.Statement)
	auth.GET("/members/:id/accounts", read, accountHandler.List)
	auth.GET("/members/:id/summary", read, accountHandler.Summary)

	auth.POST("/accounts/:id/deposit", post, transactionHandler.Deposit)
	auth.POST("/accounts/:id/withdraw", post, transactionHandler.Withdraw)
	auth.POST("/accounts/:id/charge", post, transactionHandler.Charge)
	auth.GET("/accounts/:id/transactions", read, transactionHandler.List)
	auth.GET("/accounts/:id/transactions/summary", read, transactionHandler.Summary)
	auth.POST("/transactions/:id/reverse", post, transactionHandler.Reverse)

	auth.POST("/transfers", middleware.RequireCapability(middleware.CapTransfersCreate), transferHandler.Create)
	auth.GET("/transfers/:reference", read, transferHandler.Get)

	auth.GET("/rates", read, rateHandler.List)
	auth.GET("/rates/:account_type/current", read, rateHandler.Current)
	auth.POST("/rates", middleware.RequireCapability(middleware.CapRatesManage), rateHandler.Create)

	server.Engine = engine

	return server, nil
}
