package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/SalahGhedda/BrokerX/internal/auth"
	"github.com/SalahGhedda/BrokerX/internal/config"
	"github.com/SalahGhedda/BrokerX/internal/database"
	"github.com/SalahGhedda/BrokerX/internal/market"
	"github.com/SalahGhedda/BrokerX/internal/metrics"
	"github.com/SalahGhedda/BrokerX/internal/notification"
	"github.com/SalahGhedda/BrokerX/internal/orders"
	"github.com/SalahGhedda/BrokerX/internal/portfolio"
	"github.com/SalahGhedda/BrokerX/internal/txn"
	"github.com/SalahGhedda/BrokerX/internal/wallet"
	"github.com/SalahGhedda/BrokerX/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the brokerage API server with graceful shutdown
// support. It wires the database, the transaction coordinator, every domain
// service and the market ticker before serving the API routes.
func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	manager := txn.NewGormManager(db)
	registry := metrics.NewRegistry()

	// Initialize services and handlers
	walletService := wallet.NewService(wallet.NewDatabase(db), wallet.NewMockGateway(), manager, registry)
	walletHandlers := wallet.NewGinHandlers(walletService)

	authService := auth.NewService(auth.NewDatabase(db), walletService, cfg.Auth.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)

	marketService := market.NewService(market.NewDatabase(db), market.NewRandomWalkFeed(time.Now().UnixNano()))
	marketHandlers := market.NewGinHandlers(marketService)
	if err := marketService.SeedCatalogue(context.Background()); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to seed the stock catalogue")
	}

	portfolioService := portfolio.NewService(portfolio.NewDatabase(db))
	portfolioHandlers := portfolio.NewGinHandlers(portfolioService)

	notificationService := notification.NewService(cfg.Notifications.Capacity)
	notificationHandlers := notification.NewGinHandlers(notificationService)

	orderService := orders.NewService(orders.Deps{
		Repo:      orders.NewDatabase(db),
		Accounts:  authService,
		Market:    marketService,
		Ledger:    walletService,
		Positions: portfolioService,
		Notifier:  notificationService,
		Metrics:   registry,
		Tx:        manager,
	})
	orderHandlers := orders.NewGinHandlers(orderService)

	// Create and start the market ticker feeding the order engine
	ticker := market.NewTicker(marketService, orderService, cfg.Market.TickInterval)
	tickerCtx, tickerCancel := context.WithCancel(context.Background())
	defer tickerCancel()

	go ticker.Start(tickerCtx)

	// Initialize router
	router := gin.Default()
	router.Use(middleware.RateLimit())

	setupRoutes(router, cfg.Auth.JWTSecret, authHandlers, marketHandlers, walletHandlers, orderHandlers, portfolioHandlers, notificationHandlers, registry)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	tickerCancel()

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers.
// Routes are grouped by functionality:
// - Auth routes: public signup, verification and token endpoints
// - Market routes: public catalogue and quotes
// - Everything else is protected by JWT authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	marketHandlers *market.GinHandlers,
	walletHandlers *wallet.GinHandlers,
	orderHandlers *orders.GinHandlers,
	portfolioHandlers *portfolio.GinHandlers,
	notificationHandlers *notification.GinHandlers,
	registry *metrics.Registry,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/signup", authHandlers.SignupHandler())
			authGroup.POST("/verify/:account_id", authHandlers.VerifyHandler())
			authGroup.POST("/suspend/:account_id", authHandlers.SuspendHandler())
			authGroup.POST("/reactivate/:account_id", authHandlers.ReactivateHandler())
			authGroup.GET("/audit/:account_id", authHandlers.AccountAuditHandler())
			authGroup.POST("/token", authHandlers.TokenHandler())
		}

		// Market routes
		marketGroup := v1.Group("/market")
		{
			marketGroup.GET("/stocks", marketHandlers.ListStocksHandler())
			marketGroup.GET("/quote/:symbol", marketHandlers.QuoteHandler())
		}

		// Watchlist routes
		watchlistGroup := v1.Group("/market/watchlist")
		watchlistGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			watchlistGroup.GET("", marketHandlers.WatchlistHandler())
			watchlistGroup.POST("/:symbol", marketHandlers.FollowHandler())
			watchlistGroup.DELETE("/:symbol", marketHandlers.UnfollowHandler())
		}

		// Wallet routes
		walletGroup := v1.Group("/wallet")
		walletGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			walletGroup.POST("/deposits", walletHandlers.DepositHandler())
			walletGroup.GET("/balance", walletHandlers.BalanceHandler())
			walletGroup.GET("/transactions", walletHandlers.TransactionsHandler())
		}

		// Order routes
		orderGroup := v1.Group("/orders")
		orderGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			orderGroup.POST("", orderHandlers.PlaceOrderHandler())
			orderGroup.GET("", orderHandlers.ListOrdersHandler())
			orderGroup.GET("/:order_id", orderHandlers.GetOrderHandler())
			orderGroup.DELETE("/:order_id", orderHandlers.CancelOrderHandler())
			orderGroup.GET("/:order_id/audit", orderHandlers.OrderAuditHandler())
		}

		// Portfolio routes
		portfolioGroup := v1.Group("/portfolio")
		portfolioGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			portfolioGroup.GET("/positions", portfolioHandlers.ListPositionsHandler())
		}

		// Notification routes
		notificationGroup := v1.Group("/notifications")
		notificationGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			notificationGroup.GET("", notificationHandlers.ListHandler())
			notificationGroup.DELETE("", notificationHandlers.ClearHandler())
		}

		// Operational metrics
		v1.GET("/metrics", registry.Handler())
	}
}
