package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/darshprotocol/lending-engine/internal/config"
	"github.com/darshprotocol/lending-engine/internal/handler"
	"github.com/darshprotocol/lending-engine/internal/keeper"
	"github.com/darshprotocol/lending-engine/internal/repository"
	"github.com/darshprotocol/lending-engine/internal/service"
	"github.com/darshprotocol/lending-engine/pkg/response"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := initLogger(cfg)

	// Initialize database
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	offerRepo := repository.NewOfferRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	repaymentRepo := repository.NewRepaymentRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Initialize service
	lendingService, err := service.NewLendingService(offerRepo, loanRepo, repaymentRepo, activityRepo, redisClient, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize lending service: %v", err)
	}
	lendingHandler := handler.NewLendingHandler(lendingService)
	sweeper := keeper.NewSweeper(lendingService, logger)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	// Setup routes
	router := setupRoutes(lendingHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      response.LoggingMiddleware(response.CORSMiddleware(router)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Background keeper sweep: matured loans are liquidated and aged offers
	// expired without waiting for an external caller.
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go func() {
		ticker := time.NewTicker(cfg.GetKeeperInterval())
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				sweeper.Sweep(sweepCtx)
			}
		}
	}()

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

func initLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
	})
}

func setupRoutes(lendingHandler *handler.LendingHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/offers", lendingHandler.CreateOffer).Methods("POST")
	api.HandleFunc("/offers", lendingHandler.ListOffers).Methods("GET")
	api.HandleFunc("/offers/{offerId}", lendingHandler.GetOffer).Methods("GET")
	api.HandleFunc("/offers/{offerId}/accept", lendingHandler.AcceptOffer).Methods("POST")
	api.HandleFunc("/offers/{offerId}/cancel", lendingHandler.CancelOffer).Methods("POST")

	api.HandleFunc("/loans", lendingHandler.ListLoans).Methods("GET")
	api.HandleFunc("/loans/{loanId}", lendingHandler.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/owed", lendingHandler.OwedAmount).Methods("GET")
	api.HandleFunc("/loans/{loanId}/repay", lendingHandler.RepayLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/liquidate", lendingHandler.LiquidateLoan).Methods("POST")

	api.HandleFunc("/borrowers/{account}/ltv", lendingHandler.BorrowerLtv).Methods("GET")
	api.HandleFunc("/borrowers/{account}/activity", lendingHandler.GetActivity).Methods("GET")
	api.HandleFunc("/accounts/{account}/deposit", lendingHandler.Deposit).Methods("POST")
	api.HandleFunc("/feeds", lendingHandler.SetPriceFeed).Methods("POST")

	return router
}
