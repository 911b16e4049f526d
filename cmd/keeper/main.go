package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/darshprotocol/lending-engine/internal/config"
	"github.com/darshprotocol/lending-engine/internal/keeper"
	"github.com/darshprotocol/lending-engine/internal/repository"
	"github.com/darshprotocol/lending-engine/internal/service"
)

// Standalone keeper: runs a dedicated mirror instance and sweeps it on a
// schedule. Useful for simulation runs and replay against the archive; the
// API server carries its own in-process sweeper for live state.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	if level, parseErr := logrus.ParseLevel(cfg.Logging.Level); parseErr == nil {
		logger.SetLevel(level)
	}
	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
	})
	defer redisClient.Close()

	offerRepo := repository.NewOfferRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	repaymentRepo := repository.NewRepaymentRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	lendingService, err := service.NewLendingService(offerRepo, loanRepo, repaymentRepo, activityRepo, redisClient, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize lending service: %v", err)
	}
	sweeper := keeper.NewSweeper(lendingService, logger)

	c := cron.New(cron.WithLocation(keeperLocation(cfg, logger)))
	if _, err := c.AddFunc("@every "+cfg.Keeper.Interval, func() {
		sweeper.Sweep(context.Background())
	}); err != nil {
		logger.Fatalf("Failed to schedule keeper sweep: %v", err)
	}

	c.Start()
	logger.Infof("Keeper started, sweeping every %s", cfg.Keeper.Interval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down keeper...")
	<-c.Stop().Done()
	logger.Info("Keeper stopped")
}

func keeperLocation(cfg *config.Config, logger *logrus.Logger) *time.Location {
	location, err := time.LoadLocation(cfg.Keeper.Timezone)
	if err != nil {
		logger.Warnf("Unknown timezone %q, falling back to UTC", cfg.Keeper.Timezone)
		return time.UTC
	}
	return location
}
