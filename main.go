package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-parking/cmd"
	"smart-parking/internal/data/repository"
	"smart-parking/internal/events"
	"smart-parking/internal/geo"
	"smart-parking/internal/scheduler"
	"smart-parking/internal/usecase"
	"smart-parking/internal/wire"
	"smart-parking/pkg/cache"
	"smart-parking/pkg/database"
	"smart-parking/pkg/middleware"
	"smart-parking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.Bool("payment_mock_mode", config.Payment.MockMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	logger.Info("Database connected successfully")

	repos := repository.NewRepository(db, logger)

	deps := usecase.Dependencies{Clock: usecase.SystemClock{}}
	var denied middleware.TokenChecker

	// Optional infrastructure: Redis backs the geo index and token deny-list, AMQP
	// carries booking events.
	if config.Redis.Enabled {
		client, err := cache.InitRedis(config.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer client.Close()

		index := geo.NewRedisIndex(client, config.Redis.GeoKey)
		denyList := cache.NewTokenDenyList(client)
		deps.GeoIndex = index
		deps.DenyList = denyList
		denied = denyList

		if err := reindexSpots(ctx, repos, index, logger); err != nil {
			logger.Warn("Failed to rebuild geo index, nearby search falls back to the store", zap.Error(err))
		}
		logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
	}

	if config.AMQP.URL != "" {
		publisher, err := events.NewAMQPPublisher(config.AMQP.URL, config.AMQP.Exchange, logger)
		if err != nil {
			logger.Fatal("Failed to connect to message broker", zap.Error(err))
		}
		defer publisher.Close()
		deps.Events = publisher
	}

	// Wire all dependencies
	app := wire.Wiring(repos, db, config, deps, denied, logger)

	sweeper := scheduler.NewWorker(repos.Booking, app.Service.Booking, deps.Clock.Now, logger, scheduler.WorkerConfig{
		Interval:  time.Duration(config.Booking.SweepIntervalSeconds) * time.Second,
		BatchSize: config.Booking.SweepBatchSize,
	})
	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Sweep worker exited", zap.Error(err))
		}
	}()

	// Start server
	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}

// reindexSpots loads every live spot into the geo index so a fresh Redis instance can
// answer radius queries.
func reindexSpots(ctx context.Context, repos *repository.Repository, index *geo.RedisIndex, logger *zap.Logger) error {
	const pageSize = 500

	indexed := 0
	for offset := 0; ; offset += pageSize {
		spots, err := repos.Spot.FindAll(ctx, pageSize, offset)
		if err != nil {
			return err
		}
		for _, s := range spots {
			if err := index.Add(ctx, s.ID, geo.Coordinate{Lat: s.Latitude, Lng: s.Longitude}); err != nil {
				return err
			}
		}
		indexed += len(spots)
		if len(spots) < pageSize {
			break
		}
	}

	logger.Info("Geo index rebuilt", zap.Int("spots", indexed))
	return nil
}
