package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"skillduel/internal/cache"
	"skillduel/internal/config"
	"skillduel/internal/repository"
	"skillduel/internal/service"
	"skillduel/internal/transport/rest"
	"skillduel/internal/transport/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// .env is optional; real deployments configure via environment.
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	clock := clockwork.NewRealClock()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to ping MongoDB")
	}
	log.Info().Msg("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping Redis")
	}
	log.Info().Msg("connected to Redis")

	// WebSocket hub
	wsHub := ws.NewHub()

	// Repositories
	roomRepo := repository.NewRoomRepo(db)
	attemptRepo := repository.NewAttemptRepo(db)
	itemRepo := repository.NewItemRepo(db)

	if err := attemptRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create attempt indexes")
	}

	// Caches
	roomCache := cache.NewRoomCache(rdb)
	leaderboard := cache.NewLeaderboardCache(rdb)

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret)
	finalizer := service.NewFinalizer(roomRepo, attemptRepo, roomCache, leaderboard, clock)
	roomSvc := service.NewRoomService(roomRepo, itemRepo, attemptRepo, roomCache, leaderboard, finalizer, clock)
	attemptSvc := service.NewAttemptService(roomRepo, attemptRepo, itemRepo, leaderboard, finalizer, roomSvc, clock)
	statsSvc := service.NewStatsService(roomRepo)

	// wsHub implements service.Broadcaster
	finalizer.SetBroadcaster(wsHub)
	roomSvc.SetBroadcaster(wsHub)
	attemptSvc.SetBroadcaster(wsHub)

	// Expiry reaper
	reaper := service.NewReaper(roomRepo, finalizer, clock, cfg.ReaperInterval)
	if err := reaper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start reaper")
	}
	defer reaper.Stop()

	container := &rest.Container{
		AuthService:    authSvc,
		RoomService:    roomSvc,
		AttemptService: attemptSvc,
		StatsService:   statsSvc,
		WSHub:          wsHub,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: rest.NewRouter(container),
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
