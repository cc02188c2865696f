package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookrent-bot/internal/bot"
	"bookrent-bot/internal/config"
	"bookrent-bot/internal/reservation"
	"bookrent-bot/internal/storage"
	"bookrent-bot/pkg/bucket"
	"bookrent-bot/pkg/logger"
	"bookrent-bot/pkg/redis"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// ENTRY POINT

func main() {
	_ = godotenv.Load()

	zapLogger, err := logger.New()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLogger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	redisClient := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	pgStorage, err := storage.NewPostgresStorage(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init PostgreSQL storage", zap.Error(err))
	}
	defer pgStorage.Close()

	if err := storage.RunMigrations(ctx, pgStorage.DB(), zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	bucketClient := bucket.NewClient(
		cfg.Storage.BaseURL,
		cfg.Storage.ServiceKey,
		cfg.Storage.Bucket,
		zapLogger,
	)

	sessions := bot.NewRedisSessionStore(redisClient, cfg.SessionTTL)

	tgBot, err := bot.New(
		cfg.TelegramToken,
		pgStorage,
		sessions,
		bucketClient,
		pgStorage,
		zapLogger,
		cfg.AdminChatID,
	)
	if err != nil {
		zapLogger.Fatal("Failed to create bot", zap.Error(err))
	}

	reservationService := reservation.NewService(pgStorage, tgBot, zapLogger)
	reservationHandler := reservation.NewHandler(reservationService, pgStorage, zapLogger)

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Mount("/api", reservationHandler.Routes())

	webhookMode := cfg.WebhookSecret != ""
	if webhookMode {
		router.Method(http.MethodPost, "/telegram/webhook",
			bot.NewWebhookHandler(tgBot, cfg.WebhookSecret, zapLogger))
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("HTTP server listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("HTTP server stopped", zap.Error(err))
			cancel()
		}
	}()

	if webhookMode {
		<-ctx.Done()
	} else {
		if err := tgBot.Start(ctx); err != nil {
			zapLogger.Fatal("Bot stopped with error", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("Bot shutdown gracefully")
}
