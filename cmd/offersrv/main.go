// Package main запускает HTTP-сервер сервиса коммерческих предложений.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielkolev/offersrv-sub002/internal/config"
	"github.com/danielkolev/offersrv-sub002/internal/draftcache"
	"github.com/danielkolev/offersrv-sub002/internal/handler"
	"github.com/danielkolev/offersrv-sub002/internal/middleware"
	"github.com/danielkolev/offersrv-sub002/internal/repository"
	"github.com/danielkolev/offersrv-sub002/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var offers service.OfferRepository = repo
	if cfg.OfferStore == config.StoreDynamoDB {
		awsCfg, err := repository.NewDynamoDBConfig(ctx, cfg.AWSRegion, cfg.DynamoEndpoint, cfg.AWSAccessKey, cfg.AWSSecretKey)
		if err != nil {
			sugar.Fatalw("dynamodb configuration error", "error", err.Error())
		}
		offers = repository.NewDynamoOfferRepository(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable)
		sugar.Infow("using dynamodb offer store", "table", cfg.DynamoTable)
	}

	var kv draftcache.KV = draftcache.NewMemoryKV()
	if cfg.RedisURL != "" {
		redisKV, err := draftcache.NewRedisKV(ctx, cfg.RedisURL, cfg.DraftCacheTTL)
		if err != nil {
			sugar.Fatalw("redis initialization error", "error", err.Error())
		}
		defer redisKV.Close()
		kv = redisKV
	}

	locals := service.NewLocalStores(kv, logger)
	reconciler := service.NewReconciler(offers, locals, logger)
	sessions := service.NewSessions(context.Background(), offers, reconciler, locals, service.SessionConfig{
		Debounce:        cfg.SaveDebounce,
		DefaultCurrency: cfg.DefaultCurrency,
		DefaultLanguage: cfg.DefaultLanguage,
		IdleTTL:         cfg.SessionIdleTTL,
	}, logger)

	svc := service.NewService(repo, offers, repo)
	importer := service.NewImporter(repo)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, reconciler, sessions, importer, logger, authMiddleware)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}
	// Shutdown не отменяет контексты запросов, потоки событий закрываются отдельно.
	server.RegisterOnShutdown(h.CloseStreams)

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting offer server", "addr", cfg.RunAddress, "store", cfg.OfferStore)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown: сначала сервер, затем отложенные записи черновиков
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr := server.Shutdown(shutdownCtx)

		flushCtx, cancelFlush := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelFlush()
		if err := sessions.FlushAll(flushCtx); err != nil {
			sugar.Warnw("pending drafts were not saved", "error", err)
		}

		if shutdownErr != nil {
			return fmt.Errorf("server shutdown error: %w", shutdownErr)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
