package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/vertexai/genai"
	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/connexus-ai/docforge/internal/broadcaster"
	"github.com/connexus-ai/docforge/internal/config"
	"github.com/connexus-ai/docforge/internal/embedclient"
	"github.com/connexus-ai/docforge/internal/extractor"
	"github.com/connexus-ai/docforge/internal/handler"
	"github.com/connexus-ai/docforge/internal/lock"
	"github.com/connexus-ai/docforge/internal/middleware"
	"github.com/connexus-ai/docforge/internal/model"
	"github.com/connexus-ai/docforge/internal/repository"
	"github.com/connexus-ai/docforge/internal/router"
	"github.com/connexus-ai/docforge/internal/service"
	"github.com/connexus-ai/docforge/internal/titler"
)

const Version = "0.1.0"

// app bundles every long-lived collaborator that must be closed cleanly
// at shutdown.
type app struct {
	pool        *pgxpool.Pool
	redis       *redis.Client
	pubsub      *pubsub.Client
	genai       *genai.Client
	gcs         *extractor.GCSFetcher
	broadcaster *broadcaster.PubSubBroadcaster
	rateLimiter *middleware.RateLimiter
	router      http.Handler
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	pool, err := repository.NewPool(ctx, cfg.PostgresURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("main: connect postgres: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("main: parse REDIS_URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCPProject)
	if err != nil {
		pool.Close()
		redisClient.Close()
		return nil, fmt.Errorf("main: connect pubsub: %w", err)
	}

	var vertexClient *genai.Client
	if cfg.GCPProject != "" {
		vertexClient, err = genai.NewClient(ctx, cfg.GCPProject, cfg.VertexLocation)
		if err != nil {
			slog.Warn("main: vertex AI client unavailable, extraction falls back to stage B only", "error", err)
			vertexClient = nil
		}
	}

	firebaseAuthClient, err := newFirebaseAuthClient(ctx, cfg.FirebaseProjectID)
	if err != nil {
		return nil, fmt.Errorf("main: init firebase auth: %w", err)
	}

	resourceRepo := repository.NewResourceRepo(pool)
	chunkRepo := repository.NewChunkRepo(pool)
	bc := broadcaster.New(pubsubClient)
	redisLock := lock.New(redisClient, 10*time.Minute)

	var stage1 *extractor.VertexConverter
	if vertexClient != nil {
		stage1 = &extractor.VertexConverter{Client: vertexClient, Model: "gemini-2.0-flash-001"}
	}

	gcsFetcher, err := extractor.NewGCSFetcher(ctx)
	if err != nil {
		slog.Warn("main: gcs client unavailable, gs:// resource urls will fail", "error", err)
		gcsFetcher = nil
	}

	extract := extractor.New(stage1, gcsFetcher, cfg.TikaURL)

	titleGen := titler.New(cfg.ItzamAPIURL, cfg.ItzamAPIKey)
	embedder := embedclient.NewOpenAIEmbedder(cfg.OpenAIAPIKey, "", model.EmbeddingDimensions)

	chunker, err := service.NewChunker()
	if err != nil {
		return nil, fmt.Errorf("main: init chunker: %w", err)
	}

	orchestrator := &service.Orchestrator{
		Extractor: extract,
		Titler:    titleGen,
		Chunker:   chunker,
		Embedder:  embedder,
		Resources: resourceRepo,
		Chunks:    chunkRepo,
		Broadcast: bc,
		Locker:    redisLock,
		Pool:      service.NewWorkerPool(cfg.MaxConcurrentBatches),
	}

	rescrapeGuard := &service.RescrapeGuard{
		Orchestrator: orchestrator,
		Resources:    resourceRepo,
		Chunks:       chunkRepo,
		Extractor:    extract,
		Broadcast:    bc,
	}

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		MaxRequests: 30,
		Window:      time.Minute,
	})

	r := router.New(&router.Dependencies{
		DB:          pool,
		AuthService: service.NewAuthService(firebaseAuthClient),
		FrontendURL: cfg.AppURL,
		Version:     Version,
		Metrics:     metrics,
		MetricsReg:  reg,
		RateLimiter: rateLimiter,
		CreateResourceDeps: handler.CreateResourceDeps{
			Resources:    resourceRepo,
			Orchestrator: orchestrator,
		},
		RescrapeDeps: handler.RescrapeDeps{
			Rescraper: rescrapeGuard,
			Secret:    cfg.RescrapeCronSecret,
		},
	})

	return &app{
		pool:        pool,
		redis:       redisClient,
		pubsub:      pubsubClient,
		genai:       vertexClient,
		gcs:         gcsFetcher,
		broadcaster: bc,
		rateLimiter: rateLimiter,
		router:      r,
	}, nil
}

func newFirebaseAuthClient(ctx context.Context, projectID string) (service.AuthClient, error) {
	opts := &firebase.Config{}
	if projectID != "" {
		opts.ProjectID = projectID
	}
	fbApp, err := firebase.NewApp(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	return fbApp.Auth(ctx)
}

func (a *app) Close() {
	a.pool.Close()
	a.redis.Close()
	a.pubsub.Close()
	if a.genai != nil {
		a.genai.Close()
	}
	if a.gcs != nil {
		a.gcs.Close()
	}
	a.broadcaster.Close()
	a.rateLimiter.Stop()
}

func getPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return fmt.Sprintf("%d", cfg.Port)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("main: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	instance, err := buildApp(ctx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer instance.Close()

	port := getPort(cfg)
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      instance.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("docforge v%s starting on port %s", Version, port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("received signal %s, shutting down gracefully", sig)
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Println("server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
