package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/progreswwa/ekipa-strategow-back/internal/ai"
	"github.com/progreswwa/ekipa-strategow-back/internal/archive"
	"github.com/progreswwa/ekipa-strategow-back/internal/config"
	httpserver "github.com/progreswwa/ekipa-strategow-back/internal/http"
	"github.com/progreswwa/ekipa-strategow-back/internal/http/handlers"
	"github.com/progreswwa/ekipa-strategow-back/internal/http/middleware"
	"github.com/progreswwa/ekipa-strategow-back/internal/logging"
	"github.com/progreswwa/ekipa-strategow-back/internal/notify"
	"github.com/progreswwa/ekipa-strategow-back/internal/publish"
	"github.com/progreswwa/ekipa-strategow-back/internal/queue"
	"github.com/progreswwa/ekipa-strategow-back/internal/repository"
	"github.com/progreswwa/ekipa-strategow-back/internal/service"
	"github.com/progreswwa/ekipa-strategow-back/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("production")
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, repoCloser := setupRepository(ctx, cfg, logger)
	defer repoCloser()

	// Bound below; the consume loop does not start before the service exists.
	var deployments *service.DeploymentService
	rejected := func(ctx context.Context, jobID, reason string) {
		deployments.Reject(ctx, jobID, reason)
	}
	producer, consumer, queueCloser := setupQueue(ctx, cfg, rejected, logger)
	defer queueCloser()

	anthropic := ai.NewAnthropicClient(ai.AnthropicClientConfig{
		APIKey:  cfg.Claude.APIKey,
		BaseURL: cfg.Claude.APIURL,
		Timeout: cfg.Claude.Timeout,
	})
	if !anthropic.Available() {
		logger.Warn().Msg("CLAUDE_API_KEY not configured, website generation will fail")
	}
	generator := ai.NewWebsiteGenerator(anthropic, ai.WebsiteGeneratorConfig{
		Model:     cfg.Claude.Model,
		MaxTokens: cfg.Claude.MaxTokens,
	}, logger)

	netlify := publish.NewNetlifyClient(publish.NetlifyClientConfig{
		APIToken: cfg.Netlify.APIToken,
		BaseURL:  cfg.Netlify.APIURL,
		TeamSlug: cfg.Netlify.TeamID,
	})
	if !netlify.Available() {
		logger.Warn().Msg("NETLIFY_API_TOKEN not configured, deployments will fail")
	}

	webhook := notify.NewWebhook(notify.WebhookConfig{
		URL:     cfg.N8N.WebhookURL,
		Timeout: cfg.N8N.Timeout,
	}, logger)

	deployments = service.NewDeploymentService(service.DeploymentDependencies{
		Repo:       repo,
		Producer:   producer,
		Generator:  generator,
		Publisher:  netlify,
		Archive:    setupArchive(ctx, cfg, logger),
		SitePrefix: cfg.SitePrefix,
		Logger:     logger,
	})
	briefs := service.NewBriefsService(repo, webhook, logger)

	api := handlers.NewAPI(handlers.APIDependencies{
		Briefs:      briefs,
		Deployments: deployments,
		Jobs:        service.NewJobsService(repo),
		Logger:      logger,
	})

	generalLimit := middleware.PerSecond(cfg.RateLimitRPS, cfg.RateLimitBurst)
	deployLimit := middleware.PerMinute(cfg.DeployRateLimitPerMin)
	go generalLimit.Sweep(ctx, 3*time.Minute)
	go deployLimit.Sweep(ctx, 3*time.Minute)

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:          api,
		Logger:       logger,
		APIKey:       cfg.APIKey,
		CORSOrigins:  httpserver.SplitOrigins(cfg.CORSOrigin),
		GeneralLimit: generalLimit,
		DeployLimit:  deployLimit,
		MaxBodyBytes: middleware.DefaultMaxBodyBytes,
	})
	if cfg.APIKey == "" {
		logger.Warn().Msg("API_KEY not configured, API routes are open")
	}

	processor := worker.NewProcessor(consumer, deployments, cfg.WorkerConcurrency, logger)
	go processor.Start(ctx)
	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("deployment worker started")

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("api listening")
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server failed")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if !processor.Wait(cfg.ShutdownTimeout) {
		logger.Warn().Msg("in-flight deployments did not finish before shutdown")
	}
	briefs.Wait()
	logger.Info().Msg("shutdown complete")
}

func setupRepository(ctx context.Context, cfg config.Config, logger zerolog.Logger) (repository.Repository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not configured, using in-memory repository")
		return repository.NewMemoryRepository(), func() {}
	}

	if cfg.DatabaseMigrate {
		if err := repository.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("database migration failed")
		}
		logger.Info().Msg("database migrations applied")
	}

	pgRepo, err := repository.NewPostgresRepository(ctx, repository.PostgresConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize postgres repository, fallback to memory")
		return repository.NewMemoryRepository(), func() {}
	}
	logger.Info().Msg("postgres repository initialized")
	return pgRepo, pgRepo.Close
}

func setupQueue(ctx context.Context, cfg config.Config, rejected queue.RejectFunc, logger zerolog.Logger) (queue.Producer, queue.Consumer, func()) {
	if cfg.Redis.Addr == "" {
		logger.Info().Msg("REDIS_ADDR not configured, using local queue")
		local := queue.NewLocalQueue(cfg.QueueBuffer, logger)
		return local, local, func() {}
	}

	streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		Stream:    cfg.Redis.Stream,
		DLQStream: cfg.Redis.DLQStream,
		Group:     cfg.Redis.Group,
		Consumer:  cfg.Redis.Consumer,
		Rejected:  rejected,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize redis streams queue, fallback to local")
		local := queue.NewLocalQueue(cfg.QueueBuffer, logger)
		return local, local, func() {}
	}
	logger.Info().Str("stream", cfg.Redis.Stream).Msg("redis streams queue initialized")
	return streams, streams, func() { _ = streams.Close() }
}

// setupArchive returns nil when archiving is disabled or unavailable.
func setupArchive(ctx context.Context, cfg config.Config, logger zerolog.Logger) service.ArtifactArchive {
	if cfg.Archive.S3URL == "" {
		return nil
	}

	client, err := archive.NewClient(cfg.Archive.S3URL, cfg.Archive.Region)
	if err != nil {
		logger.Error().Err(err).Msg("invalid ARCHIVE_S3_URL, artifact archive disabled")
		return nil
	}
	store := archive.NewS3Archive(client, cfg.Archive.Bucket)
	setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := store.Setup(setupCtx); err != nil {
		logger.Error().Err(err).Msg("artifact bucket setup failed, artifact archive disabled")
		return nil
	}
	logger.Info().Str("bucket", cfg.Archive.Bucket).Msg("artifact archive enabled")
	return store
}
