package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/adapters/events"
	grpcadapter "github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/adapters/platforms"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/application"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/ports"
	"github.com/viralforge/mesh/services/integrations/M31-social-publishing-service/internal/workers"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	scheduler  *workers.Scheduler
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("bootstrapping m31 social publishing service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init redis client: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)
	registry := platforms.NewDefaultRegistry(platforms.Config{
		HTTPTimeout:        cfg.PlatformHTTPTimeout,
		PollInterval:       cfg.PlatformPollInterval,
		PollTimeout:        cfg.PlatformPollTimeout,
		RequestsPerSecond:  cfg.PlatformRequestsPerSecond,
		FacebookGraphURL:   cfg.FacebookGraphURL,
		InstagramGraphURL:  cfg.InstagramGraphURL,
		InstagramDirectURL: cfg.InstagramDirectURL,
		LinkedInAPIURL:     cfg.LinkedInAPIURL,
	})

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:            cfg.ServiceID,
			MaxConcurrentPublishes: cfg.MaxConcurrentPublishes,
			PublishTimeout:         cfg.PublishTimeout,
			RetryBaseDelay:         cfg.RetryBaseDelay,
			DefaultMaxRetries:      cfg.DefaultMaxRetries,
			AnalyticsGrace:         cfg.AnalyticsGrace,
			AnalyticsDaysBack:      cfg.AnalyticsDaysBack,
			InsightsLimitedTTL:     cfg.InsightsLimitedTTL,
			IdempotencyTTL:         cfg.IdempotencyTTL,
		},
		Logger:         logger,
		Posts:          repos.Posts,
		Targets:        repos.Targets,
		Accounts:       repos.Accounts,
		Analytics:      repos.Analytics,
		Outbox:         repos.Outbox,
		Gateways:       registry,
		Validator:      application.NewMediaValidator(),
		Idempotency:    cacheadapter.NewRedisIdempotencyStore(redisClient),
		InsightsAccess: cacheadapter.NewRedisInsightsAccessStore(redisClient),
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler, logger, cfg.JWTSecret)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	grpcadapter.Register(grpcServer, grpcadapter.NewSocialPublishingInternalServer(svc))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	var publisher ports.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			application.EventTargetPublished: cfg.KafkaTopic,
			application.EventTargetFailed:    cfg.KafkaTopic,
			application.EventPostResolved:    cfg.KafkaTopic,
			application.EventAnalyticsSynced: cfg.KafkaTopic,
		})
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
	} else {
		logger.Warn("kafka brokers not configured; events are logged only")
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)
	scheduler := workers.NewScheduler(logger, svc, cfg.SweepInterval, cfg.ReconcileSchedule, cfg.AnalyticsDaysBack)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		scheduler:  scheduler,
		cleanupFn: func(ctx context.Context) {
			if closer, ok := publisher.(interface{ Close() error }); ok {
				_ = closer.Close()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker drives the outbox publisher and the sweep/reconcile scheduler in
// one process.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("outbox worker started")
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return runErr
}
