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

	"meetspace-api/internal/config"
	"meetspace-api/internal/database"
	"meetspace-api/internal/http/handler"
	"meetspace-api/internal/observability/logger"
	"meetspace-api/internal/ratelimit"
	"meetspace-api/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 25 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the Meetspace HTTP server. PostgreSQL and Redis are used when configured.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.OTELServiceName, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info(ctx, "starting meetspace api",
		logger.Module("bootstrap"),
		zap.String("version", version),
		zap.String("env", cfg.AppEnv),
	)

	shutdownTelemetry, metrics := initTelemetry(ctx, cfg, log)
	defer shutdownTelemetry()

	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "jwt authentication initialized",
		zap.Strings("allowed_issuers", cfg.GetAllowedIssuers()),
		zap.Bool("rs256", cfg.JWTPublicKeyRS256 != ""),
		zap.Int("clock_skew_seconds", cfg.JWTClockSkewSeconds),
	)

	var readyChecks []ReadyCheck

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		log.Info(ctx, "running database migrations")
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		pool, err = database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		readyChecks = append(readyChecks, ReadyCheck{Name: "database", Check: pool.Ping})
		log.Info(ctx, "database connected")
	} else {
		log.Warn(ctx, "DATABASE_URL not set, state is kept in memory only")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		readyChecks = append(readyChecks, ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
		log.Info(ctx, "redis connected")
	}

	prom := telemetry.NewPromMetrics()
	deps := appDeps{Cfg: cfg, Log: log, Pool: pool, Prom: prom}
	if redisClient != nil {
		deps.Redis = redisClient
	}
	a, err := buildApp(ctx, deps)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	var rejections metric.Int64Counter
	if metrics != nil {
		rejections = metrics.RateLimitRejections
	}
	var limiter ratelimit.Limiter = ratelimit.NewLocalRateLimiter(rejections)
	if redisClient != nil {
		limiter = ratelimit.NewRedisRateLimiter(redisClient, rejections)
	}

	var debugPool handler.DBPool
	if pool != nil {
		debugPool = pool
	}

	r := buildRouter(RouterDeps{
		Cfg:              cfg,
		Log:              log,
		Resolver:         resolver,
		Workspaces:       a.Directory,
		RateLimiter:      limiter,
		Metrics:          metrics,
		Prom:             prom,
		ReadyChecks:      readyChecks,
		UserHandler:      a.UserHandler,
		WorkspaceHandler: a.WorkspaceHandler,
		MemberHandler:    a.MemberHandler,
		AccessHandler:    a.AccessHandler,
		MeetingHandler:   a.MeetingHandler,
		DebugHandler:     handler.NewDebugHandler(cfg.AppEnv, debugPool),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting http server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutdown signal received, starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error(context.Background(), "server stopped with error", zap.Error(err))
		return err
	}
	log.Info(context.Background(), "shutdown complete")
	return nil
}

// initTelemetry starts the OTLP exporters when enabled. Failures are logged
// and the server continues without them. The returned metrics may be nil.
func initTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) (func(), *telemetry.Metrics) {
	var shutdowns []func(context.Context) error

	if cfg.TelemetryEnabled() {
		log.Info(ctx, "initializing telemetry", zap.String("endpoint", cfg.OTELExporterEndpoint))

		tp, err := telemetry.InitTracer(ctx, cfg.OTELServiceName, version, cfg.OTELExporterEndpoint, cfg.OTELSamplingRatio)
		if err != nil {
			log.Warn(ctx, "failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			shutdowns = append(shutdowns, tp.Shutdown)
		}

		mp, m, err := telemetry.InitMetrics(ctx, cfg.OTELServiceName, version, cfg.OTELExporterEndpoint)
		if err != nil {
			log.Warn(ctx, "failed to initialize metrics, continuing without metrics", zap.Error(err))
		} else {
			shutdowns = append(shutdowns, mp.Shutdown)
			return shutdownAll(log, shutdowns), m
		}
	} else {
		log.Info(ctx, "telemetry disabled")
	}

	m, err := telemetry.NewNoopMetrics(cfg.OTELServiceName)
	if err != nil {
		log.Warn(ctx, "failed to create metric instruments", zap.Error(err))
		m = nil
	}
	return shutdownAll(log, shutdowns), m
}

func shutdownAll(log *logger.Logger, fns []func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, fn := range fns {
			if err := fn(ctx); err != nil {
				log.Error(ctx, "failed to shutdown telemetry provider", zap.Error(err))
			}
		}
	}
}
