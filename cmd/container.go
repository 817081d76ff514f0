// cmd/container.go
//
// Composition root. Owns infrastructure (DB, Redis, mail) and wires the
// job scheduler, its handlers and the admin API on top of it.
package main

import (
	"context"
	"strings"

	"github.com/Abraxas-365/rentify/pkg/config"
	"github.com/Abraxas-365/rentify/pkg/iam/auth"
	"github.com/Abraxas-365/rentify/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/jobx/jobxhttp"
	"github.com/Abraxas-365/rentify/pkg/jobx/jobxmemory"
	"github.com/Abraxas-365/rentify/pkg/jobx/jobxmetrics"
	"github.com/Abraxas-365/rentify/pkg/jobx/jobxpostgres"
	"github.com/Abraxas-365/rentify/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/rentify/pkg/logx"
	"github.com/Abraxas-365/rentify/pkg/notifx"
	"github.com/Abraxas-365/rentify/pkg/notifx/notifxconsole"
	"github.com/Abraxas-365/rentify/pkg/notifx/notifxses"
	"github.com/Abraxas-365/rentify/pkg/rental/rentaljobs"
	"github.com/Abraxas-365/rentify/pkg/rental/rentalinfra"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and the composed modules.
type Container struct {
	Config *config.Config

	// Infrastructure
	DB       *sqlx.DB
	Redis    *redis.Client
	Metrics  *prometheus.Registry
	Notifier *notifx.Client

	// Auth
	TokenService   *auth.JWTService
	AuditService   *authinfra.LogxAuditService
	AuthMiddleware *auth.TokenMiddleware

	// Jobs
	JobStore    jobx.Store
	Scheduler   *jobx.Scheduler
	JobHandlers *jobxhttp.Handlers
}

func NewContainer(ctx context.Context, cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure(ctx)
	c.initAuth()
	c.initJobs(ctx)

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: DB, Redis, metrics, mail
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure(ctx context.Context) {
	logx.Info("🏗️ Initializing infrastructure...")

	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	if c.Config.Jobx.Backend == "redis" {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Address(),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if err := c.Redis.Ping(ctx).Err(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v (required by JOBX_BACKEND=redis)", err)
		}
		logx.Info("  ✅ Redis connected")
	}

	c.Metrics = prometheus.NewRegistry()
	c.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c.initNotifier(ctx)

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initNotifier(ctx context.Context) {
	cfg := c.Config.Notifx

	var provider notifx.EmailSender
	switch strings.ToLower(cfg.Provider) {
	case "ses":
		ses, err := notifxses.NewFromRegion(ctx, cfg.AWSRegion, cfg.FromAddress, cfg.ConfigurationSet)
		if err != nil {
			logx.Fatalf("Unable to configure SES: %v", err)
		}
		provider = ses
		logx.Infof("  ✅ SES email provider configured (region: %s)", cfg.AWSRegion)
	case "console":
		provider = notifxconsole.NewConsoleProvider()
		logx.Info("  ✅ Console email provider configured")
	default:
		logx.Fatalf("Unknown NOTIFX_PROVIDER: %s (use 'console' or 'ses')", cfg.Provider)
	}

	c.Notifier = notifx.NewClient(provider,
		notifx.WithDefaultFrom(cfg.FromAddress, cfg.FromName),
		notifx.WithAppURL(cfg.AppURL),
	)
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func (c *Container) initAuth() {
	cfg := c.Config.Auth
	c.TokenService = auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.Issuer)
	c.AuditService = authinfra.NewLogxAuditService()
	c.AuthMiddleware = auth.NewAuthMiddleware(c.TokenService, c.AuditService)
}

// ---------------------------------------------------------------------------
// Jobs: store, handlers, scheduler, metrics, admin API
// ---------------------------------------------------------------------------

func (c *Container) initJobs(ctx context.Context) {
	logx.Info("📦 Initializing job scheduler...")
	cfg := c.Config.Jobx

	switch cfg.Backend {
	case "postgres":
		if err := jobxpostgres.Migrate(ctx, c.DB); err != nil {
			logx.Fatalf("Failed to migrate job table: %v", err)
		}
		c.JobStore = jobxpostgres.New(c.DB)
	case "redis":
		c.JobStore = jobxredis.New(c.Redis)
	case "memory":
		logx.Warn("  ⚠️ JOBX_BACKEND=memory: jobs are lost on restart")
		c.JobStore = jobxmemory.New()
	default:
		logx.Fatalf("Unknown JOBX_BACKEND: %s (use 'postgres', 'redis' or 'memory')", cfg.Backend)
	}

	registry := jobx.NewRegistry()
	handlers := rentaljobs.NewHandlers(
		c.Notifier,
		rentalinfra.NewPostgresRentalRepository(c.DB),
		rentalinfra.NewPostgresPaymentRepository(c.DB),
		rentalinfra.ManualGateway{},
		rentalinfra.NewPostgresTokenRepository(c.DB),
	)
	if err := handlers.Register(registry); err != nil {
		logx.Fatalf("Failed to register job handlers: %v", err)
	}

	observer, err := jobxmetrics.NewObserver(c.Metrics)
	if err != nil {
		logx.Fatalf("Failed to register job metrics: %v", err)
	}

	c.Scheduler = jobx.New(c.JobStore, registry,
		jobx.WithConcurrency(cfg.Concurrency),
		jobx.WithPollInterval(cfg.PollInterval),
		jobx.WithBatchSize(cfg.BatchSize),
		jobx.WithHandlerTimeout(cfg.HandlerTimeout),
		jobx.WithShutdownTimeout(cfg.ShutdownTimeout),
		jobx.WithStaleAfter(cfg.StaleAfter),
		jobx.WithRetryPolicy(jobx.RetryPolicy{
			BaseDelay:          cfg.RetryBaseDelay,
			MaxDelay:           cfg.RetryMaxDelay,
			Jitter:             cfg.RetryJitter,
			DefaultMaxAttempts: cfg.DefaultMaxAttempts,
		}),
		jobx.WithObserver(observer),
		jobx.WithPeriodicJob(cfg.CleanupSchedule, jobx.TypeCleanupExpiredTokens, nil),
		jobx.WithRetention(cfg.Retention, cfg.PruneSchedule),
	)
	c.Metrics.MustRegister(jobxmetrics.NewStatsCollector(c.Scheduler))

	c.JobHandlers = jobxhttp.NewHandlers(c.Scheduler, c.AuditService)

	logx.Infof("  ✅ Job scheduler configured (backend: %s, job types: %s)",
		cfg.Backend, strings.Join(registry.Types(), ", "))
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
