package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/wolfman30/clinic-order-portal/internal/api/router"
	appconfig "github.com/wolfman30/clinic-order-portal/internal/config"
	"github.com/wolfman30/clinic-order-portal/internal/gateway"
	httpmiddleware "github.com/wolfman30/clinic-order-portal/internal/http/middleware"
	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/internal/orderflow"
	"github.com/wolfman30/clinic-order-portal/internal/portal"
	"github.com/wolfman30/clinic-order-portal/internal/reconcile"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic order portal",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend", cfg.BackendBaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	flowMetrics := metrics.NewOrderFlowMetrics(reg)

	gw := gateway.NewClient(cfg.BackendBaseURL, logger,
		gateway.WithAppointmentBaseURL(cfg.AppointmentBaseURL),
		gateway.WithTimeout(cfg.GatewayTimeout),
		gateway.WithMetrics(flowMetrics),
	)

	var orphans orderflow.OrphanRecorder = reconcile.NewLogLedger(logger, flowMetrics)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		ledger := reconcile.NewPostgresLedger(pool, logger, flowMetrics)
		go ledger.Run(ctx, time.Minute)
		orphans = ledger
		logger.Info("payment reconciliation ledger enabled")
	}

	storage := portal.MemoryStorageFactory()
	if !cfg.UseMemorySessions {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		tracer := otel.Tracer("clinic.internal.orderflow")
		storage = func(sessionID string) orderflow.Storage {
			return orderflow.NewRedisStorage(redisClient, sessionID, cfg.SessionTTL, tracer)
		}
	} else {
		logger.Warn("using in-memory session storage; order flows do not survive restarts")
	}

	registry := portal.NewRegistry(gw, orphans, storage, 30*time.Minute, logger, flowMetrics)
	go registry.Run(ctx, 5*time.Minute)

	secret := cfg.SessionSecret
	if secret == "" {
		if cfg.Env == "production" {
			logger.Error("SESSION_SECRET is required in production")
			os.Exit(1)
		}
		secret = uuid.NewString()
		logger.Warn("SESSION_SECRET not set; sessions will not survive restarts")
	}
	session, err := httpmiddleware.Session(httpmiddleware.SessionConfig{
		Secret:     secret,
		CookieName: cfg.SessionCookieName,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.Env == "production",
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to configure sessions", "error", err)
		os.Exit(1)
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.SubmitRatePerSec, cfg.SubmitBurst)
	go limiter.Run(ctx, 5*time.Minute)

	r := router.New(&router.Config{
		Logger:             logger,
		Portal:             portal.NewHandler(registry, cfg.LoginPath, cfg.SessionCookieName, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Session:            session,
		SubmitLimiter:      limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
