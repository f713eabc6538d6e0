package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/listling/listling/pkg/api"
	"github.com/listling/listling/pkg/auth"
	"github.com/listling/listling/pkg/config"
	"github.com/listling/listling/pkg/httputil"
	"github.com/listling/listling/pkg/middleware"
	"github.com/listling/listling/pkg/observability"
	"github.com/listling/listling/pkg/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	st, err := store.Open(cfg.Store, store.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}
	logger.WithField("driver", cfg.Store.Driver).Info("Store initialized")

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable at startup, rate limiting will fail open")
		} else {
			logger.WithField("addr", cfg.Redis.URL).Info("Redis connected")
		}
	}

	var otelProviders *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		otelProviders, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			return err
		}
	}

	tokens := auth.NewTokenService([]byte(cfg.Auth.Secret),
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
	)

	opts := []api.Option{api.WithMetrics(metrics)}
	if cfg.RateLimit.Enabled {
		limits, err := buildRateLimits(ctx, cfg.RateLimit, redisClient, logger, metrics)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithRateLimits(limits))
	}
	server := api.NewServer(st, tokens, logger, opts...)

	wraps := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware,
		metrics.Middleware,
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		wraps = append([]func(http.Handler) http.Handler{
			httputil.CORSMiddleware(cfg.Server.CORSOrigins),
		}, wraps...)
	}
	var handler http.Handler = httputil.Chain(wraps...)(server.Router())
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "listling")
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(st.DB(), redisClient))
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	go reportDBStats(ctx, st, metrics, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := shutdown.WaitForShutdown(gctx)
		cancel()
		return err
	})

	<-gctx.Done()
	return g.Wait()
}

// buildRateLimits assembles the per-route limiter wraps. With Redis
// configured the limits are enforced across instances, otherwise each
// process keeps an in-memory token bucket.
func buildRateLimits(ctx context.Context, cfg config.RateLimitConfig, redisClient *redis.Client, logger *observability.Logger, metrics *observability.Metrics) (api.RateLimits, error) {
	defaultQuota, err := middleware.ParseQuota(cfg.Default)
	if err != nil {
		return api.RateLimits{}, err
	}
	registerQuota, err := middleware.ParseQuota(cfg.Register)
	if err != nil {
		return api.RateLimits{}, err
	}
	loginQuota, err := middleware.ParseQuota(cfg.Login)
	if err != nil {
		return api.RateLimits{}, err
	}

	if redisClient != nil {
		m := middleware.NewDistributedRateLimitMiddleware(redisClient, defaultQuota, logger,
			middleware.WithDistributedRateLimitMetrics(metrics))
		return api.RateLimits{
			Default:  m.Handler,
			Register: m.Limit(registerQuota, "register"),
			Login:    m.Limit(loginQuota, "login"),
		}, nil
	}

	m := middleware.NewRateLimitMiddleware(defaultQuota, middleware.WithRateLimitMetrics(metrics))
	m.StartCleanup(ctx)
	return api.RateLimits{
		Default:  m.Handler,
		Register: m.Limit(registerQuota),
		Login:    m.Limit(loginQuota),
	}, nil
}

// reportDBStats feeds connection pool gauges on a fixed cadence
func reportDBStats(ctx context.Context, st *store.SQL, metrics *observability.Metrics, logger *observability.Logger) {
	defer observability.RecoverPanic(logger, "db stats reporter")
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBStats(st.DB().Stats())
		}
	}
}
