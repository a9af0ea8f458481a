package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"projex/internal/auth"
	"projex/internal/backend"
	"projex/internal/cache"
	"projex/internal/cli"
	"projex/internal/config"
	"projex/internal/core"
	apphttp "projex/internal/http"
	applog "projex/internal/log"
	"projex/internal/middleware/ratelimit"
	"projex/internal/middleware/security"
	"projex/internal/services"
)

const identityCacheSize = 1024

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateServer)

	logger.Info("Starting projex", applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port, "driver", cfg.DBDriver, "events", cfg.AMQPURL != "")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Open(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to open backend", applog.FieldError, err)
		os.Exit(1)
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpire)
	if err != nil {
		logger.Error("Failed to configure tokens", applog.FieldError, err)
		os.Exit(1)
	}

	identities := cache.NewLRUCache[int64, core.Identity](identityCacheSize, cfg.IdentityCacheTTL)
	caches := cache.NewManager()
	caches.Register("identities", identities)
	caches.StartCleanup(context.Background(), time.Minute)

	queries := services.NewQueryService(res.Store)
	users := services.NewUserService(res.Store, auth.BcryptHasher{}, tokens, identities)

	if cfg.SeedDefaultAdmin {
		seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := users.EnsureDefaultAdmin(seedCtx, cfg.DefaultAdminName, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword)
		cancel()
		if err != nil {
			logger.Error("Failed to seed default admin", applog.FieldError, err)
			os.Exit(1)
		}
	}

	clientIP, err := security.NewClientIP(cfg.TrustedProxies)
	if err != nil {
		logger.Error("Invalid TRUSTED_PROXIES", applog.FieldError, err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "projex_identity_cache_hits_total",
			Help: "Identity lookups served from the cache",
		}, func() float64 {
			hits, _ := identities.Stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "projex_identity_cache_misses_total",
			Help: "Identity lookups that went to the store",
		}, func() float64 {
			_, misses := identities.Stats()
			return float64(misses)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "projex_identity_cache_entries",
			Help: "Identities currently cached",
		}, func() float64 { return float64(identities.Size()) }),
	)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Queries:     queries,
		Reports:     services.NewReportService(res.Store, queries),
		Projects:    services.NewProjectService(res.Store, res.Publisher),
		Expenses:    services.NewExpenseService(res.Store, res.Publisher),
		Users:       users,
		Tokens:      tokens,
		Ready:       res.Store.Ping,
		Logger:      logger,
		Registry:    registry,
		ClientIP:    clientIP,
		AuthLimiter: ratelimit.NewLimiter(ratelimit.Config{Requests: cfg.RateLimitAuth, Period: time.Minute}),
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
