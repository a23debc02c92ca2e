package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/disqueria/internal/api-gateway/core/dispatcher"
	"github.com/jcmexdev/disqueria/internal/api-gateway/infra/adapters/service"
	"github.com/jcmexdev/disqueria/internal/api-gateway/infra/auth"
	"github.com/jcmexdev/disqueria/internal/api-gateway/infra/httpx"
	"github.com/jcmexdev/disqueria/internal/api-gateway/infra/httpx/middlewares"
	"github.com/jcmexdev/disqueria/internal/pkg/cache"
	"github.com/jcmexdev/disqueria/internal/pkg/config"
	"github.com/jcmexdev/disqueria/internal/pkg/telemetry"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

const devJWTSecret = "disqueria-dev-secret"

func main() {
	config.LoadDotEnv()
	serviceName := config.GetEnv("OTEL_SERVICE_NAME", "api-gateway")
	telemetry.InitLogger(serviceName, config.GetEnv("LOG_LEVEL", "info"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, serviceName,
		config.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		config.GetEnv("APP_ENV", "development"),
	)
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	channels := service.NewChannels(map[string]string{
		dispatcher.ServiceCatalog: config.GetEnv("CATALOG_ADDR", "localhost:3001"),
		dispatcher.ServiceUsers:   config.GetEnv("USERS_ADDR", "localhost:3002"),
		dispatcher.ServiceOrders:  config.GetEnv("ORDERS_ADDR", "localhost:3003"),
	}, transport.WithCallTimeout(config.GetDuration("CALL_TIMEOUT", 10*time.Second)))
	defer channels.Close()

	secret := config.GetEnv("JWT_SECRET", "")
	if secret == "" {
		slog.Warn("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}
	tokens := auth.NewJWT(secret, config.GetDuration("JWT_TTL", time.Hour))

	var opts []dispatcher.Option
	if redisAddr := config.GetEnv("REDIS_ADDR", ""); redisAddr != "" {
		opts = append(opts, dispatcher.WithCache(
			cache.NewRedisCache(redisAddr, "gateway"),
			config.GetDuration("CATALOG_CACHE_TTL", 30*time.Second),
		))
		slog.Info("catalog read cache enabled", "redis", redisAddr)
	}
	d := dispatcher.New(channels.Senders(), tokens, tokens, opts...)

	var limiter *middlewares.RateLimiter
	if rps := config.GetInt("RATE_LIMIT_RPS", 20); rps > 0 {
		limiter = middlewares.NewRateLimiter(float64(rps), config.GetInt("RATE_LIMIT_BURST", 40))
	}

	httpAddr := config.GetEnv("HTTP_ADDR", ":3000")
	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           httpx.NewRouter(httpx.NewHandler(d), limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown error", "error", err)
		}
	}()

	slog.Info("api gateway running", "addr", httpAddr, "services", channels.Targets())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}
