package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/jcmexdev/disqueria/internal/pkg/config"
	"github.com/jcmexdev/disqueria/internal/pkg/database"
	"github.com/jcmexdev/disqueria/internal/pkg/interceptors"
	"github.com/jcmexdev/disqueria/internal/pkg/telemetry"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
	"github.com/jcmexdev/disqueria/internal/users-service/adapters/rpc"
	"github.com/jcmexdev/disqueria/internal/users-service/adapters/sqlstore"
	"github.com/jcmexdev/disqueria/internal/users-service/app"
)

func main() {
	config.LoadDotEnv()
	serviceName := config.GetEnv("OTEL_SERVICE_NAME", "users-service")
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

	db, err := database.Open(ctx, database.Config{
		Driver: config.GetEnv("DATABASE_DRIVER", database.DriverSQLite),
		DSN:    config.GetEnv("DATABASE_URL", "users.db"),
	})
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := sqlstore.New(ctx, db)
	if err != nil {
		slog.Error("failed to prepare users store", "error", err)
		os.Exit(1)
	}

	svc := app.NewService(store)
	if err := svc.SeedAdmin(ctx, config.GetEnv("ADMIN_EMAIL", ""), config.GetEnv("ADMIN_PASSWORD", "")); err != nil {
		slog.Error("failed to seed admin user", "error", err)
		os.Exit(1)
	}

	reg, err := rpc.NewHandlers(svc).Registry()
	if err != nil {
		slog.Error("failed to build command registry", "error", err)
		os.Exit(1)
	}

	telemetry.ServeMetrics(ctx, config.GetEnv("METRICS_ADDR", ""))

	server := transport.NewServer(reg,
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.StreamInterceptor(interceptors.TraceStreamServerInterceptor()),
	)

	addr := config.GetEnv("LISTEN_ADDR", ":3002")
	slog.Info("users service running", "addr", addr)
	if err := server.Run(ctx, addr); err != nil {
		slog.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}
