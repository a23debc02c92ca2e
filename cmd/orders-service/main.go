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

	"github.com/jcmexdev/disqueria/internal/coordinator"
	sagastore "github.com/jcmexdev/disqueria/internal/coordinator/sagalog/sqlstore"
	"github.com/jcmexdev/disqueria/internal/orders-service/adapters/rpc"
	"github.com/jcmexdev/disqueria/internal/orders-service/adapters/sqlstore"
	"github.com/jcmexdev/disqueria/internal/orders-service/app"
	"github.com/jcmexdev/disqueria/internal/pkg/config"
	"github.com/jcmexdev/disqueria/internal/pkg/database"
	"github.com/jcmexdev/disqueria/internal/pkg/interceptors"
	"github.com/jcmexdev/disqueria/internal/pkg/telemetry"
	"github.com/jcmexdev/disqueria/internal/pkg/transport"
)

func main() {
	config.LoadDotEnv()
	serviceName := config.GetEnv("OTEL_SERVICE_NAME", "orders-service")
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

	policy, err := coordinator.ParsePolicy(config.GetEnv("ORDER_COMPENSATION", string(coordinator.CompensationNone)))
	if err != nil {
		slog.Error("invalid ORDER_COMPENSATION", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(ctx, database.Config{
		Driver: config.GetEnv("DATABASE_DRIVER", database.DriverSQLite),
		DSN:    config.GetEnv("DATABASE_URL", "orders.db"),
	})
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := sqlstore.New(ctx, db)
	if err != nil {
		slog.Error("failed to prepare orders store", "error", err)
		os.Exit(1)
	}
	sagaLog, err := sagastore.New(ctx, db)
	if err != nil {
		slog.Error("failed to prepare saga log", "error", err)
		os.Exit(1)
	}

	catalogAddr := config.GetEnv("CATALOG_ADDR", "localhost:3001")
	catalog := transport.NewChannel(catalogAddr,
		transport.WithCallTimeout(config.GetDuration("CATALOG_CALL_TIMEOUT", 5*time.Second)),
	)
	defer catalog.Close()

	workflow := app.NewWorkflow(catalog, store, sagaLog, app.Config{
		Policy:      policy,
		StepTimeout: config.GetDuration("ORDER_STEP_TIMEOUT", 0),
	})

	reg, err := rpc.NewHandlers(workflow).Registry()
	if err != nil {
		slog.Error("failed to build command registry", "error", err)
		os.Exit(1)
	}

	telemetry.ServeMetrics(ctx, config.GetEnv("METRICS_ADDR", ""))

	server := transport.NewServer(reg,
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.StreamInterceptor(interceptors.TraceStreamServerInterceptor()),
	)

	addr := config.GetEnv("LISTEN_ADDR", ":3003")
	slog.Info("orders service running", "addr", addr, "catalog", catalogAddr, "compensation", policy)
	if err := server.Run(ctx, addr); err != nil {
		slog.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}
