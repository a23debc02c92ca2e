package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/disqueria/internal/pkg/config"
	"github.com/jcmexdev/disqueria/internal/pkg/telemetry"
	"github.com/jcmexdev/disqueria/internal/smoke"
)

func main() {
	config.LoadDotEnv()
	telemetry.InitLogger("smoke", config.GetEnv("LOG_LEVEL", "info"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseURL := config.GetEnv("GATEWAY_URL", "http://localhost:3000")
	runner := smoke.NewRunner(baseURL, config.GetDuration("SMOKE_TIMEOUT", 10*time.Second))

	report, err := runner.Run(ctx)
	if err != nil {
		slog.Error("smoke flow failed", "gateway", baseURL, "error", err)
		os.Exit(1)
	}
	slog.Info("smoke flow finished",
		"gateway", baseURL,
		"user_id", report.UserID,
		"album_id", report.AlbumID,
		"order_id", report.OrderID,
	)
}
