// cmd/order-ingress/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dropstream-io/order-ingress/pkg/config"
	"github.com/dropstream-io/order-ingress/pkg/notify"
	"github.com/dropstream-io/order-ingress/pkg/pipeline"
	"github.com/dropstream-io/order-ingress/pkg/remote"
	"github.com/dropstream-io/order-ingress/pkg/store"
)

func main() {
	// A .env file is optional; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	notifier := notify.NewEmailNotifier(cfg.SMTP, logger)

	if err := run(cfg, notifier, logger); err != nil {
		logger.Error("Ingestion run failed", zap.Error(err))
		notifier.Notify("An Error Occurred", "The order ingestion run failed: "+err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, notifier notify.Notifier, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	source := remote.NewClient(cfg.FTP, logger)

	summary, err := pipeline.New(st, source, notifier, cfg, logger).Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("Run summary",
		zap.String("runID", summary.RunID),
		zap.Int("partners", summary.Partners),
		zap.Int("filesFetched", summary.FilesFetched),
		zap.Int("filesValid", summary.FilesValid),
		zap.Int("filesInvalid", summary.FilesInvalid),
		zap.Int("orders", summary.Orders),
		zap.Int("persisted", summary.OrdersPersisted),
		zap.Int("skipped", summary.OrdersSkipped),
		zap.Int("failed", summary.OrdersFailed),
		zap.Int("unableToShip", summary.OrdersUnableToShip))
	return nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
