package main

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sljivkov/fiatoracle/apis"
	"github.com/sljivkov/fiatoracle/chains"
	"github.com/sljivkov/fiatoracle/config"
	"github.com/sljivkov/fiatoracle/domain"
	"github.com/sljivkov/fiatoracle/logger"
	"github.com/sljivkov/fiatoracle/metrics"
)

const (
	exitOK            = 0
	exitFailure       = 1
	exitNoValidPrices = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var opts []config.Option

	// .env is optional; the process environment or ORACLE_CONFIG_FILE may carry everything
	if _, err := os.Stat(".env"); err == nil {
		opts = append(opts, config.WithEnvFile(".env"))
	}

	cfg, err := config.NewConfig(opts...)
	if err != nil {
		logrus.Errorf("failed to load config: %v", err)
		return exitFailure
	}

	base, err := logger.New(cfg.LogLevel)
	if err != nil {
		logrus.Errorf("failed to create logger: %v", err)
		return exitFailure
	}

	log := base.WithField("run_id", uuid.NewString())
	log.Debugf("loaded %s", cfg)

	recorder := metrics.NewRecorder()

	updater := NewUpdater(
		cfg,
		apis.NewYadio(cfg.FeedURL, nil),
		chains.NewAccountClient(cfg.LCD, nil),
		chains.NewBroadcaster(cfg.RPC, nil),
		recorder,
		log,
	)

	ctx := context.Background()

	_, err = updater.Run(ctx)
	if err != nil {
		log.WithError(err).Error("❌ Price update aborted")
	}

	if cfg.PushgatewayURL != "" {
		if pushErr := recorder.Push(ctx, cfg.PushgatewayURL); pushErr != nil {
			log.WithError(pushErr).Warn("⚠️ Failed to push metrics")
		}
	}

	return exitCode(err)
}

// exitCode maps the outcome of a run to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrNoValidPrices):
		return exitNoValidPrices
	default:
		return exitFailure
	}
}
