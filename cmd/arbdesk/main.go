package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arbdesk/arbdesk/api"
	"github.com/arbdesk/arbdesk/internal/config"
	"github.com/arbdesk/arbdesk/pkg/arb"
	"github.com/arbdesk/arbdesk/pkg/logging"
	"github.com/arbdesk/arbdesk/pkg/quotes"
	"github.com/arbdesk/arbdesk/pkg/refdata"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "arbdesk",
		Short: "Cash-futures arbitrage quote service",
		Long:  `Subscribes a fixed equity universe to the upstream quote feed and serves live cash-futures arbitrage metrics per contract expiry`,
		Run:   runServer,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	logger := logging.New(logging.Config{Level: "info"})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger = logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})

	lotSizes, err := refdata.Load(cfg.RefData.LotSizePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load lot size table")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	upstreamTimeout := time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second

	// Startup subscription pass: best effort, never aborts the process.
	subscriptions := quotes.NewSubscriptionManager(
		cfg.Upstream.SubscriptionURL,
		cfg.Universe.Symbols,
		cfg.Subscription.MaxAttempts,
		cfg.Upstream.RatePerSecond,
		upstreamTimeout,
		logger,
	)
	if failed := subscriptions.SubscribeAll(ctx, time.Now()); len(failed) > 0 {
		logger.WithField("symbols", failed).Warn("Some symbols were not subscribed")
	}

	client := quotes.NewHTTPClient(
		cfg.Upstream.EquityQuoteURL,
		cfg.Upstream.FuturesQuoteURL,
		upstreamTimeout,
	)

	orchestrator := arb.NewOrchestrator(client, lotSizes, cfg.Universe.Symbols, arb.Config{
		Workers:     cfg.Fetch.Workers,
		TaskTimeout: time.Duration(cfg.Fetch.TaskTimeoutSeconds) * time.Second,
	}, logger)

	apiServer := api.NewServer(orchestrator, logger, fmt.Sprintf("%d", cfg.Server.Port))
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start API server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Arbdesk is running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Received shutdown signal")

	cancel()
	logger.Info("Arbdesk stopped")
}
