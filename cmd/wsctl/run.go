package main

import (
	"Go2WlanSpectra/internal/ai"
	"Go2WlanSpectra/internal/alerter"
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/experiment"
	"Go2WlanSpectra/internal/factory"
	"Go2WlanSpectra/internal/model"
	"Go2WlanSpectra/internal/notification"
	"Go2WlanSpectra/internal/probe"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one experiment",
	Long:  `Run one experiment, print its report, and hand it to the enabled writers.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		writers, err := factory.CreateWriters(cfg)
		if err != nil {
			log.Fatalf("Failed to create writers: %v", err)
		}
		runner := experiment.NewRunner(cfg, writers...)

		if cfg.Probe.Enabled {
			pub, err := probe.NewPublisher(cfg.Probe)
			if err != nil {
				log.Fatalf("Failed to connect to NATS: %v", err)
			}
			defer pub.Close()
			runner.WithPublisher(pub)
		}

		if cfg.Alerter.Enabled {
			alertr, err := newAlerter(cfg)
			if err != nil {
				log.Fatalf("Failed to create alerter: %v", err)
			}
			runner.WithChecker(alertr)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := runner.Run(ctx); err != nil {
			log.Fatalf("Run failed: %v", err)
		}
	},
}

func newAlerter(cfg *config.Config) (*alerter.Alerter, error) {
	notifier, err := notification.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		log.Println("Alerter is enabled in config, but no notifiers are configured. Alerts will only be logged.")
	}

	var analyzer model.Analyzer
	if cfg.Alerter.AIAnalysis.Enabled {
		a, err := ai.NewReportAnalyzer(&cfg.AI)
		if err != nil {
			return nil, err
		}
		analyzer = a
	}
	return alerter.NewAlerter(&cfg.Alerter, notifier, analyzer)
}

func init() {
	rootCmd.AddCommand(runCmd)
	addExperimentFlags(runCmd)
}
