package main

import (
	"Go2WlanSpectra/internal/ai"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain <report.txt>",
	Short: "Ask the configured model to comment a run report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		report, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read report: %v", err)
		}

		analyzer, err := ai.NewReportAnalyzer(&cfg.AI)
		if err != nil {
			log.Fatalf("Failed to create analyzer: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = analyzer.StreamReport(ctx, string(report), func(chunk string) error {
			_, err := fmt.Print(chunk)
			return err
		})
		fmt.Println()
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
