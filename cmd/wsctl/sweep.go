package main

import (
	"Go2WlanSpectra/internal/sweep"
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep AP distance and OBSS-PD threshold",
	Long:  `Repeat the configured experiment over the sweep grid and write the mean and standard deviation of the total throughput to CSV.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			cfg.Sweep.Output = out
		}
		if runs, _ := cmd.Flags().GetInt("runs"); runs > 0 {
			cfg.Sweep.Runs = runs
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		points, err := sweep.New(cfg).Run(ctx)
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}

		f, err := os.Create(cfg.Sweep.Output)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", cfg.Sweep.Output, err)
		}
		defer f.Close()
		if err := sweep.WriteCSV(f, points); err != nil {
			log.Fatalf("Failed to write results: %v", err)
		}
		log.Printf("Sweep results written to %s", cfg.Sweep.Output)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	addExperimentFlags(sweepCmd)
	sweepCmd.Flags().StringP("output", "o", "", "CSV file to write")
	sweepCmd.Flags().IntP("runs", "r", 0, "Runs per grid point")
}
