package main

import (
	"Go2WlanSpectra/internal/aggregate"
	"Go2WlanSpectra/internal/engine/capture"
	"Go2WlanSpectra/internal/experiment"
	"Go2WlanSpectra/internal/factory"
	"Go2WlanSpectra/internal/model"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var pcapCmd = &cobra.Command{
	Use:   "pcap <capture.pcap>",
	Short: "Aggregate a sink-side capture",
	Long:  `Rebuild flow records from a capture taken at the access points of a testbed run and report them like a simulated run.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		layout, err := experiment.NewLayout(cfg)
		if err != nil {
			log.Fatalf("Failed to lay out the experiment: %v", err)
		}

		var flows []model.FlowDescriptor
		if expect, _ := cmd.Flags().GetBool("expect"); expect {
			flows = layout.Flows
		}
		log.Printf("Reading packets from '%s'...", args[0])
		records, err := capture.ReadFile(args[0], flows)
		if err != nil {
			log.Fatalf("Failed to read capture: %v", err)
		}

		result := &model.RunResult{
			RunID:    strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])),
			Started:  time.Now(),
			Finished: time.Now(),
			Settings: cfg.Settings(),
			Topology: layout.Topology,
			Flows:    flows,
			Records:  records,
			Report:   aggregate.Aggregate(layout.Plan.Cells(), records),
		}

		writers, err := factory.CreateWriters(cfg)
		if err != nil {
			log.Fatalf("Failed to create writers: %v", err)
		}
		for _, w := range writers {
			if err := w.Write(result); err != nil {
				log.Printf("Error writing capture report with %s writer: %v", w.Name(), err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(pcapCmd)
	addExperimentFlags(pcapCmd)
	pcapCmd.Flags().BoolP("expect", "e", true, "Derive transmit counters and losses from the configured schedule")
}
