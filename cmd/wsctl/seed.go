package main

import (
	"Go2WlanSpectra/internal/testbed"
	"context"
	"log"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed-testbed",
	Short: "Seed the neighbor tables of a container testbed",
	Long:  `Install one permanent neighbor entry per experiment address in every labeled container, and optionally drop ARP on the testbed bridge.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if label, _ := cmd.Flags().GetString("label"); label != "" {
			cfg.Testbed.Label = label
		}
		if cmd.Flags().Changed("suppress-arp") {
			cfg.Testbed.SuppressARP, _ = cmd.Flags().GetBool("suppress-arp")
		}

		tb, err := testbed.New(cfg.Testbed)
		if err != nil {
			log.Fatalf("Failed to reach the testbed: %v", err)
		}
		defer tb.Close()

		if restore, _ := cmd.Flags().GetBool("restore-arp"); restore {
			if err := tb.RestoreARP(); err != nil {
				log.Fatalf("Failed to restore ARP: %v", err)
			}
			log.Printf("ARP restored on bridge %s", cfg.Testbed.Bridge)
			return
		}

		table, err := tb.Seed(context.Background())
		if err != nil {
			log.Fatalf("Failed to seed testbed: %v", err)
		}
		for _, e := range table.Entries() {
			log.Printf("  %s -> %s", e.Addr, e.MAC)
		}
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringP("label", "l", "", "Docker label selecting the testbed containers")
	seedCmd.Flags().Bool("suppress-arp", false, "Drop ARP on the testbed bridge after seeding")
	seedCmd.Flags().Bool("restore-arp", false, "Remove the ARP drop flow and exit")
}
