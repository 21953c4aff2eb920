package main

import (
	"Go2WlanSpectra/internal/config"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wsctl",
	Short: "Multi-BSS Wi-Fi experiment control",
	Long:  "A command-line tool for running dense Wi-Fi experiments, sweeping their parameters, and seeding testbeds.",
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "configs/config.yaml", "Path to the configuration file")
}

// loadConfig reads the configuration file and applies the experiment flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	log.Println("Configuration loaded successfully.")

	if err := applyExperimentFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// addExperimentFlags registers the experiment overrides under their historical names.
func addExperimentFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("duration", 0, "Duration of simulation (s)")
	f.Float64("warmup", 0, "Warmup before the sinks start (s)")
	f.Bool("enableObssPd", false, "Enable/disable OBSS_PD")
	f.Float64("obssPdThreshold", 0, "OBSS_PD threshold (dBm)")
	f.Float64("d1", 0, "Distance between APs (m)")
	f.Float64("d2", 0, "Distance between AP and STA (m)")
	f.Float64("powSta", 0, "Station transmit power (dBm)")
	f.Float64("powAp", 0, "AP transmit power (dBm)")
	f.Float64("ccaEdTr", 0, "CCA energy detection threshold (dBm)")
	f.Int("mcs", 0, "The constant MCS value to transmit HE PPDUs")
	f.Int("mcsLegacy", 0, "The constant MCS value of the legacy stations")
	f.String("offeredLoad", "", "Offered load per station (Mb/s)")
	f.Int("packetSize", 0, "Payload size of every packet (bytes)")
	f.Int("nSTA", 0, "Number of stations per BSS")
	f.Int("nSTALegacy", 0, "Number of legacy stations per BSS")
	f.Int("nAP", 0, "Number of BSSs")
	f.Bool("rtsCts", false, "Enable/disable RTS CTS")
	f.Uint64("rngRun", 0, "Run number to set for RNG")
	f.Int("scenario", 0, "Placement scenario (1 or 2)")
}

func seconds(s float64) string {
	return (time.Duration(s * float64(time.Second))).String()
}

func applyExperimentFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Lookup("nAP") == nil {
		return nil
	}
	exp, radio := &cfg.Experiment, &cfg.Radio

	var err error
	set := func(name string, apply func()) {
		if err == nil && f.Changed(name) {
			apply()
		}
	}
	getFloat := func(name string) float64 {
		v, e := f.GetFloat64(name)
		if e != nil {
			err = fmt.Errorf("flag --%s: %w", name, e)
		}
		return v
	}
	getInt := func(name string) int {
		v, e := f.GetInt(name)
		if e != nil {
			err = fmt.Errorf("flag --%s: %w", name, e)
		}
		return v
	}
	getBool := func(name string) bool {
		v, e := f.GetBool(name)
		if e != nil {
			err = fmt.Errorf("flag --%s: %w", name, e)
		}
		return v
	}

	set("duration", func() { exp.Duration = seconds(getFloat("duration")) })
	set("warmup", func() { exp.Warmup = seconds(getFloat("warmup")) })
	set("enableObssPd", func() { radio.EnableObssPd = getBool("enableObssPd") })
	set("obssPdThreshold", func() { radio.ObssPdThreshold = getFloat("obssPdThreshold") })
	set("d1", func() { exp.APDistance = getFloat("d1") })
	set("d2", func() { exp.StationDistance = getFloat("d2") })
	set("powSta", func() { radio.StationPower = getFloat("powSta") })
	set("powAp", func() { radio.APPower = getFloat("powAp") })
	set("ccaEdTr", func() { radio.CCAEDThreshold = getFloat("ccaEdTr") })
	set("mcs", func() { radio.MCS = getInt("mcs") })
	set("mcsLegacy", func() { radio.LegacyMCS = getInt("mcsLegacy") })
	set("offeredLoad", func() { exp.OfferedLoad, _ = f.GetString("offeredLoad") })
	set("packetSize", func() { exp.PacketSize = getInt("packetSize") })
	set("nSTA", func() { exp.ModernStations = getInt("nSTA") })
	set("nSTALegacy", func() { exp.LegacyStations = getInt("nSTALegacy") })
	set("nAP", func() { exp.Cells = getInt("nAP") })
	set("rtsCts", func() { radio.RtsCts = getBool("rtsCts") })
	set("rngRun", func() { exp.Seed, _ = f.GetUint64("rngRun") })
	set("scenario", func() { exp.Scenario = getInt("scenario") })
	return err
}
