package config

import (
	"Go2WlanSpectra/internal/model"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ExperimentConfig describes the cells, stations, and traffic of a single run.
type ExperimentConfig struct {
	Duration        string  `yaml:"duration"`
	Warmup          string  `yaml:"warmup"`
	Cells           int     `yaml:"cells"`
	ModernStations  int     `yaml:"modern_stations"`
	LegacyStations  int     `yaml:"legacy_stations"`
	APDistance      float64 `yaml:"ap_distance"`
	StationDistance float64 `yaml:"station_distance"`
	OfferedLoad     string  `yaml:"offered_load"`
	PacketSize      int     `yaml:"packet_size"`
	TOS             uint8   `yaml:"tos"`
	Seed            uint64  `yaml:"seed"`
	Scenario        int     `yaml:"scenario"`
}

// RadioConfig holds the PHY and MAC settings shared by every cell.
type RadioConfig struct {
	FrequencyMHz    float64 `yaml:"frequency_mhz"`
	StationPower    float64 `yaml:"station_power_dbm"`
	APPower         float64 `yaml:"ap_power_dbm"`
	CCAEDThreshold  float64 `yaml:"cca_ed_threshold_dbm"`
	MinimumRSSI     float64 `yaml:"minimum_rssi_dbm"`
	MCS             int     `yaml:"mcs"`
	LegacyMCS       int     `yaml:"legacy_mcs"`
	EnableObssPd    bool    `yaml:"enable_obss_pd"`
	ObssPdThreshold float64 `yaml:"obss_pd_threshold_dbm"`
	RtsCts          bool    `yaml:"rts_cts"`
	WallLoss        float64 `yaml:"wall_loss_db"`
}

// EngineConfig selects and tunes the packet-level backend.
type EngineConfig struct {
	Type         string  `yaml:"type"`
	Tick         string  `yaml:"tick"`
	QueueLimit   int     `yaml:"queue_limit"`
	ResidualLoss float64 `yaml:"residual_loss"`
}

// ClickHouseConfig holds the connection details for a ClickHouse database.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines a single result writer.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	RootPath   string           `yaml:"root_path"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ProbeConfig holds the NATS settings used to ship flow records between processes.
type ProbeConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// APIConfig holds the configuration for the HTTP query API.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// CollectorConfig holds the configuration for the record collector service.
type CollectorConfig struct {
	HealthAddr     string `yaml:"health_addr"`
	MetricsAddr    string `yaml:"metrics_addr"`
	ReportInterval string `yaml:"report_interval"`
	Cells          int    `yaml:"cells"`
}

// SMTPConfig holds the configuration for the email notifier.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// MQTTConfig holds the configuration for the MQTT notifier.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// AlerterRule defines a single threshold check against a run report.
type AlerterRule struct {
	Name      string  `yaml:"name"`
	Metric    string  `yaml:"metric"`
	Cell      int     `yaml:"cell"`
	Threshold float64 `yaml:"threshold"`
}

// AIAnalysisConfig toggles the model-generated commentary in notifications.
type AIAnalysisConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AlerterConfig holds the rules evaluated after every run.
type AlerterConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Rules      []AlerterRule    `yaml:"rules"`
	AIAnalysis AIAnalysisConfig `yaml:"ai_analysis"`
}

// AIConfig holds the settings of the OpenAI-compatible endpoint.
type AIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// SweepConfig describes a parameter sweep over AP distance and OBSS-PD threshold.
type SweepConfig struct {
	Distances       []float64 `yaml:"distances"`
	Thresholds      []float64 `yaml:"thresholds"`
	IncludeDisabled bool      `yaml:"include_disabled"`
	Runs            int       `yaml:"runs"`
	Workers         int       `yaml:"workers"`
	Output          string    `yaml:"output"`
}

// TestbedConfig holds the settings for container-based testbeds.
type TestbedConfig struct {
	Label       string `yaml:"label"`
	Bridge      string `yaml:"bridge"`
	SuppressARP bool   `yaml:"suppress_arp"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Experiment ExperimentConfig `yaml:"experiment"`
	Radio      RadioConfig      `yaml:"radio"`
	Engine     EngineConfig     `yaml:"engine"`
	Writers    []WriterDef      `yaml:"writers"`
	Probe      ProbeConfig      `yaml:"probe"`
	API        APIConfig        `yaml:"api"`
	Collector  CollectorConfig  `yaml:"collector"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Alerter    AlerterConfig    `yaml:"alerter"`
	AI         AIConfig         `yaml:"ai"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Testbed    TestbedConfig    `yaml:"testbed"`
}

// Default returns the configuration of the baseline two-cell experiment.
func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Duration:        "60s",
			Warmup:          "5s",
			Cells:           2,
			ModernStations:  1,
			LegacyStations:  0,
			APDistance:      140,
			StationDistance: 2,
			OfferedLoad:     "300",
			PacketSize:      1472,
			TOS:             0x70,
			Seed:            1,
			Scenario:        1,
		},
		Radio: RadioConfig{
			FrequencyMHz:    5180,
			StationPower:    15,
			APPower:         20,
			CCAEDThreshold:  -62,
			MinimumRSSI:     -82,
			MCS:             11,
			LegacyMCS:       5,
			EnableObssPd:    true,
			ObssPdThreshold: -64,
		},
		Engine: EngineConfig{
			Type:       "fluid",
			Tick:       "10ms",
			QueueLimit: 500,
		},
		Probe: ProbeConfig{
			NATSURL: "nats://127.0.0.1:4222",
			Subject: "wlan.flows",
		},
		API: APIConfig{ListenAddr: ":8080"},
		Collector: CollectorConfig{
			HealthAddr:     ":50051",
			MetricsAddr:    ":9100",
			ReportInterval: "10s",
			Cells:          2,
		},
		Sweep: SweepConfig{
			Thresholds: []float64{-64, -72, -78},
			Runs:       1,
			Workers:    4,
			Output:     "throughput_results.csv",
		},
		Testbed: TestbedConfig{
			Label:  "wlan.experiment",
			Bridge: "wlan-br0",
		},
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// Fields missing from the file keep their Default values.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the experiment section for values no run can use.
func (c *Config) Validate() error {
	e := c.Experiment
	if e.Cells < 1 {
		return fmt.Errorf("%w: at least one cell is required, got %d", model.ErrConfig, e.Cells)
	}
	if e.ModernStations < 0 || e.LegacyStations < 0 {
		return fmt.Errorf("%w: station counts must not be negative", model.ErrConfig)
	}
	if e.Scenario != 1 && e.Scenario != 2 {
		return fmt.Errorf("%w: scenario must be 1 or 2, got %d", model.ErrConfig, e.Scenario)
	}
	duration, err := c.DurationValue()
	if err != nil {
		return err
	}
	warmup, err := c.WarmupValue()
	if err != nil {
		return err
	}
	if warmup < 0 || warmup >= duration {
		return fmt.Errorf("%w: warmup %s must be shorter than duration %s", model.ErrConfig, warmup, duration)
	}
	if _, err := ParseRate(e.OfferedLoad); err != nil {
		return err
	}
	if e.PacketSize <= 0 {
		return fmt.Errorf("%w: packet size must be positive, got %d", model.ErrConfig, e.PacketSize)
	}
	return nil
}

// DurationValue parses the experiment duration.
func (c *Config) DurationValue() (time.Duration, error) {
	d, err := time.ParseDuration(c.Experiment.Duration)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid experiment duration: %v", model.ErrConfig, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: experiment duration must be a positive duration", model.ErrConfig)
	}
	return d, nil
}

// WarmupValue parses the experiment warmup.
func (c *Config) WarmupValue() (time.Duration, error) {
	d, err := time.ParseDuration(c.Experiment.Warmup)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid experiment warmup: %v", model.ErrConfig, err)
	}
	return d, nil
}

// ParseRate parses an offered load given in Mb/s, with or without a "Mbps" suffix.
func ParseRate(s string) (float64, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimSuffix(v, "Mbps")
	v = strings.TrimSuffix(v, "Mb/s")
	rate, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid offered load %q", model.ErrConfig, s)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("%w: offered load must be positive, got %q", model.ErrConfig, s)
	}
	return rate, nil
}

// Settings returns the parameters echoed at the top of every run report.
func (c *Config) Settings() []model.Setting {
	return []model.Setting{
		{Name: "OBSS enabled", Value: strconv.FormatBool(c.Radio.EnableObssPd)},
		{Name: "CTS enabled", Value: strconv.FormatBool(c.Radio.RtsCts)},
		{Name: "OBSS PD threshold", Value: strconv.FormatFloat(c.Radio.ObssPdThreshold, 'g', -1, 64)},
		{Name: "Distance between AP and STA", Value: strconv.FormatFloat(c.Experiment.StationDistance, 'g', -1, 64)},
		{Name: "Distance between AP", Value: strconv.FormatFloat(c.Experiment.APDistance, 'g', -1, 64)},
		{Name: "MCS AX", Value: strconv.Itoa(c.Radio.MCS)},
		{Name: "MCS Legacy", Value: strconv.Itoa(c.Radio.LegacyMCS)},
		{Name: "Modern stations", Value: strconv.Itoa(c.Experiment.ModernStations)},
		{Name: "Legacy stations", Value: strconv.Itoa(c.Experiment.LegacyStations)},
		{Name: "Offered load", Value: c.Experiment.OfferedLoad},
		{Name: "Scenario", Value: strconv.Itoa(c.Experiment.Scenario)},
	}
}

// ClickHouse returns the first enabled ClickHouse writer configuration, if any.
func (c *Config) ClickHouse() (*ClickHouseConfig, bool) {
	for i := range c.Writers {
		if c.Writers[i].Enabled && c.Writers[i].Type == "clickhouse" {
			return &c.Writers[i].ClickHouse, true
		}
	}
	return nil, false
}
