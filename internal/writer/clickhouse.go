package writer

import (
	"Go2WlanSpectra/internal/addressing"
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

var createTableStatements = []string{`
CREATE TABLE IF NOT EXISTS wlan_runs (
    RunID       String,
    Started     DateTime64(3),
    Finished    DateTime64(3),
    Cells       UInt16,
    Flows       UInt32,
    ModernMbps  Float64,
    LegacyMbps  Float64,
    TotalMbps   Float64,
    Settings    Map(String, String)
) ENGINE = MergeTree()
ORDER BY (Started, RunID);
`, `
CREATE TABLE IF NOT EXISTS wlan_cells (
    RunID          String,
    Started        DateTime64(3),
    Cell           UInt16,
    TxPackets      UInt64,
    RxPackets      UInt64,
    LostPackets    UInt64,
    RxBytes        UInt64,
    DelaySeconds   Float64,
    ThroughputMbps Float64
) ENGINE = MergeTree()
ORDER BY (RunID, Cell);
`, `
CREATE TABLE IF NOT EXISTS wlan_flows (
    RunID          String,
    Started        DateTime64(3),
    FlowID         UInt32,
    Cell           UInt16,
    Generation     LowCardinality(String),
    SrcIP          String,
    DstIP          String,
    SrcPort        UInt16,
    DstPort        UInt16,
    TxPackets      UInt64,
    RxPackets      UInt64,
    LostPackets    UInt64,
    RxBytes        UInt64,
    ThroughputMbps Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Started)
ORDER BY (RunID, FlowID);
`}

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the run tables exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.Writer, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range createTableStatements {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log.Println("Successfully connected to ClickHouse and ensured tables exist.")

	return &ClickHouseWriter{conn: conn}, nil
}

func (w *ClickHouseWriter) Name() string {
	return "clickhouse"
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Write inserts the run row, one row per cell and one row per flow.
func (w *ClickHouseWriter) Write(result *model.RunResult) error {
	ctx := context.Background()
	report := result.Report
	if report == nil {
		return fmt.Errorf("run '%s' has no report", result.RunID)
	}

	// 1. Run row
	settings := make(map[string]string, len(result.Settings))
	for _, s := range result.Settings {
		settings[s.Name] = s.Value
	}
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO wlan_runs")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	err = batch.Append(
		result.RunID,
		result.Started,
		result.Finished,
		uint16(report.NumCells()),
		uint32(len(result.Records)),
		report.ModernMbps,
		report.LegacyMbps,
		report.TotalMbps,
		settings,
	)
	if err != nil {
		return fmt.Errorf("failed to append run to batch: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	// 2. Cell rows
	batch, err = w.conn.PrepareBatch(ctx, "INSERT INTO wlan_cells")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for i := 1; i < len(report.Cells); i++ {
		c := report.Cells[i]
		err = batch.Append(
			result.RunID,
			result.Started,
			uint16(i),
			c.TxPackets,
			c.RxPackets,
			c.LostPackets,
			c.RxBytes,
			c.DelaySum.Seconds(),
			c.ThroughputMbps,
		)
		if err != nil {
			return fmt.Errorf("failed to append cell to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	// 3. Flow rows
	if len(result.Records) == 0 {
		return nil
	}
	batch, err = w.conn.PrepareBatch(ctx, "INSERT INTO wlan_flows")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	throughput := make(map[model.FlowID]float64, len(report.Stations))
	for _, st := range report.Stations {
		throughput[st.FlowID] = st.ThroughputMbps
	}
	ids := make([]model.FlowID, 0, len(result.Records))
	for id := range result.Records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		rec := result.Records[id]
		cell, gen := addressing.Decode(rec.FiveTuple.DstPort)
		err = batch.Append(
			result.RunID,
			result.Started,
			uint32(id),
			uint16(cell),
			gen.String(),
			rec.FiveTuple.SrcIP.String(),
			rec.FiveTuple.DstIP.String(),
			rec.FiveTuple.SrcPort,
			rec.FiveTuple.DstPort,
			rec.TxPackets,
			rec.RxPackets,
			rec.LostPackets,
			rec.RxBytes,
			throughput[id],
		)
		if err != nil {
			return fmt.Errorf("failed to append flow to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d flows to ClickHouse for run '%s'", len(ids), result.RunID)
	return nil
}

func newClickHouseWriter(def config.WriterDef) (model.Writer, error) {
	return NewClickHouseWriter(def.ClickHouse)
}
