package query

import (
	"Go2WlanSpectra/internal/config"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ErrNotFound is returned when the requested run does not exist.
var ErrNotFound = errors.New("run not found")

// RunSummary is one stored run with its generation totals.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	Cells      uint16    `json:"cells"`
	Flows      uint32    `json:"flows"`
	ModernMbps float64   `json:"modern_mbps"`
	LegacyMbps float64   `json:"legacy_mbps"`
	TotalMbps  float64   `json:"total_mbps"`
}

// CellRow is the stored summary of one cell of a run.
type CellRow struct {
	Cell           uint16  `json:"cell"`
	TxPackets      uint64  `json:"tx_packets"`
	RxPackets      uint64  `json:"rx_packets"`
	LostPackets    uint64  `json:"lost_packets"`
	RxBytes        uint64  `json:"rx_bytes"`
	DelaySeconds   float64 `json:"delay_seconds"`
	ThroughputMbps float64 `json:"throughput_mbps"`
}

// StationRow is the stored record of one flow of a run.
type StationRow struct {
	FlowID         uint32  `json:"flow_id"`
	Cell           uint16  `json:"cell"`
	Generation     string  `json:"generation"`
	SrcIP          string  `json:"src_ip"`
	DstPort        uint16  `json:"dst_port"`
	RxPackets      uint64  `json:"rx_packets"`
	LostPackets    uint64  `json:"lost_packets"`
	ThroughputMbps float64 `json:"throughput_mbps"`
}

// StationFilter narrows RunStations. Zero values match everything.
type StationFilter struct {
	Cell       uint16
	Generation string
}

// Querier defines the interface for querying stored runs.
type Querier interface {
	ListRuns(ctx context.Context, since time.Time, limit int) ([]RunSummary, error)
	RunTotals(ctx context.Context, runID string) (*RunSummary, error)
	RunCells(ctx context.Context, runID string) ([]CellRow, error)
	RunStations(ctx context.Context, runID string, filter StationFilter) ([]StationRow, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
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

const runColumns = `RunID, Started, Finished, Cells, Flows, ModernMbps, LegacyMbps, TotalMbps`

// ListRuns returns the most recent runs started at or after since.
func (q *clickhouseQuerier) ListRuns(ctx context.Context, since time.Time, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT " + runColumns + " FROM wlan_runs")

	args := []interface{}{}
	if !since.IsZero() {
		queryBuilder.WriteString(" WHERE Started >= ?")
		args = append(args, since)
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY Started DESC LIMIT %d", limit))

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Started, &r.Finished, &r.Cells, &r.Flows, &r.ModernMbps, &r.LegacyMbps, &r.TotalMbps); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunTotals returns the generation totals of one run.
func (q *clickhouseQuerier) RunTotals(ctx context.Context, runID string) (*RunSummary, error) {
	var r RunSummary
	row := q.conn.QueryRow(ctx, "SELECT "+runColumns+" FROM wlan_runs WHERE RunID = ? LIMIT 1", runID)
	err := row.Scan(&r.RunID, &r.Started, &r.Finished, &r.Cells, &r.Flows, &r.ModernMbps, &r.LegacyMbps, &r.TotalMbps)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run totals: %w", err)
	}
	return &r, nil
}

// RunCells returns the per-cell summaries of one run in cell order.
func (q *clickhouseQuerier) RunCells(ctx context.Context, runID string) ([]CellRow, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT Cell, TxPackets, RxPackets, LostPackets, RxBytes, DelaySeconds, ThroughputMbps
		FROM wlan_cells
		WHERE RunID = ?
		ORDER BY Cell`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var cells []CellRow
	for rows.Next() {
		var c CellRow
		if err := rows.Scan(&c.Cell, &c.TxPackets, &c.RxPackets, &c.LostPackets, &c.RxBytes, &c.DelaySeconds, &c.ThroughputMbps); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, ErrNotFound
	}
	return cells, nil
}

// RunStations returns the flows of one run in flow ID order.
func (q *clickhouseQuerier) RunStations(ctx context.Context, runID string, filter StationFilter) ([]StationRow, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT FlowID, Cell, Generation, SrcIP, DstPort, RxPackets, LostPackets, ThroughputMbps
		FROM wlan_flows
	`)

	whereClauses := []string{"RunID = ?"}
	args := []interface{}{runID}

	if filter.Cell != 0 {
		whereClauses = append(whereClauses, "Cell = ?")
		args = append(args, filter.Cell)
	}
	if filter.Generation != "" {
		switch filter.Generation {
		case "modern", "legacy":
			whereClauses = append(whereClauses, "Generation = ?")
			args = append(args, filter.Generation)
		default:
			return nil, fmt.Errorf("unsupported generation: %s, only modern and legacy are allowed", filter.Generation)
		}
	}
	queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND ") + " ORDER BY FlowID")

	rows, err := q.conn.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var stations []StationRow
	for rows.Next() {
		var s StationRow
		if err := rows.Scan(&s.FlowID, &s.Cell, &s.Generation, &s.SrcIP, &s.DstPort, &s.RxPackets, &s.LostPackets, &s.ThroughputMbps); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}
