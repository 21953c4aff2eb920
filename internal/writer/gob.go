package writer

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SummaryData holds the metadata of a stored run, internal to the writer.
type SummaryData struct {
	RunID      string    `json:"run_id"`
	Flows      int       `json:"flows"`
	Cells      int       `json:"cells"`
	Discarded  int       `json:"discarded"`
	ModernMbps float64   `json:"modern_mbps"`
	LegacyMbps float64   `json:"legacy_mbps"`
	TotalMbps  float64   `json:"total_mbps"`
	CellMbps   []float64 `json:"cell_mbps"`
	Timestamp  string    `json:"timestamp"`
}

// GobWriter stores the raw flow records and descriptors of a run in gob format,
// next to a JSON summary. It implements the model.Writer interface.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a new gob writer rooted at rootPath.
func NewGobWriter(rootPath string) model.Writer {
	return &GobWriter{rootPath: rootPath}
}

func (w *GobWriter) Name() string {
	return "gob"
}

// Write serializes the run into <root>/<run id>/{records.dat,flows.dat,summary.json}.
func (w *GobWriter) Write(result *model.RunResult) error {
	// 1. Create the run directory
	runDir := filepath.Join(w.rootPath, result.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	// 2. Write records and descriptors
	if err := writeGob(filepath.Join(runDir, "records.dat"), result.Records); err != nil {
		return err
	}
	if err := writeGob(filepath.Join(runDir, "flows.dat"), result.Flows); err != nil {
		return err
	}

	// 3. Write the summary
	summary := SummaryData{
		RunID:     result.RunID,
		Flows:     len(result.Records),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if r := result.Report; r != nil {
		summary.Cells = r.NumCells()
		summary.Discarded = len(r.Discarded)
		summary.ModernMbps = r.ModernMbps
		summary.LegacyMbps = r.LegacyMbps
		summary.TotalMbps = r.TotalMbps
		for i := 1; i < len(r.Cells); i++ {
			summary.CellMbps = append(summary.CellMbps, r.Cells[i].ThroughputMbps)
		}
	}

	summaryFile, err := os.Create(filepath.Join(runDir, "summary.json"))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

func writeGob(filePath string, v any) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", filePath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(v); err != nil {
		return fmt.Errorf("failed to encode gob for file '%s': %w", filePath, err)
	}
	return nil
}

// ReadRecords loads the flow records stored by a GobWriter.
func ReadRecords(runDir string) (map[model.FlowID]model.FlowRecord, error) {
	file, err := os.Open(filepath.Join(runDir, "records.dat"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records map[model.FlowID]model.FlowRecord
	if err := gob.NewDecoder(file).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

func newGobWriter(def config.WriterDef) (model.Writer, error) {
	if def.RootPath == "" {
		return nil, fmt.Errorf("gob writer requires a root_path")
	}
	return NewGobWriter(def.RootPath), nil
}
