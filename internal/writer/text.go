package writer

import (
	"Go2WlanSpectra/internal/addressing"
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// TextWriter prints the run report to the console and, when a root path is set,
// stores a copy under <root>/<run id>/report.txt.
type TextWriter struct {
	rootPath string
	out      io.Writer
}

// NewTextWriter creates a new text report writer.
func NewTextWriter(rootPath string, out io.Writer) model.Writer {
	return &TextWriter{rootPath: rootPath, out: out}
}

func (w *TextWriter) Name() string {
	return "text"
}

func (w *TextWriter) Write(result *model.RunResult) error {
	var buf bytes.Buffer
	RenderText(&buf, result)

	if w.out != nil {
		if _, err := w.out.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("failed to print report: %w", err)
		}
	}
	if w.rootPath == "" {
		return nil
	}

	runDir := filepath.Join(w.rootPath, result.RunID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	filePath := filepath.Join(runDir, "report.txt")
	if err := os.WriteFile(filePath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write report file '%s': %w", filePath, err)
	}
	log.Printf("Successfully wrote report to %s\n", filePath)
	return nil
}

// RenderText writes the human-readable report of a run: echoed parameters,
// node positions, per-station and per-cell results, and the generation totals.
func RenderText(w io.Writer, result *model.RunResult) {
	banner := strings.Repeat("+", 43)
	fmt.Fprintln(w, banner)
	for _, s := range result.Settings {
		fmt.Fprintf(w, "%s:\t%s\n", s.Name, s.Value)
	}
	fmt.Fprintln(w, banner)

	if topo := result.Topology; topo != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Node positions")
		for i, ap := range topo.APs {
			fmt.Fprintf(w, "AP BSS: %d\tx=%g, y=%g\n", i+1, ap.Position.X, ap.Position.Y)
			for _, sta := range topo.Stations {
				if sta.Cell != i {
					continue
				}
				label := "Sta"
				if sta.Generation == model.Legacy {
					label = "Legacy Sta"
				}
				fmt.Fprintf(w, "BSS %d, %s %d:\tx=%g, y=%g\n", i+1, label, sta.Index, sta.Position.X, sta.Position.Y)
			}
		}
	}

	report := result.Report
	if report == nil {
		return
	}
	fmt.Fprintln(w)
	for _, st := range report.Stations {
		offset := int(st.Port) - st.Cell*addressing.BlockWidth
		fmt.Fprintf(w, "  Throughput per STA:%d\t%.4f Mb/s\n", offset, st.ThroughputMbps)
	}
	for i := 1; i < len(report.Cells); i++ {
		c := report.Cells[i]
		fmt.Fprintf(w, "==================== BSS %d ====================\n", i)
		fmt.Fprintf(w, "  Throughput:\t%.4f Mb/s\n", c.ThroughputMbps)
		fmt.Fprintf(w, "  Packet loss:\t%d packets\n", c.LostPackets)
		fmt.Fprintf(w, "  Delay:\t%.6f seconds\n", c.DelaySum.Seconds())
		fmt.Fprintf(w, "  Mean delay:\t%s\n", c.MeanDelay())
	}
	fmt.Fprintln(w, strings.Repeat("*", 54))
	fmt.Fprintf(w, "   AX Throughput:\t%.4f Mb/s\n", report.ModernMbps)
	fmt.Fprintf(w, "   LEGACY Throughput:\t%.4f Mb/s\n", report.LegacyMbps)
	fmt.Fprintf(w, "   TOTAL Throughput:\t%.4f Mb/s\n", report.TotalMbps)
	if len(report.Discarded) > 0 {
		fmt.Fprintf(w, "   Discarded flows:\t%v\n", report.Discarded)
	}
}

func newTextWriter(def config.WriterDef) (model.Writer, error) {
	return NewTextWriter(def.RootPath, os.Stdout), nil
}
