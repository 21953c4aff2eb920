package collector

import (
	"Go2WlanSpectra/internal/model"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the collector state to Prometheus.
type Metrics struct {
	messages       *prometheus.CounterVec
	runs           prometheus.Counter
	cellThroughput *prometheus.GaugeVec
	cellLoss       *prometheus.GaugeVec
	genThroughput  *prometheus.GaugeVec
}

// NewMetrics creates the collector metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wlan",
			Name:      "messages_total",
			Help:      "Messages received from the probes, by kind.",
		}, []string{"kind"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wlan",
			Name:      "runs_completed_total",
			Help:      "Runs whose records were fully received.",
		}),
		cellThroughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wlan",
			Name:      "cell_throughput_mbps",
			Help:      "Throughput of the last report, per cell.",
		}, []string{"source", "cell"}),
		cellLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wlan",
			Name:      "cell_loss_ratio",
			Help:      "Packet loss ratio of the last report, per cell.",
		}, []string{"source", "cell"}),
		genThroughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wlan",
			Name:      "generation_throughput_mbps",
			Help:      "Throughput of the last report, per station generation.",
		}, []string{"source", "generation"}),
	}
	reg.MustRegister(m.messages, m.runs, m.cellThroughput, m.cellLoss, m.genThroughput)
	return m
}

func (m *Metrics) observeReport(source string, r *model.Report) {
	for i := 1; i < len(r.Cells); i++ {
		cell := strconv.Itoa(i)
		m.cellThroughput.WithLabelValues(source, cell).Set(r.Cells[i].ThroughputMbps)
		m.cellLoss.WithLabelValues(source, cell).Set(r.Cells[i].LossRatio())
	}
	m.genThroughput.WithLabelValues(source, model.Modern.String()).Set(r.ModernMbps)
	m.genThroughput.WithLabelValues(source, model.Legacy.String()).Set(r.LegacyMbps)
	m.genThroughput.WithLabelValues(source, "total").Set(r.TotalMbps)
}
