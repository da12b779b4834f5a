package indexer

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the Prometheus collectors of one Indexer.
type metrics struct {
	filesIndexed prometheus.Counter
	indexErrors  prometheus.Counter
	superseded   prometheus.Counter

	functions prometheus.Gauge
	variables prometheus.Gauge

	buildDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		filesIndexed: prometheus.NewCounter(prometheus.CounterOpts{Name: "cix_index_files_indexed_total", Help: "Files analyzed and applied to the index"}),
		indexErrors:  prometheus.NewCounter(prometheus.CounterOpts{Name: "cix_index_errors_total", Help: "Files that could not be read"}),
		superseded:   prometheus.NewCounter(prometheus.CounterOpts{Name: "cix_index_superseded_builds_total", Help: "Full builds abandoned for a newer build"}),

		functions: prometheus.NewGauge(prometheus.GaugeOpts{Name: "cix_index_functions", Help: "Entries in the function table, builtins included"}),
		variables: prometheus.NewGauge(prometheus.GaugeOpts{Name: "cix_index_variables", Help: "Declarations in the variable table"}),

		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cix_index_build_duration_seconds",
			Help:    "Duration of completed full builds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	if reg == nil {
		return m
	}
	for _, c := range []prometheus.Collector{m.filesIndexed, m.indexErrors, m.superseded, m.functions, m.variables, m.buildDuration} {
		if err := reg.Register(c); err != nil {
			log.Printf("indexer: registering metric: %v", err)
		}
	}
	return m
}

func (m *metrics) observeTables(functions, variables int) {
	m.functions.Set(float64(functions))
	m.variables.Set(float64(variables))
}
