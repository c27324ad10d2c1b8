package query

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the work done by region queries.
type Metrics struct {
	Chunks         prometheus.Counter
	RecordsDecoded prometheus.Counter
	RecordsYielded prometheus.Counter
	Errors         prometheus.Counter
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	chunks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hts_query_chunks_total",
		Help: "Total chunks visited by region queries",
	})

	decoded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hts_query_records_decoded_total",
		Help: "Total records decoded by region queries",
	})

	yielded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hts_query_records_yielded_total",
		Help: "Total records overlapping the queried region",
	})

	errs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hts_query_errors_total",
		Help: "Total region queries ended by an error",
	})

	reg.MustRegister(chunks, decoded, yielded, errs)

	return &Metrics{
		Chunks:         chunks,
		RecordsDecoded: decoded,
		RecordsYielded: yielded,
		Errors:         errs,
	}
}
