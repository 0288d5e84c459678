package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Envelope metrics
	EnvelopesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bagile_ingest_envelopes_total",
			Help: "Total number of envelopes received, by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	EnvelopeBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bagile_ingest_envelope_bytes_total",
			Help: "Total bytes of envelope payload received",
		},
	)

	DuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bagile_ingest_duplicates_total",
			Help: "Total number of envelopes dropped as duplicate deliveries",
		},
		[]string{"source"},
	)

	// Normalization metrics
	NormalizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bagile_ingest_normalization_duration_seconds",
			Help:    "Duration of envelope normalization in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bagile_ingest_records_total",
			Help: "Total number of canonical records produced, by kind",
		},
		[]string{"kind"},
	)

	// Sink metrics
	SinkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bagile_ingest_sink_duration_seconds",
			Help:    "Duration of record handoff in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SinkErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bagile_ingest_sink_errors_total",
			Help: "Total number of failed record handoffs",
		},
	)

	// Dead-letter metrics
	DLQWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bagile_ingest_dlq_writes_total",
			Help: "Total number of envelopes dead-lettered, by reason",
		},
		[]string{"reason"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bagile_ingest_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"source"},
	)

	// Poller metrics
	PollerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bagile_ingest_poller_runs_total",
			Help: "Total number of accounting sync runs, by result",
		},
		[]string{"result"},
	)

	PollerInvoices = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bagile_ingest_poller_invoices_total",
			Help: "Total number of invoices fetched by the accounting poller",
		},
	)
)
