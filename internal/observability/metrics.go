// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"washtrade-lab/internal/detection"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	RowsRead        prometheus.Counter
	RecordsIngested prometheus.Counter
	RowsDropped     *prometheus.CounterVec
	IngestionsTotal *prometheus.CounterVec

	// Detection metrics
	RecordsEvaluated  prometheus.Counter
	RecordsExcluded   prometheus.Counter
	SearchSpace       prometheus.Counter
	CandidatesFound   *prometheus.CounterVec
	GroupsEvaluated   prometheus.Counter
	PatternsDetected  prometheus.Counter
	GroupsRejected    *prometheus.CounterVec
	LastRunPatterns   prometheus.Gauge
	DetectionDuration prometheus.Histogram

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	ReportsGenerated  prometheus.Counter

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a new Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "washtrade_lab"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		RowsRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_read_total",
			Help:      "Total number of raw rows read from sources",
		}),
		RecordsIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "records_ingested_total",
			Help:      "Total number of normalized bet records produced",
		}),
		RowsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_dropped_total",
			Help:      "Total number of rows dropped during normalization by reason",
		}, []string{"reason"}),
		IngestionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "runs_total",
			Help:      "Total number of ingestion runs by status",
		}, []string{"status"}),

		// Detection metrics
		RecordsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "records_evaluated_total",
			Help:      "Total number of bet records passed to detection",
		}),
		RecordsExcluded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "records_excluded_total",
			Help:      "Total number of records excluded as multi-direction in a round",
		}),
		SearchSpace: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "combinations_examined_total",
			Help:      "Total number of account combinations examined",
		}),
		CandidatesFound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "round_candidates_total",
			Help:      "Total number of round candidates by group size",
		}, []string{"group_size"}),
		GroupsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "groups_evaluated_total",
			Help:      "Total number of account groups aggregated",
		}),
		PatternsDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "patterns_detected_total",
			Help:      "Total number of accepted account group patterns",
		}),
		GroupsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "groups_rejected_total",
			Help:      "Total number of rejected account groups by reason",
		}, []string{"reason"}),
		LastRunPatterns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "last_run_patterns",
			Help:      "Number of patterns produced by the most recent run",
		}),
		DetectionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "duration_seconds",
			Help:      "Detection run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Health metrics
		LastSuccessfulIngestion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// ObserveDetection records the counters of one detection run.
func (m *Metrics) ObserveDetection(s detection.Summary) {
	m.RecordsEvaluated.Add(float64(s.InputRecords))
	m.RecordsExcluded.Add(float64(s.ExcludedRecords))
	m.SearchSpace.Add(float64(s.SearchSpace))
	for k, n := range s.CandidatesBySize {
		m.CandidatesFound.WithLabelValues(strconv.Itoa(k)).Add(float64(n))
	}
	m.GroupsEvaluated.Add(float64(s.Aggregate.Groups))
	m.PatternsDetected.Add(float64(s.Aggregate.Accepted))
	m.GroupsRejected.WithLabelValues(detection.ReasonDisparity).Add(float64(s.Aggregate.RejectedDisparity))
	m.GroupsRejected.WithLabelValues(detection.ReasonThreshold).Add(float64(s.Aggregate.RejectedThreshold))
	m.LastRunPatterns.Set(float64(s.Aggregate.Accepted))
	m.DetectionDuration.Observe(s.Elapsed.Seconds())
}

// ObserveIngestion records one normalization pass.
func (m *Metrics) ObserveIngestion(read, valid int, dropped map[string]int) {
	m.RowsRead.Add(float64(read))
	m.RecordsIngested.Add(float64(valid))
	for reason, n := range dropped {
		if n > 0 {
			m.RowsDropped.WithLabelValues(reason).Add(float64(n))
		}
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")
