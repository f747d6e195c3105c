package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "pricing_"

	resultSuccess = "success"
	resultError   = "error"

	pricingOutcomeIncomplete = "incomplete"
	pricingOutcomeOutOfRange = "out_of_range"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec
	ingestRows     *prometheus.CounterVec

	malformedRecords *prometheus.CounterVec

	backfillChunks *prometheus.CounterVec

	aggregationTotal   *prometheus.CounterVec
	aggregationLatency *prometheus.HistogramVec

	pricingTotal *prometheus.CounterVec

	catalogSyncTotal   *prometheus.CounterVec
	catalogSyncLatency *prometheus.HistogramVec

	comparisonExportTotal   *prometheus.CounterVec
	comparisonExportLatency *prometheus.HistogramVec

	jobRuns *prometheus.CounterVec
)

// Init registers metrics and DB-backed gauges.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "spot_ingest_total",
				Help: "Total spot price ingest runs by source and result",
			},
			[]string{"source", "result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "spot_ingest_latency_seconds",
				Help:    "Spot price ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source", "result"},
		)
		ingestRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "spot_ingest_rows_total",
				Help: "Spot price hour rows by region and outcome",
			},
			[]string{"region", "outcome"},
		)

		malformedRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "malformed_records_total",
				Help: "Upstream records dropped as malformed by source",
			},
			[]string{"source"},
		)

		backfillChunks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "spot_backfill_chunks_total",
				Help: "Spot backfill chunks by result",
			},
			[]string{"result"},
		)

		aggregationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "spot_aggregation_total",
				Help: "Spot average calculations by period type and result",
			},
			[]string{"period_type", "result"},
		)
		aggregationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "spot_aggregation_latency_seconds",
				Help:    "Spot average calculation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"period_type", "result"},
		)

		pricingTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "contract_calculations_total",
				Help: "Contract cost calculations by pricing model and outcome",
			},
			[]string{"model", "outcome"},
		)

		catalogSyncTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "catalog_sync_total",
				Help: "Contract catalog sync runs by result",
			},
			[]string{"result"},
		)
		catalogSyncLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "catalog_sync_latency_seconds",
				Help:    "Contract catalog sync latency in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"result"},
		)

		comparisonExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "comparison_export_total",
				Help: "Total comparison export operations by format and result",
			},
			[]string{"format", "result"},
		)
		comparisonExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "comparison_export_latency_seconds",
				Help:    "Comparison export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		jobRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "job_runs_total",
				Help: "Scheduled job runs by job and result",
			},
			[]string{"job", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestLatency,
			ingestRows,
			malformedRecords,
			backfillChunks,
			aggregationTotal,
			aggregationLatency,
			pricingTotal,
			catalogSyncTotal,
			catalogSyncLatency,
			comparisonExportTotal,
			comparisonExportLatency,
			jobRuns,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records a spot ingest run.
func ObserveIngest(source, result string, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(source, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(source, result).Observe(duration.Seconds())
	}
}

// AddIngestRows counts stored or skipped hour rows.
func AddIngestRows(region, outcome string, count int) {
	if count <= 0 {
		return
	}
	if ingestRows != nil {
		ingestRows.WithLabelValues(region, outcome).Add(float64(count))
	}
}

// AddMalformedRecords counts dropped upstream records.
func AddMalformedRecords(source string, count int) {
	if count <= 0 {
		return
	}
	if source == "" {
		source = "unknown"
	}
	if malformedRecords != nil {
		malformedRecords.WithLabelValues(source).Add(float64(count))
	}
}

// IncBackfillChunk counts a processed backfill chunk.
func IncBackfillChunk(result string) {
	if result == "" {
		result = resultSuccess
	}
	if backfillChunks != nil {
		backfillChunks.WithLabelValues(result).Inc()
	}
}

// ObserveAggregation records an average calculation.
func ObserveAggregation(periodType, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if aggregationTotal != nil {
		aggregationTotal.WithLabelValues(periodType, result).Inc()
	}
	if aggregationLatency != nil {
		aggregationLatency.WithLabelValues(periodType, result).Observe(duration.Seconds())
	}
}

// IncPricing counts a contract cost calculation.
func IncPricing(model, outcome string) {
	if outcome == "" {
		outcome = resultSuccess
	}
	if pricingTotal != nil {
		pricingTotal.WithLabelValues(model, outcome).Inc()
	}
}

// ObserveCatalogSync records a catalog sync run.
func ObserveCatalogSync(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if catalogSyncTotal != nil {
		catalogSyncTotal.WithLabelValues(result).Inc()
	}
	if catalogSyncLatency != nil {
		catalogSyncLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveComparisonExport records export latency and result.
func ObserveComparisonExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if comparisonExportTotal != nil {
		comparisonExportTotal.WithLabelValues(format, result).Inc()
	}
	if comparisonExportLatency != nil {
		comparisonExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncJobRun counts a scheduled job run. result is success, error or skipped.
func IncJobRun(job, result string) {
	if result == "" {
		result = resultSuccess
	}
	if jobRuns != nil {
		jobRuns.WithLabelValues(job, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultSkipped = "skipped"

	PricingOutcomeIncomplete = pricingOutcomeIncomplete
	PricingOutcomeOutOfRange = pricingOutcomeOutOfRange
)
