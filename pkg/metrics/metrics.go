// Package metrics defines the Prometheus metric collectors used across the
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	DaysProcessedTotal  *prometheus.CounterVec
	RecordsMergedTotal  *prometheus.CounterVec
	FetchFailuresTotal  *prometheus.CounterVec
	ReconciledTotal     prometheus.Counter
	LedgerOpenEntries   prometheus.Gauge
	PDFCacheHitsTotal   prometheus.Counter
	PDFCacheMissesTotal prometheus.Counter
	FuzzyMatchesTotal   prometheus.Counter
	AmountUnknownTotal  prometheus.Counter
	HarvestDuration     prometheus.Histogram
	EnrichDuration      prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		DaysProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_days_processed_total",
				Help: "Days processed by outcome (merged, empty, ledgered).",
			},
			[]string{"outcome"},
		),
		RecordsMergedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "records_merged_total",
				Help: "Rows written per dataset across merge and overwrite calls.",
			},
			[]string{"dataset"},
		),
		FetchFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fetch_failures_total",
				Help: "Extraction failures ledgered, by failure kind.",
			},
			[]string{"kind"},
		),
		ReconciledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_reconciled_total",
				Help: "Ledger entries resolved and moved to the corrected log.",
			},
		),
		LedgerOpenEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ledger_open_entries",
				Help: "Unresolved entries currently in the error ledger.",
			},
		),
		PDFCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pdf_cache_hits_total",
				Help: "Tender PDF texts served from cache.",
			},
		),
		PDFCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pdf_cache_misses_total",
				Help: "Tender PDF texts fetched and extracted.",
			},
		),
		FuzzyMatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fuzzy_matches_total",
				Help: "Company matches found during entity resolution.",
			},
		),
		AmountUnknownTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "amount_unknown_total",
				Help: "Tenders whose text yielded no parseable monetary amount.",
			},
		),
		HarvestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harvest_run_duration_seconds",
				Help:    "Wall-clock duration of a harvest run.",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
		),
		EnrichDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "enrich_run_duration_seconds",
				Help:    "Wall-clock duration of an enrichment run.",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
		),
	}

	prometheus.MustRegister(
		m.DaysProcessedTotal,
		m.RecordsMergedTotal,
		m.FetchFailuresTotal,
		m.ReconciledTotal,
		m.LedgerOpenEntries,
		m.PDFCacheHitsTotal,
		m.PDFCacheMissesTotal,
		m.FuzzyMatchesTotal,
		m.AmountUnknownTotal,
		m.HarvestDuration,
		m.EnrichDuration,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
