// Package metrics provides Prometheus metrics collection for the settlement
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the settlement engine.
type Collector struct {
	// Ingestion metrics
	BillsIngested prometheus.Counter
	LinesIngested prometheus.Counter
	IngestErrors  *prometheus.CounterVec

	// Penalty metrics
	PenaltyRecalcs     *prometheus.CounterVec
	MinutesDistributed prometheus.Counter
	SMSDistributed     prometheus.Counter

	// Settlement timing
	SettlementDuration *prometheus.HistogramVec

	// Report metrics
	ReportsSent   prometheus.Counter
	ReportsFailed prometheus.Counter
}

// New creates a new metrics collector with all metrics registered on the
// default registry.
func New() *Collector {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newWith(promauto.With(reg))
}

func newWith(factory promauto.Factory) *Collector {
	return &Collector{
		BillsIngested: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fleetbill",
				Name:      "bills_ingested_total",
				Help:      "Total number of parsed invoices ingested",
			},
		),
		LinesIngested: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fleetbill",
				Name:      "lines_ingested_total",
				Help:      "Total number of invoice lines turned into consumptions",
			},
		),
		IngestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fleetbill",
				Name:      "ingest_errors_total",
				Help:      "Total number of failed ingestions",
			},
			[]string{"reason"},
		),
		PenaltyRecalcs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fleetbill",
				Name:      "penalty_recalcs_total",
				Help:      "Total number of penalty recalculations",
			},
			[]string{"result"},
		),
		MinutesDistributed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fleetbill",
				Name:      "penalty_minutes_distributed_total",
				Help:      "Total penalty minutes distributed across consumptions",
			},
		),
		SMSDistributed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fleetbill",
				Name:      "penalty_sms_distributed_total",
				Help:      "Total penalty SMS units distributed across consumptions",
			},
		),
		SettlementDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fleetbill",
				Name:      "settlement_duration_seconds",
				Help:      "Duration of settlement operations in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		ReportsSent: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fleetbill",
				Name:      "reports_sent_total",
				Help:      "Total number of leader reports delivered",
			},
		),
		ReportsFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fleetbill",
				Name:      "reports_failed_total",
				Help:      "Total number of leader report deliveries that failed",
			},
		),
	}
}
