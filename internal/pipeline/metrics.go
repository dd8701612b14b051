package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records import outcomes. A nil *Metrics records nothing.
type Metrics struct {
	imports       *prometheus.CounterVec
	records       *prometheus.CounterVec
	errors        *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	importDur     *prometheus.HistogramVec
}

// NewMetrics creates the import metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "importgate",
			Name:      "imports_total",
			Help:      "Bulk imports validated, by entity type, strategy and verdict.",
		}, []string{"entity_type", "strategy", "can_proceed"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "importgate",
			Name:      "records_total",
			Help:      "Import records by outcome (valid, invalid, skipped).",
		}, []string{"entity_type", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "importgate",
			Name:      "stage_errors_total",
			Help:      "Errors reported by each pipeline stage.",
		}, []string{"entity_type", "stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "importgate",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity_type", "stage", "passed"}),
		importDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "importgate",
			Name:      "import_duration_seconds",
			Help:      "End-to-end duration of ValidateBulkImport.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"entity_type"}),
	}
	for _, c := range []prometheus.Collector{m.imports, m.records, m.errors, m.stageDuration, m.importDur} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeStage(entityType string, sr *StageResult) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(entityType, string(sr.Stage)).Add(float64(len(sr.Errors)))
	m.stageDuration.WithLabelValues(entityType, string(sr.Stage), boolLabel(sr.Passed)).
		Observe(sr.Duration.Seconds())
}

func (m *Metrics) observeImport(res *BulkImportValidationResult) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(res.EntityType, string(res.Strategy), boolLabel(CanProceedWithImport(res))).Inc()
	m.records.WithLabelValues(res.EntityType, "valid").Add(float64(res.ValidRecords))
	m.records.WithLabelValues(res.EntityType, "invalid").Add(float64(res.InvalidRecords))
	m.records.WithLabelValues(res.EntityType, "skipped").Add(float64(res.SkippedRecords))
	m.importDur.WithLabelValues(res.EntityType).Observe(res.Duration.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
