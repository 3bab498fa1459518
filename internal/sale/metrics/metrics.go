package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sale lifecycle.
// Tracks sale transitions, retirement step outcomes, alerts and
// reconciliation findings.
type Metrics struct {
	SalesInitiated       prometheus.Counter
	SalesReviewed        *prometheus.CounterVec
	SalesCompleted       prometheus.Counter
	RetirementSteps      *prometheus.CounterVec
	RetirementStepTime   *prometheus.HistogramVec
	RetirementAlerts     *prometheus.CounterVec
	Inconsistencies      *prometheus.CounterVec
	InconsistenciesFixed prometheus.Counter
}

// New creates the sale metrics registered with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers against reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SalesInitiated: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessionsale_sales_initiated_total",
			Help: "Total number of sale records created",
		}),
		SalesReviewed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sessionsale_sales_reviewed_total",
			Help: "Total number of sale reviews by decision",
		}, []string{"decision"}),
		SalesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessionsale_sales_completed_total",
			Help: "Total number of sales that reached COMPLETED",
		}),
		RetirementSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sessionsale_retirement_steps_total",
			Help: "Retirement protocol step executions by step and outcome",
		}, []string{"step", "outcome"}),
		RetirementStepTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sessionsale_retirement_step_duration_seconds",
			Help:    "Duration of retirement protocol steps including retries",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"step"}),
		RetirementAlerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sessionsale_retirement_alerts_total",
			Help: "Retirement partial failures requiring operator attention",
		}, []string{"step", "secret_destroyed"}),
		Inconsistencies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sessionsale_reconciliation_inconsistencies_total",
			Help: "Inconsistencies detected by reconciliation scans by kind",
		}, []string{"kind"}),
		InconsistenciesFixed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sessionsale_reconciliation_repairs_total",
			Help: "Inconsistencies repaired by reconciliation",
		}),
	}
}

func (m *Metrics) IncrementInitiated() {
	m.SalesInitiated.Inc()
}

func (m *Metrics) IncrementReviewed(decision string) {
	m.SalesReviewed.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementCompleted() {
	m.SalesCompleted.Inc()
}

// ObserveStep records one retirement step outcome and its duration.
// Call with time.Now() taken before the first attempt.
func (m *Metrics) ObserveStep(step, outcome string, start time.Time) {
	m.RetirementSteps.WithLabelValues(step, outcome).Inc()
	m.RetirementStepTime.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// IncrementAlert records a retirement partial failure.
func (m *Metrics) IncrementAlert(step string, secretDestroyed bool) {
	destroyed := "false"
	if secretDestroyed {
		destroyed = "true"
	}
	m.RetirementAlerts.WithLabelValues(step, destroyed).Inc()
}

func (m *Metrics) IncrementInconsistency(kind string) {
	m.Inconsistencies.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementRepaired() {
	m.InconsistenciesFixed.Inc()
}
