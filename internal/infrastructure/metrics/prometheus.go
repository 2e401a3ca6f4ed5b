// Package metrics exports the rewards engine's operational measurements to
// Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/learnquest/rewards-engine/internal/application/command"
	"github.com/learnquest/rewards-engine/internal/domain/shared"
	"github.com/learnquest/rewards-engine/internal/infrastructure/messaging"
	"github.com/learnquest/rewards-engine/internal/infrastructure/scheduler"
)

const namespace = "rewards"

// ═══════════════════════════════════════════════════════════════════════════
// Recorder
// ═══════════════════════════════════════════════════════════════════════════

// Recorder implements command.Metrics, messaging.Observer and
// scheduler.JobObserver on one registry.
type Recorder struct {
	registry *prometheus.Registry

	awarded        *prometheus.CounterVec
	consumed       *prometheus.CounterVec
	expired        prometheus.Counter
	pointsCredited *prometheus.CounterVec
	levelUps       prometheus.Counter
	conflicts      *prometheus.CounterVec
	operations     *prometheus.HistogramVec

	eventsPublished *prometheus.CounterVec
	handlerRuns     *prometheus.HistogramVec

	jobRuns *prometheus.HistogramVec
}

// NewRecorder registers every collector on a fresh registry. Go runtime and
// process collectors are included.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		awarded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "awarded_total",
			Help:      "Rewards awarded, by reward type.",
		}, []string{"type"}),
		consumed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumed_total",
			Help:      "Rewards consumed, by reward type.",
		}, []string{"type"}),
		expired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_total",
			Help:      "Awards transitioned to EXPIRED.",
		}),
		pointsCredited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_credited_total",
			Help:      "Points credited to ledgers, by source.",
		}, []string{"source"}),
		levelUps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Credits that raised a user's level.",
		}),
		conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_retries_total",
			Help:      "Units of work re-run after a concurrent modification.",
		}, []string{"operation"}),
		operations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Command latency, by operation and outcome.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation", "outcome"}),
		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events published, by type.",
		}, []string{"event_type"}),
		handlerRuns: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handler_duration_seconds",
			Help:      "Event handler latency, by type and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type", "outcome"}),
		jobRuns: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Scheduled job latency, by job and outcome.",
			Buckets:   []float64{.01, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"job", "outcome"}),
	}
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ─── command.Metrics ────────────────────────────────────────────────────────

func (r *Recorder) RewardAwarded(rewardType string)  { r.awarded.WithLabelValues(rewardType).Inc() }
func (r *Recorder) RewardConsumed(rewardType string) { r.consumed.WithLabelValues(rewardType).Inc() }
func (r *Recorder) RewardsExpired(n int)             { r.expired.Add(float64(n)) }
func (r *Recorder) LevelUp()                         { r.levelUps.Inc() }
func (r *Recorder) ConflictRetry(operation string)   { r.conflicts.WithLabelValues(operation).Inc() }

func (r *Recorder) PointsCredited(source string, amount int64) {
	r.pointsCredited.WithLabelValues(source).Add(float64(amount))
}

func (r *Recorder) ObserveOperation(operation string, err error, elapsed time.Duration) {
	r.operations.WithLabelValues(operation, outcome(err)).Observe(elapsed.Seconds())
}

// ─── messaging.Observer ─────────────────────────────────────────────────────

func (r *Recorder) EventPublished(eventType string) {
	r.eventsPublished.WithLabelValues(eventType).Inc()
}

func (r *Recorder) HandlerFinished(eventType string, elapsed time.Duration, err error) {
	label := "ok"
	if err != nil {
		label = "error"
	}
	r.handlerRuns.WithLabelValues(eventType, label).Observe(elapsed.Seconds())
}

// ─── scheduler.JobObserver ──────────────────────────────────────────────────

func (r *Recorder) JobFinished(result scheduler.JobResult) {
	label := "ok"
	if !result.Success {
		label = "error"
	}
	r.jobRuns.WithLabelValues(result.JobName, label).Observe(result.Duration.Seconds())
}

// outcome labels an operation result by error class.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(shared.Classify(err))
}

var (
	_ command.Metrics       = (*Recorder)(nil)
	_ messaging.Observer    = (*Recorder)(nil)
	_ scheduler.JobObserver = (*Recorder)(nil)
)
