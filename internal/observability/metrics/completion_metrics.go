package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	CompletionReasonDeadlineExceeded     = "deadline_exceeded"
	CompletionReasonDBLockTimeout        = "db_lock_timeout"
	CompletionReasonSerializationFailure = "serialization_failure"
	CompletionReasonUniqueViolation      = "unique_violation"
	CompletionReasonDB                   = "db"
	CompletionReasonUnknown              = "unknown"
)

const (
	CompletionOutcomeCompleted = "completed"
	CompletionOutcomeRejected  = "rejected"
	CompletionOutcomeFailed    = "failed"
)

// CompletionMetrics captures job completion health signals scraped from /metrics.
type CompletionMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	chainLength prometheus.Histogram
	lockWait    prometheus.Histogram
}

var (
	completionMetrics     *CompletionMetrics
	completionMetricsOnce sync.Once
)

// Completion returns the process-wide completion metrics registered on the default registerer.
func Completion() *CompletionMetrics {
	completionMetricsOnce.Do(func() {
		completionMetrics = newCompletionMetrics(prometheus.DefaultRegisterer)
	})
	return completionMetrics
}

func newCompletionMetrics(registerer prometheus.Registerer) *CompletionMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detailflow_job_completion_runs_total",
		Help: "Job completion attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "detailflow_job_completion_duration_seconds",
		Help:    "Wall time spent completing a job, including the referral snapshot.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "detailflow_job_completion_errors_total",
		Help: "Job completion failures by reason.",
	}, []string{"reason"})
	chainLength := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "detailflow_referral_chain_length",
		Help:    "Number of tier commissions emitted per completion.",
		Buckets: []float64{0, 1, 2, 3},
	})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "detailflow_job_completion_lock_wait_seconds",
		Help:    "Time spent acquiring the completion lock.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	registerer.MustRegister(runs, duration, errs, chainLength, lockWait)

	return &CompletionMetrics{
		runs:        runs,
		duration:    duration,
		errors:      errs,
		chainLength: chainLength,
		lockWait:    lockWait,
	}
}

// ObserveCompletion records one attempt with its outcome and duration.
func (m *CompletionMetrics) ObserveCompletion(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		outcome = CompletionOutcomeFailed
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// IncError classifies err and increments the matching reason.
func (m *CompletionMetrics) IncError(err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(ClassifyCompletionReason(err)).Inc()
}

// ObserveChainLength records how many tier commissions a snapshot carried.
func (m *CompletionMetrics) ObserveChainLength(n int) {
	if m == nil {
		return
	}
	m.chainLength.Observe(float64(n))
}

// ObserveLockWait records time spent acquiring the completion lock.
func (m *CompletionMetrics) ObserveLockWait(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(elapsed.Seconds())
}

// ClassifyCompletionReason maps a persistence failure to a low-cardinality label.
func ClassifyCompletionReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return CompletionReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return CompletionReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return CompletionReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505"):
		return CompletionReasonUniqueViolation
	case isDBError(err):
		return CompletionReasonDB
	default:
		return CompletionReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
