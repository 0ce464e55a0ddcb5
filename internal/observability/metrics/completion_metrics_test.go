package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyCompletionReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: CompletionReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: CompletionReasonDBLockTimeout},
		{name: "serialization_failure", err: fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "40001"}), want: CompletionReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: CompletionReasonUniqueViolation},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: CompletionReasonDB},
		{name: "unknown", err: errors.New("boom"), want: CompletionReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyCompletionReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestObserveCompletion(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newCompletionMetrics(registry)

	m.ObserveCompletion(CompletionOutcomeCompleted, 20*time.Millisecond)
	m.ObserveCompletion(CompletionOutcomeCompleted, 30*time.Millisecond)
	m.ObserveCompletion(CompletionOutcomeRejected, time.Millisecond)
	m.IncError(&pgconn.PgError{Code: "40001"})

	if got := testutil.ToFloat64(m.runs.WithLabelValues(CompletionOutcomeCompleted)); got != 2 {
		t.Fatalf("expected 2 completed runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.errors.WithLabelValues(CompletionReasonSerializationFailure)); got != 1 {
		t.Fatalf("expected 1 serialization error, got %v", got)
	}
}
