package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/internal/referral"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListJobFilter struct {
	Status     Status
	CustomerID *snowflake.ID
	EmployeeID *snowflake.ID
}

// Completion is the single row mutation that closes a job.
type Completion struct {
	PaymentMode         PaymentMode
	PerformerID         *snowflake.ID
	CompletedAt         time.Time
	ReferralCommissions referral.Snapshot
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *Job) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Job, error)
	List(ctx context.Context, db *gorm.DB, filter ListJobFilter, page pagination.Pagination) ([]*Job, error)
	// UpdateDraft rewrites the editable fields and items of an open job. It
	// reports false when the job was no longer open.
	UpdateDraft(ctx context.Context, db *gorm.DB, job *Job) (bool, error)
	// Transition moves a job from one of the from statuses to to. It reports
	// false when the job was not in any of them.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from []Status, to Status, fields map[string]any) (bool, error)
	// Complete writes the completion and the referral snapshot only if the job
	// is still open. It reports false when another writer got there first.
	Complete(ctx context.Context, db *gorm.DB, id snowflake.ID, completion Completion) (bool, error)
	ListCompleted(ctx context.Context, db *gorm.DB, from, to time.Time) ([]*Job, error)
}

// Locker serialises completions of the same job across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}
