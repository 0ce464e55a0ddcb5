package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/detailflow/pkg/db/pagination"
)

// Target types recorded on audit entries.
const (
	TargetCustomer = "customer"
	TargetVehicle  = "vehicle"
	TargetEmployee = "employee"
	TargetJob      = "job"
	TargetSettings = "settings"
	TargetExpense  = "expense"
	TargetService  = "service"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorID    string
	Since      *time.Time
	Until      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

// Service writes and reads the audit trail. The acting employee, request id
// and correlation id are taken from ctx.
type Service interface {
	AuditLog(ctx context.Context, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
