package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/detailflow/pkg/db/pagination"
)

type ItemInput struct {
	ServiceName string
	Price       int64
}

type CreateJobRequest struct {
	CustomerID               string
	VehicleID                string
	AssignedEmployeeID       string
	Items                    []ItemInput
	CustomServiceCharge      int64
	CustomServiceDescription string
	// Discount defaults to the configured default discount when nil.
	Discount   *int64
	GSTEnabled bool
	Notes      string
	Images     []string
}

type UpdateJobRequest struct {
	ID                       string
	AssignedEmployeeID       *string
	Items                    *[]ItemInput
	CustomServiceCharge      *int64
	CustomServiceDescription *string
	Discount                 *int64
	GSTEnabled               *bool
	Notes                    *string
	Images                   *[]string
}

type CompleteJobRequest struct {
	ID          string
	PaymentMode string
	// EmployeeID is the performer used when the job has no assigned employee.
	EmployeeID string
}

type ListJobRequest struct {
	pagination.Pagination
	Status     string
	CustomerID string
	EmployeeID string
}

type ListJobResponse struct {
	pagination.PageInfo
	Jobs []Job `json:"jobs"`
}

type Service interface {
	Create(context.Context, CreateJobRequest) (Job, error)
	Update(context.Context, UpdateJobRequest) (Job, error)
	Start(context.Context, string) (Job, error)
	// Complete closes the job and freezes its referral commission snapshot.
	Complete(context.Context, CompleteJobRequest) (Job, error)
	Cancel(context.Context, string) (Job, error)
	GetByID(context.Context, string) (Job, error)
	List(context.Context, ListJobRequest) (ListJobResponse, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidCustomer    = errors.New("invalid_customer")
	ErrInvalidVehicle     = errors.New("invalid_vehicle")
	ErrInvalidEmployee    = errors.New("invalid_employee")
	ErrInvalidItem        = errors.New("invalid_item")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidPaymentMode = errors.New("invalid_payment_mode")
	ErrInvalidPageToken   = errors.New("invalid_page_token")
	ErrNotEditable        = errors.New("job_not_editable")
	ErrInvalidTransition  = errors.New("invalid_status_transition")

	// ErrAlreadyCompleted is returned when the job left its open state before
	// this completion could write.
	ErrAlreadyCompleted = errors.New("job_already_completed")
	// ErrCompletionInProgress is returned while another completion of the
	// same job holds the lock.
	ErrCompletionInProgress = errors.New("job_completion_in_progress")
	// ErrReferralDataUnavailable wraps a failed read of settings, customers or
	// employees during completion. The job keeps its previous status.
	ErrReferralDataUnavailable = errors.New("referral_data_unavailable")
	// ErrPersistCompletion wraps a failed write of the completion row.
	ErrPersistCompletion = errors.New("persist_completion_failed")
)
