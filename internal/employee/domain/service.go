package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type ListEmployeeFilter struct {
	Role Role
}

type CreateEmployeeRequest struct {
	Name                string
	Role                string
	Phone               string
	Email               string
	CommissionRate      decimal.Decimal
	RecruiterID         string
	RecruiterCommission decimal.Decimal
}

type UpdateRecruiterRequest struct {
	ID                  string
	RecruiterID         string
	RecruiterCommission decimal.Decimal
}

type Service interface {
	Create(context.Context, CreateEmployeeRequest) (Employee, error)
	List(context.Context, ListEmployeeFilter) ([]Employee, error)
	GetByID(context.Context, string) (Employee, error)
	UpdateRecruiter(context.Context, UpdateRecruiterRequest) (Employee, error)
	Delete(context.Context, string) error
}

var (
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidRole          = errors.New("invalid_role")
	ErrInvalidPhone         = errors.New("invalid_phone")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidRate          = errors.New("invalid_commission_rate")
	ErrInvalidRecruiterRate = errors.New("invalid_recruiter_commission")
	ErrSelfRecruitment      = errors.New("self_recruitment")
	ErrRecruiterNotFound    = errors.New("recruiter_not_found")
	ErrRecruitmentCycle     = errors.New("recruitment_cycle")
	ErrNotFound             = errors.New("not_found")
)
