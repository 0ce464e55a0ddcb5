package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
)

type ListCustomerRequest struct {
	PageToken string
	PageSize  int
	Name      string
	Mobile    string
}

type ListCustomerFilter struct {
	Name   string
	Mobile string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Referral struct {
	Source     ReferralSource
	CustomerID string
	EmployeeID string
}

type VehicleInput struct {
	RegNumber      string
	Model          string
	Color          string
	FuelType       string
	NextServiceDue string
}

type OnboardRequest struct {
	Name     string
	Mobile   string
	Email    string
	Notes    string
	Referral Referral
	Vehicle  VehicleInput
}

type OnboardResponse struct {
	Customer Customer `json:"customer"`
	Vehicle  Vehicle  `json:"vehicle"`
}

type UpdateCustomerRequest struct {
	ID       string
	Name     *string
	Mobile   *string
	Email    *string
	Notes    *string
	Referral *Referral
}

type AddVehicleRequest struct {
	CustomerID string
	Vehicle    VehicleInput
}

// ChainEntry is one ancestor in a customer's referral chain.
type ChainEntry struct {
	Level int          `json:"level"`
	Kind  string       `json:"kind"`
	ID    snowflake.ID `json:"id"`
	Name  string       `json:"name"`
}

type Service interface {
	Onboard(context.Context, OnboardRequest) (OnboardResponse, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, string) (Customer, error)
	AddVehicle(context.Context, AddVehicleRequest) (Vehicle, error)
	ListVehicles(context.Context, string) ([]Vehicle, error)
	ReferralChain(context.Context, string) ([]ChainEntry, error)
}

var (
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidMobile     = errors.New("invalid_mobile")
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidReferral   = errors.New("invalid_referral")
	ErrMultipleReferrers = errors.New("multiple_referrers")
	ErrSelfReferral      = errors.New("self_referral")
	ErrReferralCycle     = errors.New("referral_cycle")
	ErrReferrerNotFound  = errors.New("referrer_not_found")
	ErrInvalidRegNumber  = errors.New("invalid_reg_number")
	ErrInvalidModel      = errors.New("invalid_model")
	ErrInvalidFuelType   = errors.New("invalid_fuel_type")
	ErrInvalidServiceDue = errors.New("invalid_next_service_due")
	ErrNotFound          = errors.New("not_found")
)
