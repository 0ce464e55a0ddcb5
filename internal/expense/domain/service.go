package domain

import (
	"context"
	"errors"
	"time"
)

type CreateExpenseRequest struct {
	Title    string
	Amount   int64
	Category string
	// SpentOn is YYYY-MM-DD; empty means today.
	SpentOn string
	Notes   string
}

type ListExpenseRequest struct {
	Category string
	// From and To are inclusive YYYY-MM-DD dates.
	From string
	To   string
}

type Service interface {
	Create(context.Context, CreateExpenseRequest) (Expense, error)
	List(context.Context, ListExpenseRequest) ([]Expense, error)
	Delete(context.Context, string) error
	// Total sums expenses with SpentOn in [from, to).
	Total(ctx context.Context, from, to time.Time) (int64, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidCategory  = errors.New("invalid_category")
	ErrInvalidDate      = errors.New("invalid_date")
	ErrInvalidDateRange = errors.New("invalid_date_range")
	ErrNotFound         = errors.New("not_found")
)
