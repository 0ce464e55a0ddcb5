package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*ServiceItem, error)
	List(ctx context.Context, req ListRequest) ([]ServiceItem, error)
	Delete(ctx context.Context, id string) error
}

type ListRequest struct {
	Name string
}

type CreateRequest struct {
	// Code defaults to a slug of Name.
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Price       int64   `json:"price"`
	Description *string `json:"description"`
}

var (
	ErrInvalidCode   = errors.New("invalid_code")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidPrice  = errors.New("invalid_price")
	ErrDuplicateCode = errors.New("duplicate_code")
	ErrNotFound      = errors.New("not_found")
	ErrInvalidID     = errors.New("invalid_id")
)
