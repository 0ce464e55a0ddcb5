package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	// LockByID is FindByID holding the row lock until db's transaction ends.
	LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, page pagination.Pagination) ([]*Customer, error)

	InsertVehicle(ctx context.Context, db *gorm.DB, vehicle *Vehicle) error
	FindVehicleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Vehicle, error)
	ListVehicles(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*Vehicle, error)
	MarkVehicleServiced(ctx context.Context, db *gorm.DB, vehicleID snowflake.ID, at time.Time) error
}
