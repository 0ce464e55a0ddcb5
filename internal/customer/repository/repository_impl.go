package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/internal/customer/domain"
	"github.com/smallbiznis/detailflow/pkg/db/option"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("id = ?", customer.ID).
		Updates(map[string]any{
			"name":                    customer.Name,
			"mobile":                  customer.Mobile,
			"email":                   customer.Email,
			"notes":                   customer.Notes,
			"referred_by_customer_id": customer.ReferredByCustomerID,
			"referring_employee_id":   customer.ReferringEmployeeID,
			"updated_at":              customer.UpdatedAt,
		}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	// sqlite serializes writers and has no row locks
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.FindByID(ctx, db, id)
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Customer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var customers []*domain.Customer
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).Model(&domain.Customer{})
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Mobile != "" {
		stmt = stmt.Where("mobile LIKE ?", "%"+filter.Mobile+"%")
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) InsertVehicle(ctx context.Context, db *gorm.DB, vehicle *domain.Vehicle) error {
	return db.WithContext(ctx).Create(vehicle).Error
}

func (r *repo) FindVehicleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Vehicle, error) {
	var vehicle domain.Vehicle
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&vehicle).Error
	if err != nil {
		return nil, err
	}
	if vehicle.ID == 0 {
		return nil, nil
	}
	return &vehicle, nil
}

func (r *repo) ListVehicles(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*domain.Vehicle, error) {
	var vehicles []*domain.Vehicle
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at asc, id asc").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *repo) MarkVehicleServiced(ctx context.Context, db *gorm.DB, vehicleID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Vehicle{}).
		Where("id = ?", vehicleID).
		Updates(map[string]any{
			"last_service_date": at,
			"updated_at":        at,
		}).Error
}
