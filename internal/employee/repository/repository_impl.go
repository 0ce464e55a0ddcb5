package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/internal/employee/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, employee *domain.Employee) error {
	return db.WithContext(ctx).Create(employee).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Employee, error) {
	var employee domain.Employee
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&employee).Error
	if err != nil {
		return nil, err
	}
	if employee.ID == 0 {
		return nil, nil
	}
	return &employee, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListEmployeeFilter) ([]*domain.Employee, error) {
	var employees []*domain.Employee
	stmt := db.WithContext(ctx).Model(&domain.Employee{})
	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}
	if err := stmt.Order("name asc, id asc").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *repo) UpdateRecruiter(ctx context.Context, db *gorm.DB, employee *domain.Employee) error {
	return db.WithContext(ctx).
		Model(&domain.Employee{}).
		Where("id = ?", employee.ID).
		Updates(map[string]any{
			"referred_by_employee_id": employee.ReferredByEmployeeID,
			"recruiter_commission":    employee.RecruiterCommission,
			"updated_at":              employee.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Employee{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
