package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/pkg/db/option"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("position asc, id asc")
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *domain.Job) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(job).Error; err != nil {
			return err
		}
		if len(job.Items) == 0 {
			return nil
		}
		return tx.Create(&job.Items).Error
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Job, error) {
	var jobs []domain.Job
	err := db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("id = ?", id).
		Limit(1).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListJobFilter, page pagination.Pagination) ([]*domain.Job, error) {
	var jobs []*domain.Job
	stmt := db.WithContext(ctx).
		Model(&domain.Job{}).
		Preload("Items", preloadItems)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.EmployeeID != nil {
		stmt = stmt.Where("assigned_employee_id = ?", *filter.EmployeeID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("created_at desc, id desc").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) UpdateDraft(ctx context.Context, db *gorm.DB, job *domain.Job) (bool, error) {
	updated := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Job{}).
			Where("id = ? AND status IN ?", job.ID, domain.OpenStatuses).
			Updates(map[string]any{
				"assigned_employee_id":       job.AssignedEmployeeID,
				"custom_service_charge":      job.CustomServiceCharge,
				"custom_service_description": job.CustomServiceDescription,
				"discount":                   job.Discount,
				"gst_enabled":                job.GSTEnabled,
				"total_amount":               job.TotalAmount,
				"notes":                      job.Notes,
				"images":                     job.Images,
				"updated_at":                 job.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		updated = true

		if err := tx.Where("job_id = ?", job.ID).Delete(&domain.Item{}).Error; err != nil {
			return err
		}
		if len(job.Items) == 0 {
			return nil
		}
		return tx.Create(&job.Items).Error
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from []domain.Status, to domain.Status, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Complete(ctx context.Context, db *gorm.DB, id snowflake.ID, completion domain.Completion) (bool, error) {
	updates := map[string]any{
		"status":               domain.StatusCompleted,
		"payment_mode":         completion.PaymentMode,
		"completed_at":         completion.CompletedAt,
		"updated_at":           completion.CompletedAt,
		"referral_commissions": completion.ReferralCommissions,
	}
	if completion.PerformerID != nil {
		updates["assigned_employee_id"] = *completion.PerformerID
	}
	res := db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND status IN ?", id, domain.OpenStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListCompleted(ctx context.Context, db *gorm.DB, from, to time.Time) ([]*domain.Job, error) {
	var jobs []*domain.Job
	err := db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("status = ? AND completed_at >= ? AND completed_at < ?", domain.StatusCompleted, from, to).
		Order("completed_at asc, id asc").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
