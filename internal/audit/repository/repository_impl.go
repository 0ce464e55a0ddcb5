package repository

import (
	"context"

	"github.com/smallbiznis/detailflow/internal/audit/domain"
	"github.com/smallbiznis/detailflow/pkg/db/option"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.AuditLog, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})
	for column, value := range map[string]string{
		"action":      filter.Action,
		"target_type": filter.TargetType,
		"target_id":   filter.TargetID,
		"actor_id":    filter.ActorID,
	} {
		if value != "" {
			stmt = stmt.Where(column+" = ?", value)
		}
	}
	if filter.Since != nil {
		stmt = stmt.Where("created_at >= ?", filter.Since.UTC())
	}
	if filter.Until != nil {
		stmt = stmt.Where("created_at < ?", filter.Until.UTC())
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	stmt = option.WithOrder("created_at desc, id desc").Apply(stmt)

	var logs []*domain.AuditLog
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
