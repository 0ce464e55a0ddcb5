package repository

import (
	"context"

	"github.com/smallbiznis/detailflow/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB) (*domain.Settings, error) {
	var settings domain.Settings
	err := db.WithContext(ctx).
		Where("id = ?", domain.GlobalID).
		Limit(1).
		Find(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.ID == "" {
		return nil, nil
	}
	return &settings, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, settings *domain.Settings) error {
	settings.ID = domain.GlobalID
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(settings).Error
}
