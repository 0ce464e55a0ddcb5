package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/internal/expense/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, expense *domain.Expense) error {
	return db.WithContext(ctx).Create(expense).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListExpenseFilter) ([]*domain.Expense, error) {
	var expenses []*domain.Expense
	stmt := db.WithContext(ctx).Model(&domain.Expense{})
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.From != nil {
		stmt = stmt.Where("spent_on >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("spent_on < ?", *filter.To)
	}
	if err := stmt.Order("spent_on desc, id desc").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *repo) Sum(ctx context.Context, db *gorm.DB, from, to time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Expense{}).
		Where("spent_on >= ? AND spent_on < ?", from, to).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Expense{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
