package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, item *domain.ServiceItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO service_items (id, code, name, price, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Code,
		item.Name,
		item.Price,
		item.Description,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ServiceItem, error) {
	var item domain.ServiceItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, price, description, created_at, updated_at
		 FROM service_items WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB, name string) ([]domain.ServiceItem, error) {
	var items []domain.ServiceItem
	stmt := db.WithContext(ctx).Model(&domain.ServiceItem{})
	if name = strings.TrimSpace(name); name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if err := stmt.Order("name ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM service_items WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
