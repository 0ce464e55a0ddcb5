package option

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/detailflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type QueryOptionFunc func(*gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

// ApplyPagination applies keyset pagination ordered by created_at desc, id desc.
// It fetches one extra row so callers can detect another page.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := pagination.Size(page.PageSize)
		token := strings.TrimSpace(page.PageToken)
		if token != "" {
			if cursor, err := pagination.DecodeCursor(token); err == nil {
				createdAt, timeErr := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
				id, idErr := snowflake.ParseString(cursor.ID)
				if timeErr == nil && idErr == nil {
					db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
				}
			}
		}
		return db.Limit(size + 1)
	})
}

func WithOrder(order string) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Order(order)
	})
}
