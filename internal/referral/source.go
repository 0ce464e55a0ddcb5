package referral

import (
	"context"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/detailflow/internal/customer/domain"
	employeedomain "github.com/smallbiznis/detailflow/internal/employee/domain"
	"gorm.io/gorm"
)

type repositorySource struct {
	db        *gorm.DB
	customers customerdomain.Repository
	employees employeedomain.Repository
}

// NewRepositorySource reads chain participants through the customer and
// employee repositories on db.
func NewRepositorySource(db *gorm.DB, customers customerdomain.Repository, employees employeedomain.Repository) Source {
	return repositorySource{db: db, customers: customers, employees: employees}
}

func (r repositorySource) Customer(ctx context.Context, id snowflake.ID) (*customerdomain.Customer, error) {
	return r.customers.FindByID(ctx, r.db, id)
}

func (r repositorySource) Employee(ctx context.Context, id snowflake.ID) (*employeedomain.Employee, error) {
	return r.employees.FindByID(ctx, r.db, id)
}
