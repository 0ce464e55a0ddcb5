package employee

import (
	"github.com/smallbiznis/detailflow/internal/employee/repository"
	"github.com/smallbiznis/detailflow/internal/employee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("employee.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
