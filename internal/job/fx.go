package job

import (
	"github.com/smallbiznis/detailflow/internal/job/domain"
	"github.com/smallbiznis/detailflow/internal/job/repository"
	"github.com/smallbiznis/detailflow/internal/job/service"
	"github.com/smallbiznis/detailflow/internal/lock"
	"go.uber.org/fx"
)

var Module = fx.Module("job.service",
	fx.Provide(repository.Provide),
	fx.Provide(provideLocker),
	fx.Provide(service.New),
)

type lockerParams struct {
	fx.In

	Locker *lock.Locker `optional:"true"`
}

// provideLocker keeps a nil *lock.Locker from becoming a non-nil interface.
func provideLocker(p lockerParams) domain.Locker {
	if p.Locker == nil {
		return nil
	}
	return p.Locker
}
