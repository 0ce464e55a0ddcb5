package migration

import (
	"github.com/smallbiznis/detailflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.MigrateOnStart {
			log.Info("schema migrations skipped")
			return nil
		}

		dialect := conn.Dialector.Name()
		if dialect != "postgres" {
			log.Info("auto migrating schema", zap.String("dialect", dialect))
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		log.Info("applying sql migrations")
		return RunMigrations(sqlDB)
	}),
)
