package db

import (
	"fmt"
	"net"
	"strings"

	"github.com/smallbiznis/detailflow/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect picks the gorm driver for cfg.DBType. Postgres is the production
// target and the only one the SQL migrations are written for; mysql and sqlite
// are schema'd through AutoMigrate.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch kind := strings.ToLower(strings.TrimSpace(cfg.DBType)); kind {
	case "postgres", "postgresql", "":
		return postgres.New(postgres.Config{
			DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
				cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, sslMode(cfg.DBSSLMode)),
		}), nil
	case "mysql":
		return mysql.New(mysql.Config{
			DSN: fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				cfg.DBUser, cfg.DBPassword, net.JoinHostPort(cfg.DBHost, cfg.DBPort), cfg.DBName),
			DefaultStringSize: 255,
		}), nil
	case "sqlite":
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			path = "detailflow.db"
		}
		// foreign keys are off by default in sqlite
		return sqlite.Open(path + "?_foreign_keys=on"), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", kind)
	}
}

func sslMode(mode string) string {
	if mode = strings.TrimSpace(mode); mode != "" {
		return mode
	}
	return "disable"
}
