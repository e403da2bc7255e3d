package migration

import (
	"fmt"

	"github.com/smallbiznis/sorteos/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		switch cfg.DBType {
		case "postgres", "":
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		case "sqlite":
			return ApplySQLite(conn)
		case "mysql":
			log.Warn("schema migrations are not bundled for mysql; apply them externally")
			return nil
		default:
			return fmt.Errorf("unsupported database type %q", cfg.DBType)
		}
	}),
)
