package migration

import (
	"github.com/smallbiznis/referra/internal/config"
	"github.com/smallbiznis/referra/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB, cfg.DBType); err != nil {
			return err
		}

		if err := seed.EnsureDefaultTiers(conn); err != nil {
			return err
		}
		return seed.EnsureAdminUser(conn, cfg)
	}),
)
