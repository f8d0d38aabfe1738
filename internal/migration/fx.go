package migration

import (
	"github.com/karobar/karobar/internal/config"
	"github.com/karobar/karobar/internal/seed"
	"github.com/karobar/karobar/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module brings the base schema up at startup. Postgres runs the embedded
// SQL migrations; other dialects build the schema from the models. Evolution
// steps run afterwards from their own module.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if db.IsPostgres(conn) {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoCompany(conn)
		}
		return nil
	}),
)
