package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	bomdomain "github.com/karobar/karobar/internal/bom/domain"
	branchdomain "github.com/karobar/karobar/internal/branch/domain"
	companydomain "github.com/karobar/karobar/internal/company/domain"
	fydomain "github.com/karobar/karobar/internal/financialyear/domain"
	quotationdomain "github.com/karobar/karobar/internal/quotation/domain"
	seqdomain "github.com/karobar/karobar/internal/sequence/domain"
	userdomain "github.com/karobar/karobar/internal/user/domain"
	"github.com/karobar/karobar/internal/versioning"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded base schema against postgres. It keeps
// the install usable out of the box: every core table exists after startup.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate builds the schema from the models directly. It is the path for
// sqlite and mysql, where the embedded postgres DDL does not apply.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&companydomain.Company{},
		&branchdomain.Branch{},
		&fydomain.FinancialYear{},
		&userdomain.User{},
		&seqdomain.DocumentSequence{},
		&quotationdomain.Quotation{},
		&bomdomain.BOM{},
		&versioning.Setting{},
	)
}
