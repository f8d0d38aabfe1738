// Package evolution applies ordered, reversible data evolution steps against
// a live dataset. Unlike the base DDL migrations, each step here rewrites or
// backfills production rows, so every step carries an exact inverse and runs
// in its own transaction. The runner executes at startup, after the base
// schema migrations and before any application traffic, and is never
// concurrent with itself.
package evolution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrMigrationIrreversible means a step's inverse cannot be computed exactly
// for the current data state. Such a step refuses to proceed rather than guess.
var ErrMigrationIrreversible = errors.New("migration_irreversible")

// Step is one forward/inverse transformation pair. Version fixes the
// execution order; both directions must be safe against non-empty data.
type Step struct {
	Version int
	Name    string
	Up      func(ctx context.Context, tx *gorm.DB) error
	Down    func(ctx context.Context, tx *gorm.DB) error
}

// AppliedStep records an executed step in the evolution ledger.
type AppliedStep struct {
	Version   int       `gorm:"primaryKey" json:"version"`
	Name      string    `gorm:"not null" json:"name"`
	AppliedAt time.Time `gorm:"not null" json:"applied_at"`
}

func (AppliedStep) TableName() string { return "schema_evolutions" }

type Runner struct {
	db    *gorm.DB
	log   *zap.Logger
	steps []Step
}

func NewRunner(conn *gorm.DB, log *zap.Logger, steps []Step) *Runner {
	ordered := make([]Step, len(steps))
	copy(ordered, steps)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })
	return &Runner{
		db:    conn,
		log:   log.Named("evolution"),
		steps: ordered,
	}
}

// Up applies every pending step in version order. Each step runs in its own
// transaction together with its ledger record, so a failed step leaves no
// partial application behind.
func (r *Runner) Up(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&AppliedStep{}); err != nil {
		return fmt.Errorf("ensure evolution ledger: %w", err)
	}

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, step := range r.steps {
		if applied[step.Version] {
			continue
		}
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := step.Up(ctx, tx); err != nil {
				return err
			}
			return tx.Create(&AppliedStep{
				Version:   step.Version,
				Name:      step.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("evolution step %d (%s) up: %w", step.Version, step.Name, err)
		}
		r.log.Info("evolution step applied",
			zap.Int("version", step.Version),
			zap.String("name", step.Name),
		)
	}
	return nil
}

// Down reverts applied steps in reverse version order until, and excluding,
// toVersion. toVersion 0 reverts everything.
func (r *Runner) Down(ctx context.Context, toVersion int) error {
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for i := len(r.steps) - 1; i >= 0; i-- {
		step := r.steps[i]
		if step.Version <= toVersion || !applied[step.Version] {
			continue
		}
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := step.Down(ctx, tx); err != nil {
				return err
			}
			return tx.Delete(&AppliedStep{}, "version = ?", step.Version).Error
		})
		if err != nil {
			return fmt.Errorf("evolution step %d (%s) down: %w", step.Version, step.Name, err)
		}
		r.log.Info("evolution step reverted",
			zap.Int("version", step.Version),
			zap.String("name", step.Name),
		)
	}
	return nil
}

func (r *Runner) appliedVersions(ctx context.Context) (map[int]bool, error) {
	var rows []AppliedStep
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read evolution ledger: %w", err)
	}
	applied := make(map[int]bool, len(rows))
	for _, row := range rows {
		applied[row.Version] = true
	}
	return applied, nil
}
