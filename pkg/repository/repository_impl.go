package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/db"
	"github.com/karobar/karobar/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type store[T any] struct {
	db      *gorm.DB
	tracker *versioning.Tracker
}

func ProvideStore[T any](db *gorm.DB, tracker *versioning.Tracker) Repository[T] {
	return &store[T]{db: db, tracker: tracker}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx, tracker: r.tracker}
}

func (r *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var result []*T
	stmt := r.buildQuery(ctx, query, opts...)
	err := stmt.Find(&result).Error
	return result, err
}

func (r *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var result T
	stmt := r.buildQuery(ctx, query, opts...)
	err := stmt.First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	if ent, ok := any(resource).(versioning.Versioned); ok {
		if _, _, _, err := r.tracker.OnMutate(ent, 0); err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Create(resource).Error
}

// Save funnels updates through the tracker. The stored version is read under
// a row lock in the same transaction as the write, so two concurrent saves of
// one row cannot both observe the same previous version.
func (r *store[T]) Save(ctx context.Context, resource *T) error {
	ent, ok := any(resource).(versioning.Versioned)
	if !ok {
		return r.db.WithContext(ctx).Save(resource).Error
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev, err := storedVersion[T](ctx, tx, ent)
		if err != nil {
			return err
		}
		if _, _, _, err := r.tracker.OnMutate(ent, prev); err != nil {
			return err
		}
		return tx.Save(resource).Error
	})
}

func (r *store[T]) Count(ctx context.Context, query *T) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(query).Where(query).Count(&count).Error
	return count, err
}

// storedVersion reads the row version as persisted right now, locking the row
// until the surrounding transaction commits. The payload's own version field
// is never trusted. A missing row reads as version 0, i.e. creation.
func storedVersion[T any](ctx context.Context, tx *gorm.DB, ent versioning.Versioned) (int64, error) {
	stmt := tx.WithContext(ctx).
		Model(new(T)).
		Where("id = ?", ent.EntityID()).
		Limit(1)
	if db.SupportsRowLocking(tx) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var versions []int64
	if err := stmt.Pluck("version", &versions).Error; err != nil {
		return 0, fmt.Errorf("read stored version: %w", err)
	}
	if len(versions) == 0 {
		return 0, nil
	}
	return versions[0], nil
}

func (r *store[T]) buildQuery(ctx context.Context, filter *T, opts ...option.QueryOption) *gorm.DB {
	stmt := r.db.WithContext(ctx).Where(filter)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
