package repository

import (
	"context"

	"github.com/karobar/karobar/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is the uniform persistence surface shared by every entity type.
// Create and Save route through the version tracker; callers never write the
// version or sync_status fields themselves.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
}
