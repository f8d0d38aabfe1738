package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	// ErrScopeInvalid means the scope key references a missing or inactive
	// company, branch or financial year, or an unknown document type. Not retried.
	ErrScopeInvalid = errors.New("scope_invalid")
	// ErrAllocationConflict is a lost update on the counter row. It is retried
	// internally and never surfaced to callers.
	ErrAllocationConflict = errors.New("allocation_conflict")
	// ErrStoreUnavailable is surfaced once the bounded retry loop for
	// conflicts is exhausted or the store itself fails. Retryable by the caller.
	ErrStoreUnavailable = errors.New("store_unavailable")
	// ErrConstraintViolation means a document type or format value outside the
	// closed enumeration was rejected at the boundary.
	ErrConstraintViolation = errors.New("constraint_violation")
	// ErrNotFound means no live scope matches.
	ErrNotFound = errors.New("not_found")
)

type UpdateFormatRequest struct {
	ScopeID   snowflake.ID
	Prefix    string
	PadLength int
}

type ListScopesRequest struct {
	CompanyID       snowflake.ID
	BranchID        snowflake.ID
	DocumentType    DocumentType
	FinancialYearID snowflake.ID
	IncludeDeleted  bool
}

// Service allocates formatted document numbers and manages scope metadata.
type Service interface {
	// Allocate returns the next formatted number for the scope, creating the
	// scope lazily on first use. It must run inside the caller's transaction
	// so an aborted business write returns its number.
	Allocate(ctx context.Context, tx *gorm.DB, key ScopeKey) (string, error)
	// List returns scopes matching the filter.
	List(ctx context.Context, req ListScopesRequest) ([]*DocumentSequence, error)
	// UpdateFormat changes prefix/pad for numbers issued after the change.
	// Already-issued numbers are never renumbered.
	UpdateFormat(ctx context.Context, req UpdateFormatRequest) (*DocumentSequence, error)
	// Retire soft deletes a scope, decommissioning its stream.
	Retire(ctx context.Context, scopeID snowflake.ID) error
}

// Repository is the persistence surface for sequence scopes.
type Repository interface {
	FindLive(ctx context.Context, conn *gorm.DB, key ScopeKey) (*DocumentSequence, error)
	FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*DocumentSequence, error)
	List(ctx context.Context, conn *gorm.DB, req ListScopesRequest) ([]*DocumentSequence, error)
	Insert(ctx context.Context, conn *gorm.DB, seq *DocumentSequence) error
	// CompareAndSwapNumber advances current_number from old to next and
	// reports whether this writer won. A false return is a lost update.
	CompareAndSwapNumber(ctx context.Context, conn *gorm.DB, id snowflake.ID, old, next int64) (bool, error)
	UpdateFormat(ctx context.Context, conn *gorm.DB, id snowflake.ID, prefix string, padLength int) error
	SoftDelete(ctx context.Context, conn *gorm.DB, id snowflake.ID) error
}
