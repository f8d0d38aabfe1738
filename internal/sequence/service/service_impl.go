package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/sequence/domain"
	"github.com/karobar/karobar/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxAllocateAttempts bounds the internal retry loop for lost counter updates.
const maxAllocateAttempts = 5

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("sequence.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Allocate reserves the next number for the scope inside the caller's
// transaction. Two concurrent callers on one scope never observe the same
// number: the counter bump is a compare-and-swap on current_number, retried
// on lost updates. Scopes for other keys are never serialized against.
func (s *Service) Allocate(ctx context.Context, tx *gorm.DB, key domain.ScopeKey) (string, error) {
	if tx == nil {
		tx = s.db
	}

	if err := s.validateScope(ctx, tx, key); err != nil {
		return "", err
	}

	var conflictErr error
	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		seq, err := s.repo.FindLive(ctx, tx, key)
		if err != nil {
			return "", fmt.Errorf("%w: load scope: %v", domain.ErrStoreUnavailable, err)
		}
		if seq == nil {
			seq, err = s.createScope(ctx, tx, key)
			if err != nil {
				if db.IsDuplicateKeyErr(err) {
					// Another writer created the scope first; use theirs.
					continue
				}
				return "", fmt.Errorf("%w: create scope: %v", domain.ErrStoreUnavailable, err)
			}
		}

		next := seq.CurrentNumber + 1
		swapped, err := s.repo.CompareAndSwapNumber(ctx, tx, seq.ID, seq.CurrentNumber, next)
		if err != nil {
			return "", fmt.Errorf("%w: advance counter: %v", domain.ErrStoreUnavailable, err)
		}
		if swapped {
			return domain.FormatNumber(seq.Prefix, seq.PadLength, next), nil
		}

		conflictErr = fmt.Errorf("%w: scope %d attempt %d", domain.ErrAllocationConflict, seq.ID, attempt+1)
		s.log.Debug("sequence allocation conflict, retrying",
			zap.Int64("scope_id", int64(seq.ID)),
			zap.Int("attempt", attempt+1),
		)
	}

	return "", fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, conflictErr)
}

func (s *Service) List(ctx context.Context, req domain.ListScopesRequest) ([]*domain.DocumentSequence, error) {
	if req.DocumentType != "" && !req.DocumentType.Valid() {
		return nil, domain.ErrConstraintViolation
	}
	return s.repo.List(ctx, s.db, req)
}

func (s *Service) UpdateFormat(ctx context.Context, req domain.UpdateFormatRequest) (*domain.DocumentSequence, error) {
	prefix := strings.TrimSpace(req.Prefix)
	if prefix == "" || req.PadLength < 1 {
		return nil, domain.ErrConstraintViolation
	}

	seq, err := s.repo.FindByID(ctx, s.db, req.ScopeID)
	if err != nil {
		return nil, err
	}
	if seq == nil || seq.IsDeleted {
		return nil, domain.ErrNotFound
	}

	// Format changes are metadata only. current_number is untouched and
	// already-issued numbers are never rewritten.
	if err := s.repo.UpdateFormat(ctx, s.db, seq.ID, prefix, req.PadLength); err != nil {
		return nil, err
	}

	seq.Prefix = prefix
	seq.PadLength = req.PadLength
	return seq, nil
}

func (s *Service) Retire(ctx context.Context, scopeID snowflake.ID) error {
	seq, err := s.repo.FindByID(ctx, s.db, scopeID)
	if err != nil {
		return err
	}
	if seq == nil || seq.IsDeleted {
		return domain.ErrNotFound
	}
	return s.repo.SoftDelete(ctx, s.db, scopeID)
}

func (s *Service) createScope(ctx context.Context, tx *gorm.DB, key domain.ScopeKey) (*domain.DocumentSequence, error) {
	format, ok := domain.DefaultFormats[key.DocumentType]
	if !ok {
		return nil, domain.ErrConstraintViolation
	}

	now := time.Now().UTC()
	seq := &domain.DocumentSequence{
		ID:              s.genID.Generate(),
		CompanyID:       key.CompanyID,
		BranchID:        key.BranchID,
		DocumentType:    key.DocumentType,
		FinancialYearID: key.FinancialYearID,
		Prefix:          format.Prefix,
		PadLength:       format.PadLength,
		CurrentNumber:   0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, tx, seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// validateScope checks every part of the key against live rows. The raw
// lookups keep the allocator decoupled from the master-data services while
// still running inside the caller's transaction.
func (s *Service) validateScope(ctx context.Context, tx *gorm.DB, key domain.ScopeKey) error {
	if key.CompanyID == 0 || key.BranchID == 0 || key.FinancialYearID == 0 {
		return domain.ErrScopeInvalid
	}
	if !key.DocumentType.Valid() {
		return fmt.Errorf("%w: document type %q", domain.ErrScopeInvalid, key.DocumentType)
	}

	var companies int64
	err := tx.WithContext(ctx).Raw(
		`SELECT count(1) FROM companies WHERE id = ? AND is_deleted = ?`,
		key.CompanyID, false,
	).Scan(&companies).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if companies == 0 {
		return fmt.Errorf("%w: company %d", domain.ErrScopeInvalid, key.CompanyID)
	}

	var branches int64
	err = tx.WithContext(ctx).Raw(
		`SELECT count(1) FROM branches WHERE id = ? AND company_id = ? AND is_deleted = ?`,
		key.BranchID, key.CompanyID, false,
	).Scan(&branches).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if branches == 0 {
		return fmt.Errorf("%w: branch %d", domain.ErrScopeInvalid, key.BranchID)
	}

	var years int64
	err = tx.WithContext(ctx).Raw(
		`SELECT count(1) FROM financial_years WHERE id = ? AND company_id = ? AND is_deleted = ?`,
		key.FinancialYearID, key.CompanyID, false,
	).Scan(&years).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if years == 0 {
		return fmt.Errorf("%w: financial year %d", domain.ErrScopeInvalid, key.FinancialYearID)
	}

	return nil
}
