package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/sequence/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindLive(ctx context.Context, conn *gorm.DB, key domain.ScopeKey) (*domain.DocumentSequence, error) {
	var seq domain.DocumentSequence
	err := conn.WithContext(ctx).Raw(
		`SELECT id, company_id, branch_id, document_type, financial_year_id,
		        prefix_pattern, pad_length, current_number, is_deleted, created_at, updated_at
		 FROM document_sequences
		 WHERE company_id = ? AND branch_id = ? AND document_type = ? AND financial_year_id = ?
		   AND is_deleted = ?
		 LIMIT 1`,
		key.CompanyID,
		key.BranchID,
		key.DocumentType,
		key.FinancialYearID,
		false,
	).Scan(&seq).Error
	if err != nil {
		return nil, err
	}
	if seq.ID == 0 {
		return nil, nil
	}
	return &seq, nil
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.DocumentSequence, error) {
	var seq domain.DocumentSequence
	err := conn.WithContext(ctx).Raw(
		`SELECT id, company_id, branch_id, document_type, financial_year_id,
		        prefix_pattern, pad_length, current_number, is_deleted, created_at, updated_at
		 FROM document_sequences
		 WHERE id = ?`,
		id,
	).Scan(&seq).Error
	if err != nil {
		return nil, err
	}
	if seq.ID == 0 {
		return nil, nil
	}
	return &seq, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, req domain.ListScopesRequest) ([]*domain.DocumentSequence, error) {
	stmt := conn.WithContext(ctx).Model(&domain.DocumentSequence{})
	if req.CompanyID != 0 {
		stmt = stmt.Where("company_id = ?", req.CompanyID)
	}
	if req.BranchID != 0 {
		stmt = stmt.Where("branch_id = ?", req.BranchID)
	}
	if req.DocumentType != "" {
		stmt = stmt.Where("document_type = ?", req.DocumentType)
	}
	if req.FinancialYearID != 0 {
		stmt = stmt.Where("financial_year_id = ?", req.FinancialYearID)
	}
	if !req.IncludeDeleted {
		stmt = stmt.Where("is_deleted = ?", false)
	}

	var scopes []*domain.DocumentSequence
	err := stmt.
		Order("company_id, branch_id, financial_year_id, document_type").
		Find(&scopes).Error
	if err != nil {
		return nil, err
	}
	return scopes, nil
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, seq *domain.DocumentSequence) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO document_sequences (
			id, company_id, branch_id, document_type, financial_year_id,
			prefix_pattern, pad_length, current_number, is_deleted, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seq.ID,
		seq.CompanyID,
		seq.BranchID,
		seq.DocumentType,
		seq.FinancialYearID,
		seq.Prefix,
		seq.PadLength,
		seq.CurrentNumber,
		seq.IsDeleted,
		seq.CreatedAt,
		seq.UpdatedAt,
	).Error
}

func (r *repo) CompareAndSwapNumber(ctx context.Context, conn *gorm.DB, id snowflake.ID, old, next int64) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE document_sequences
		 SET current_number = ?, updated_at = ?
		 WHERE id = ? AND current_number = ? AND is_deleted = ?`,
		next,
		time.Now().UTC(),
		id,
		old,
		false,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) UpdateFormat(ctx context.Context, conn *gorm.DB, id snowflake.ID, prefix string, padLength int) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE document_sequences
		 SET prefix_pattern = ?, pad_length = ?, updated_at = ?
		 WHERE id = ?`,
		prefix,
		padLength,
		time.Now().UTC(),
		id,
	).Error
}

func (r *repo) SoftDelete(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE document_sequences
		 SET is_deleted = ?, updated_at = ?
		 WHERE id = ?`,
		true,
		time.Now().UTC(),
		id,
	).Error
}
