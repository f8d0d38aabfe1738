package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/versioning"
)

// FinancialYear partitions document numbering streams. A locked year rejects
// new documents; numbering scopes for it stay untouched and a fresh year gets
// fresh scope rows on first allocation.
type FinancialYear struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id"`
	YearCode  string       `gorm:"not null" json:"year_code"`
	StartDate time.Time    `gorm:"not null" json:"start_date"`
	EndDate   time.Time    `gorm:"not null" json:"end_date"`
	IsLocked  bool         `gorm:"not null;default:false" json:"is_locked"`
	IsDeleted bool         `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	versioning.VersionedModel
}

func (FinancialYear) TableName() string { return "financial_years" }

func (fy *FinancialYear) EntityID() snowflake.ID { return fy.ID }

type CreateYearRequest struct {
	CompanyID snowflake.ID `json:"company_id"`
	StartDate time.Time    `json:"start_date"`
}

type Service interface {
	Create(ctx context.Context, req CreateYearRequest) (*FinancialYear, error)
	List(ctx context.Context, companyID snowflake.ID) ([]FinancialYear, error)
	GetByID(ctx context.Context, id snowflake.ID) (*FinancialYear, error)
	SetLocked(ctx context.Context, id snowflake.ID, locked bool) (*FinancialYear, error)
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrNotFound       = errors.New("not_found")
	ErrYearOverlap    = errors.New("year_overlap")
)

// YearCode renders the Indian-style financial year code, e.g. "2024-25" for a
// year starting April 2024.
func YearCode(start time.Time) string {
	endYear := start.AddDate(1, 0, -1).Year() % 100
	return fmt.Sprintf("%d-%02d", start.Year(), endYear)
}
