package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/versioning"
)

// Branch is a company location. StateCode drives GST treatment downstream:
// intra-state vs inter-state is decided by comparing branch and counterparty
// states, outside this service.
type Branch struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id"`
	Name      string       `gorm:"not null" json:"name"`
	StateCode string       `gorm:"not null" json:"state_code"`
	Address   string       `json:"address,omitempty"`
	IsDeleted bool         `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	versioning.VersionedModel
}

func (Branch) TableName() string { return "branches" }

func (b *Branch) EntityID() snowflake.ID { return b.ID }

type CreateBranchRequest struct {
	CompanyID snowflake.ID `json:"company_id"`
	Name      string       `json:"name"`
	StateCode string       `json:"state_code"`
	Address   string       `json:"address"`
}

type Service interface {
	Create(ctx context.Context, req CreateBranchRequest) (*Branch, error)
	List(ctx context.Context, companyID snowflake.ID) ([]Branch, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Branch, error)
	Retire(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidState   = errors.New("invalid_state")
	ErrNotFound       = errors.New("not_found")
	ErrLastBranch     = errors.New("last_branch")
)
