package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/versioning"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
)

// BOM is a bill of materials header with its component lines embedded as
// JSON. Approved BOMs are immutable; a change means cloning into the next
// revision. Multiple revisions per product may coexist.
type BOM struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID   `gorm:"not null;index" json:"company_id"`
	ProductName string         `gorm:"not null" json:"product_name"`
	Revision    int            `gorm:"not null;default:1" json:"revision"`
	OutputQty   float64        `gorm:"not null;default:1" json:"output_qty"`
	UOM         string         `gorm:"column:uom;not null;default:'Nos'" json:"uom"`
	Status      Status         `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	Components  datatypes.JSON `gorm:"type:jsonb" json:"components,omitempty"`
	IsDeleted   bool           `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	versioning.VersionedModel
	versioning.SyncedModel
}

func (BOM) TableName() string { return "boms" }

func (b *BOM) EntityID() snowflake.ID { return b.ID }

type CreateBOMRequest struct {
	CompanyID   snowflake.ID   `json:"company_id"`
	ProductName string         `json:"product_name"`
	OutputQty   float64        `json:"output_qty"`
	UOM         string         `json:"uom"`
	Components  datatypes.JSON `json:"components"`
}

type Service interface {
	Create(ctx context.Context, req CreateBOMRequest) (*BOM, error)
	Approve(ctx context.Context, id snowflake.ID) (*BOM, error)
	// Clone copies an approved BOM into a new draft revision.
	Clone(ctx context.Context, id snowflake.ID) (*BOM, error)
	List(ctx context.Context, companyID snowflake.ID) ([]BOM, error)
	GetByID(ctx context.Context, id snowflake.ID) (*BOM, error)
}

var (
	ErrInvalidProduct  = errors.New("invalid_product")
	ErrInvalidQty      = errors.New("invalid_qty")
	ErrNotFound        = errors.New("not_found")
	ErrNotApproved     = errors.New("not_approved")
	ErrAlreadyApproved = errors.New("already_approved")
)
