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
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusConverted Status = "converted"
)

// transitions is the allowed status flow:
// draft -> sent -> accepted -> converted, with rejected/expired terminal from sent.
var transitions = map[Status][]Status{
	StatusDraft:    {StatusSent},
	StatusSent:     {StatusAccepted, StatusRejected, StatusExpired},
	StatusAccepted: {StatusConverted},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Quotation is a numbered sales document. QuotationNo is assigned exactly
// once by the sequence allocator inside the creating transaction and never
// rewritten, even when the scope's format later changes.
type Quotation struct {
	ID              snowflake.ID   `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID   `gorm:"not null;index" json:"company_id"`
	BranchID        snowflake.ID   `gorm:"not null;index" json:"branch_id"`
	FinancialYearID snowflake.ID   `gorm:"not null;index" json:"financial_year_id"`
	QuotationNo     string         `gorm:"not null;uniqueIndex:uk_quotations_number" json:"quotation_no"`
	CustomerName    string         `gorm:"not null" json:"customer_name"`
	Status          Status         `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	Items           datatypes.JSON `gorm:"type:jsonb" json:"items,omitempty"`
	TotalAmount     int64          `gorm:"not null;default:0" json:"total_amount"`
	ValidUntil      *time.Time     `json:"valid_until,omitempty"`
	IsDeleted       bool           `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	versioning.VersionedModel
	versioning.SyncedModel
}

func (Quotation) TableName() string { return "quotations" }

func (q *Quotation) EntityID() snowflake.ID { return q.ID }

type CreateQuotationRequest struct {
	CompanyID       snowflake.ID   `json:"company_id"`
	BranchID        snowflake.ID   `json:"branch_id"`
	FinancialYearID snowflake.ID   `json:"financial_year_id"`
	CustomerName    string         `json:"customer_name"`
	Items           datatypes.JSON `json:"items"`
	TotalAmount     int64          `json:"total_amount"`
	ValidUntil      *time.Time     `json:"valid_until"`
}

type UpdateQuotationRequest struct {
	ID           snowflake.ID
	CustomerName string
	Items        datatypes.JSON
	TotalAmount  int64
	ValidUntil   *time.Time
}

type ListQuotationsRequest struct {
	CompanyID snowflake.ID
	BranchID  snowflake.ID
	Status    Status
}

type Service interface {
	Create(ctx context.Context, req CreateQuotationRequest) (*Quotation, error)
	Update(ctx context.Context, req UpdateQuotationRequest) (*Quotation, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, next Status) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Quotation, error)
}

var (
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotFound          = errors.New("not_found")
	ErrYearLocked        = errors.New("financial_year_locked")
	ErrDocumentImmutable = errors.New("document_immutable")
)
