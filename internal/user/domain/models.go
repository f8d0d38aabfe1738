package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/versioning"
)

// User is the local profile row for an operator. Credentials and sessions
// live in the external auth service; only the profile is stored here, so the
// row is versioned but not sync tracked.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id"`
	BranchID  snowflake.ID `gorm:"not null;index" json:"branch_id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null;index" json:"email"`
	Role      string       `gorm:"not null;default:'member'" json:"role"`
	IsDeleted bool         `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	versioning.VersionedModel
}

func (User) TableName() string { return "users" }

func (u *User) EntityID() snowflake.ID { return u.ID }

type CreateUserRequest struct {
	CompanyID snowflake.ID `json:"company_id"`
	BranchID  snowflake.ID `json:"branch_id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Role      string       `json:"role"`
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (*User, error)
	List(ctx context.Context, companyID snowflake.ID) ([]User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Retire(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrNotFound       = errors.New("not_found")
)
