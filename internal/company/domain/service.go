package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type SetupRequest struct {
	Name         string `json:"name"`
	GSTIN        string `json:"gstin"`
	PAN          string `json:"pan"`
	BaseCurrency string `json:"base_currency"`
	FYStartMonth int    `json:"fy_start_month"`
	BranchName   string `json:"branch_name"`
	BranchState  string `json:"branch_state"`
	AdminName    string `json:"admin_name"`
	AdminEmail   string `json:"admin_email"`
}

type SetupResponse struct {
	Company         Company      `json:"company"`
	BranchID        snowflake.ID `json:"branch_id"`
	FinancialYearID snowflake.ID `json:"financial_year_id"`
	AdminUserID     snowflake.ID `json:"admin_user_id"`
}

type UpdateCompanyRequest struct {
	ID    snowflake.ID
	Name  string
	GSTIN string
	PAN   string
}

// Service bootstraps and maintains companies. Setup is the only operation
/// allowed before authentication: it creates the first company together with
// its default branch, opening financial year and admin user profile.
type Service interface {
	Setup(ctx context.Context, req SetupRequest) (SetupResponse, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Company, error)
	List(ctx context.Context) ([]Company, error)
	Update(ctx context.Context, req UpdateCompanyRequest) (*Company, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidMonth    = errors.New("invalid_fy_start_month")
	ErrNotFound        = errors.New("not_found")
	ErrAlreadySetup    = errors.New("already_setup")
)
