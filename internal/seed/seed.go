package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	branchdomain "github.com/karobar/karobar/internal/branch/domain"
	companydomain "github.com/karobar/karobar/internal/company/domain"
	fydomain "github.com/karobar/karobar/internal/financialyear/domain"
	userdomain "github.com/karobar/karobar/internal/user/domain"
	"gorm.io/gorm"
)

const (
	demoCompanyName = "Demo Traders"
	demoBranchName  = "Head Office"
	demoBranchState = "27"
	demoAdminEmail  = "admin@karobar.local"
	demoAdminName   = "Karobar Admin"
)

// EnsureDemoCompany seeds a ready-to-use company with a branch, the current
// financial year and an admin profile. Every lookup is by natural key, so a
// rerun on an already-seeded database changes nothing.
func EnsureDemoCompany(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := ensureCompanyTx(ctx, tx, node)
		if err != nil {
			return err
		}
		branch, err := ensureBranchTx(ctx, tx, node, company.ID)
		if err != nil {
			return err
		}
		if _, err := ensureFinancialYearTx(ctx, tx, node, company); err != nil {
			return err
		}
		return ensureAdminTx(ctx, tx, node, company.ID, branch.ID)
	})
}

func ensureCompanyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (companydomain.Company, error) {
	var company companydomain.Company
	err := tx.WithContext(ctx).Where("name = ?", demoCompanyName).First(&company).Error
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return company, err
	}

	now := time.Now().UTC()
	company = companydomain.Company{
		ID:           node.Generate(),
		Name:         demoCompanyName,
		BaseCurrency: "INR",
		FYStartMonth: int(time.April),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	company.Version = 1
	if err := tx.WithContext(ctx).Create(&company).Error; err != nil {
		return company, err
	}
	return company, nil
}

func ensureBranchTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID snowflake.ID) (branchdomain.Branch, error) {
	var branch branchdomain.Branch
	err := tx.WithContext(ctx).
		Where("company_id = ? AND name = ?", companyID, demoBranchName).
		First(&branch).Error
	if err == nil {
		return branch, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return branch, err
	}

	now := time.Now().UTC()
	branch = branchdomain.Branch{
		ID:        node.Generate(),
		CompanyID: companyID,
		Name:      demoBranchName,
		StateCode: demoBranchState,
		CreatedAt: now,
		UpdatedAt: now,
	}
	branch.Version = 1
	if err := tx.WithContext(ctx).Create(&branch).Error; err != nil {
		return branch, err
	}
	return branch, nil
}

func ensureFinancialYearTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, company companydomain.Company) (fydomain.FinancialYear, error) {
	now := time.Now().UTC()
	startYear := now.Year()
	if int(now.Month()) < company.FYStartMonth {
		startYear--
	}
	start := time.Date(startYear, time.Month(company.FYStartMonth), 1, 0, 0, 0, 0, time.UTC)

	var year fydomain.FinancialYear
	err := tx.WithContext(ctx).
		Where("company_id = ? AND year_code = ?", company.ID, fydomain.YearCode(start)).
		First(&year).Error
	if err == nil {
		return year, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return year, err
	}

	year = fydomain.FinancialYear{
		ID:        node.Generate(),
		CompanyID: company.ID,
		YearCode:  fydomain.YearCode(start),
		StartDate: start,
		EndDate:   start.AddDate(1, 0, -1),
		CreatedAt: now,
		UpdatedAt: now,
	}
	year.Version = 1
	if err := tx.WithContext(ctx).Create(&year).Error; err != nil {
		return year, err
	}
	return year, nil
}

func ensureAdminTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID, branchID snowflake.ID) error {
	var user userdomain.User
	err := tx.WithContext(ctx).
		Where("company_id = ? AND email = ?", companyID, strings.ToLower(demoAdminEmail)).
		First(&user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	user = userdomain.User{
		ID:        node.Generate(),
		CompanyID: companyID,
		BranchID:  branchID,
		Name:      demoAdminName,
		Email:     strings.ToLower(demoAdminEmail),
		Role:      "admin",
		CreatedAt: now,
		UpdatedAt: now,
	}
	user.Version = 1
	return tx.WithContext(ctx).Create(&user).Error
}
