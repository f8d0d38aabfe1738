package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	branchdomain "github.com/karobar/karobar/internal/branch/domain"
	"github.com/karobar/karobar/internal/company/domain"
	fydomain "github.com/karobar/karobar/internal/financialyear/domain"
	userdomain "github.com/karobar/karobar/internal/user/domain"
	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCompanyService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	err = db.AutoMigrate(
		&domain.Company{},
		&branchdomain.Branch{},
		&fydomain.FinancialYear{},
		&userdomain.User{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	tracker := versioning.NewTracker(zap.NewNop())
	tracker.SetMode(versioning.ModeConditional)
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.ProvideStore[domain.Company](db, tracker),
		Branches: repository.ProvideStore[branchdomain.Branch](db, tracker),
		Years:    repository.ProvideStore[fydomain.FinancialYear](db, tracker),
		Users:    repository.ProvideStore[userdomain.User](db, tracker),
	})
	return svc, db
}

func TestSetupCreatesCompanyBranchYearAndAdmin(t *testing.T) {
	svc, db := setupCompanyService(t)
	ctx := context.Background()

	resp, err := svc.Setup(ctx, domain.SetupRequest{
		Name:         "  Acme Traders  ",
		BaseCurrency: "inr",
		FYStartMonth: 4,
		AdminEmail:   "Admin@Karobar.Local",
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme Traders", resp.Company.Name)
	assert.Equal(t, "INR", resp.Company.BaseCurrency)
	assert.Equal(t, int64(1), resp.Company.Version)

	var branch branchdomain.Branch
	require.NoError(t, db.First(&branch, "id = ?", resp.BranchID).Error)
	assert.Equal(t, "Head Office", branch.Name)
	assert.Equal(t, resp.Company.ID, branch.CompanyID)

	// The opening year starts in the configured month and contains today.
	var year fydomain.FinancialYear
	require.NoError(t, db.First(&year, "id = ?", resp.FinancialYearID).Error)
	assert.Equal(t, time.April, year.StartDate.Month())
	now := time.Now().UTC()
	assert.False(t, now.Before(year.StartDate), "opening year starts in the future")
	assert.False(t, now.After(year.EndDate.AddDate(0, 0, 1)), "opening year already over")

	var admin userdomain.User
	require.NoError(t, db.First(&admin, "id = ?", resp.AdminUserID).Error)
	assert.Equal(t, "admin@karobar.local", admin.Email)
	assert.Equal(t, "admin", admin.Role)
	assert.Equal(t, "Administrator", admin.Name)
}

func TestSetupIsSingleShot(t *testing.T) {
	svc, _ := setupCompanyService(t)
	ctx := context.Background()

	_, err := svc.Setup(ctx, domain.SetupRequest{Name: "First Co", AdminEmail: "a@b.c"})
	require.NoError(t, err)

	_, err = svc.Setup(ctx, domain.SetupRequest{Name: "Second Co", AdminEmail: "x@y.z"})
	require.ErrorIs(t, err, domain.ErrAlreadySetup)
}

func TestSetupValidation(t *testing.T) {
	svc, db := setupCompanyService(t)
	ctx := context.Background()

	_, err := svc.Setup(ctx, domain.SetupRequest{Name: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Setup(ctx, domain.SetupRequest{Name: "Acme", BaseCurrency: "RUPEES"})
	require.ErrorIs(t, err, domain.ErrInvalidCurrency)

	_, err = svc.Setup(ctx, domain.SetupRequest{Name: "Acme", FYStartMonth: 13})
	require.ErrorIs(t, err, domain.ErrInvalidMonth)

	// Failed attempts leave nothing behind.
	var count int64
	require.NoError(t, db.Model(&domain.Company{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateCompanyBumpsVersion(t *testing.T) {
	svc, _ := setupCompanyService(t)
	ctx := context.Background()

	resp, err := svc.Setup(ctx, domain.SetupRequest{Name: "Acme Traders", AdminEmail: "a@b.c"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, domain.UpdateCompanyRequest{
		ID:    resp.Company.ID,
		Name:  "Acme Trading Co",
		GSTIN: "27aapfu0939f1zv",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Trading Co", updated.Name)
	assert.Equal(t, "27AAPFU0939F1ZV", updated.GSTIN)
	assert.Equal(t, int64(2), updated.Version)

	_, err = svc.Update(ctx, domain.UpdateCompanyRequest{ID: 999})
	require.ErrorIs(t, err, domain.ErrNotFound)
}
