package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	branchdomain "github.com/karobar/karobar/internal/branch/domain"
	companydomain "github.com/karobar/karobar/internal/company/domain"
	fydomain "github.com/karobar/karobar/internal/financialyear/domain"
	"github.com/karobar/karobar/internal/quotation/domain"
	seqdomain "github.com/karobar/karobar/internal/sequence/domain"
	seqrepository "github.com/karobar/karobar/internal/sequence/repository"
	seqservice "github.com/karobar/karobar/internal/sequence/service"
	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type quotationFixture struct {
	service domain.Service
	db      *gorm.DB
	node    *snowflake.Node
	company companydomain.Company
	branch  branchdomain.Branch
	year    fydomain.FinancialYear
}

func setupQuotationService(t *testing.T) quotationFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	err = db.AutoMigrate(
		&companydomain.Company{},
		&branchdomain.Branch{},
		&fydomain.FinancialYear{},
		&seqdomain.DocumentSequence{},
		&domain.Quotation{},
		&versioning.Setting{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	company := companydomain.Company{ID: node.Generate(), Name: "Acme Traders", BaseCurrency: "INR", FYStartMonth: 4}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	branch := branchdomain.Branch{ID: node.Generate(), CompanyID: company.ID, Name: "HO", StateCode: "27"}
	if err := db.Create(&branch).Error; err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	start := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	year := fydomain.FinancialYear{
		ID:        node.Generate(),
		CompanyID: company.ID,
		YearCode:  fydomain.YearCode(start),
		StartDate: start,
		EndDate:   start.AddDate(1, 0, -1),
	}
	if err := db.Create(&year).Error; err != nil {
		t.Fatalf("seed year: %v", err)
	}

	tracker := versioning.NewTracker(zap.NewNop())
	tracker.SetMode(versioning.ModeConditional)
	sequences := seqservice.New(seqservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  seqrepository.Provide(),
	})

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.ProvideStore[domain.Quotation](db, tracker),
		Years:     repository.ProvideStore[fydomain.FinancialYear](db, tracker),
		Sequences: sequences,
	})

	return quotationFixture{
		service: svc,
		db:      db,
		node:    node,
		company: company,
		branch:  branch,
		year:    year,
	}
}

func (f quotationFixture) createRequest() domain.CreateQuotationRequest {
	return domain.CreateQuotationRequest{
		CompanyID:       f.company.ID,
		BranchID:        f.branch.ID,
		FinancialYearID: f.year.ID,
		CustomerName:    "Sharma Industries",
		TotalAmount:     125000,
	}
}

func TestCreateAssignsNumberAndDefaults(t *testing.T) {
	f := setupQuotationService(t)
	ctx := context.Background()

	quotation, err := f.service.Create(ctx, f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quotation.QuotationNo != "QTN-0001" {
		t.Fatalf("quotation_no = %q, want QTN-0001", quotation.QuotationNo)
	}
	if quotation.Status != domain.StatusDraft {
		t.Fatalf("status = %q, want draft", quotation.Status)
	}
	if quotation.Version != 1 {
		t.Fatalf("version = %d, want 1", quotation.Version)
	}
	if quotation.SyncStatus != versioning.SyncPending {
		t.Fatalf("sync_status = %q, want pending", quotation.SyncStatus)
	}

	second, err := f.service.Create(ctx, f.createRequest())
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.QuotationNo != "QTN-0002" {
		t.Fatalf("second quotation_no = %q, want QTN-0002", second.QuotationNo)
	}
}

func TestCreateRejectsLockedYear(t *testing.T) {
	f := setupQuotationService(t)
	ctx := context.Background()

	err := f.db.Model(&fydomain.FinancialYear{}).
		Where("id = ?", f.year.ID).
		Update("is_locked", true).Error
	if err != nil {
		t.Fatalf("lock year: %v", err)
	}

	if _, err := f.service.Create(ctx, f.createRequest()); !errors.Is(err, domain.ErrYearLocked) {
		t.Fatalf("err = %v, want ErrYearLocked", err)
	}

	// The rejected create burned nothing: the next one still gets the first number.
	err = f.db.Model(&fydomain.FinancialYear{}).
		Where("id = ?", f.year.ID).
		Update("is_locked", false).Error
	if err != nil {
		t.Fatalf("unlock year: %v", err)
	}
	quotation, err := f.service.Create(ctx, f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quotation.QuotationNo != "QTN-0001" {
		t.Fatalf("quotation_no = %q, want QTN-0001", quotation.QuotationNo)
	}
}

func TestUpdateOnlyTouchesDrafts(t *testing.T) {
	f := setupQuotationService(t)
	ctx := context.Background()

	quotation, err := f.service.Create(ctx, f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.service.Update(ctx, domain.UpdateQuotationRequest{
		ID:           quotation.ID,
		CustomerName: "Verma Exports",
		TotalAmount:  200000,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CustomerName != "Verma Exports" || updated.TotalAmount != 200000 {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.QuotationNo != quotation.QuotationNo {
		t.Fatalf("quotation_no rewritten from %q to %q", quotation.QuotationNo, updated.QuotationNo)
	}
	if updated.Version != 2 {
		t.Fatalf("version = %d, want 2", updated.Version)
	}

	if _, err := f.service.UpdateStatus(ctx, quotation.ID, domain.StatusSent); err != nil {
		t.Fatalf("send: %v", err)
	}
	_, err = f.service.Update(ctx, domain.UpdateQuotationRequest{ID: quotation.ID, CustomerName: "Late Edit"})
	if !errors.Is(err, domain.ErrDocumentImmutable) {
		t.Fatalf("err = %v, want ErrDocumentImmutable", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	f := setupQuotationService(t)
	ctx := context.Background()

	quotation, err := f.service.Create(ctx, f.createRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Draft cannot jump straight to accepted.
	if _, err := f.service.UpdateStatus(ctx, quotation.ID, domain.StatusAccepted); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("draft->accepted err = %v, want ErrInvalidTransition", err)
	}

	for _, next := range []domain.Status{domain.StatusSent, domain.StatusAccepted, domain.StatusConverted} {
		if _, err := f.service.UpdateStatus(ctx, quotation.ID, next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	// Converted is terminal.
	if _, err := f.service.UpdateStatus(ctx, quotation.ID, domain.StatusSent); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("converted->sent err = %v, want ErrInvalidTransition", err)
	}

	if _, err := f.service.UpdateStatus(ctx, quotation.ID, "bogus"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("bogus status err = %v, want ErrInvalidStatus", err)
	}
}
