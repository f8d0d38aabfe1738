package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	branchdomain "github.com/karobar/karobar/internal/branch/domain"
	companydomain "github.com/karobar/karobar/internal/company/domain"
	fydomain "github.com/karobar/karobar/internal/financialyear/domain"
	"github.com/karobar/karobar/internal/sequence/domain"
	"github.com/karobar/karobar/internal/sequence/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type scopeFixture struct {
	service *Service
	db      *gorm.DB
	node    *snowflake.Node
	key     domain.ScopeKey
}

func setupSequenceService(t *testing.T) scopeFixture {
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
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	err = db.AutoMigrate(
		&companydomain.Company{},
		&branchdomain.Branch{},
		&fydomain.FinancialYear{},
		&domain.DocumentSequence{},
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

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	}).(*Service)

	return scopeFixture{
		service: svc,
		db:      db,
		node:    node,
		key: domain.ScopeKey{
			CompanyID:       company.ID,
			BranchID:        branch.ID,
			DocumentType:    domain.DocumentTypeQuotation,
			FinancialYearID: year.ID,
		},
	}
}

func TestAllocateCreatesScopeLazily(t *testing.T) {
	f := setupSequenceService(t)
	ctx := context.Background()

	number, err := f.service.Allocate(ctx, nil, f.key)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if number != "QTN-0001" {
		t.Fatalf("first allocation = %q, want QTN-0001", number)
	}

	scopes, err := f.service.List(ctx, domain.ListScopesRequest{CompanyID: f.key.CompanyID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(scopes) != 1 {
		t.Fatalf("scope count = %d, want 1", len(scopes))
	}
	if scopes[0].CurrentNumber != 1 {
		t.Fatalf("current_number = %d, want 1", scopes[0].CurrentNumber)
	}
}

func TestAllocateSequentialNumbers(t *testing.T) {
	f := setupSequenceService(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		if _, err := f.service.Allocate(ctx, nil, f.key); err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
	}

	number, err := f.service.Allocate(ctx, nil, f.key)
	if err != nil {
		t.Fatalf("allocate 13: %v", err)
	}
	if number != "QTN-0013" {
		t.Fatalf("13th allocation = %q, want QTN-0013", number)
	}
}

func TestAllocateConcurrentDistinctNumbers(t *testing.T) {
	f := setupSequenceService(t)
	ctx := context.Background()

	// Prime the scope so concurrent callers race only on the counter.
	if _, err := f.service.Allocate(ctx, nil, f.key); err != nil {
		t.Fatalf("prime: %v", err)
	}

	const workers = 20
	var (
		mu      sync.Mutex
		numbers []string
		wg      sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.db.Transaction(func(tx *gorm.DB) error {
				number, err := f.service.Allocate(ctx, tx, f.key)
				if err != nil {
					return err
				}
				mu.Lock()
				numbers = append(numbers, number)
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("allocate: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, len(numbers))
	for _, number := range numbers {
		if seen[number] {
			t.Fatalf("duplicate number issued: %s", number)
		}
		seen[number] = true
	}
	sort.Strings(numbers)
	if len(numbers) != workers {
		t.Fatalf("issued %d numbers, want %d", len(numbers), workers)
	}
	if numbers[0] != "QTN-0002" || numbers[len(numbers)-1] != fmt.Sprintf("QTN-%04d", workers+1) {
		t.Fatalf("numbers not contiguous: first %s last %s", numbers[0], numbers[len(numbers)-1])
	}
}

func TestAllocatePadOverflowWidens(t *testing.T) {
	f := setupSequenceService(t)
	ctx := context.Background()

	if _, err := f.service.Allocate(ctx, nil, f.key); err != nil {
		t.Fatalf("prime: %v", err)
	}
	err := f.db.Exec(`UPDATE document_sequences SET current_number = 9999`).Error
	if err != nil {
		t.Fatalf("bump counter: %v", err)
	}

	number, err := f.service.Allocate(ctx, nil, f.key)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if number != "QTN-10000" {
		t.Fatalf("overflow allocation = %q, want QTN-10000", number)
	}
}

func TestAllocateRejectsInvalidScope(t *testing.T) {
	f := setupSequenceService(t)
	ctx := context.Background()

	bad := f.key
	bad.BranchID = f.node.Generate()
	if _, err := f.service.Allocate(ctx, nil, bad); !errors.Is(err, domain.ErrScopeInvalid) {
		t.Fatalf("unknown branch err = %v, want ErrScopeInvalid", err)
	}

	bad = f.key
	bad.DocumentType = "unknown_type"
	if _, err := f.service.Allocate(ctx, nil, bad); !errors.Is(err, domain.ErrScopeInvalid) {
		t.Fatalf("unknown type err = %v, want ErrScopeInvalid", err)
	}

	bad = f.key
	bad.CompanyID = 0
	if _, err := f.service.Allocate(ctx, nil, bad); !errors.Is(err, domain.ErrScopeInvalid) {
		t.Fatalf("zero company err = %v, want ErrScopeInvalid", err)
	}
}

func TestAllocateRolledBackNumberIsReissued(t *testing.T) {
	f := setupSequenceService(t)
	ctx := context.Background()

	var aborted string
	err := f.db.Transaction(func(tx *gorm.DB) error {
		number, err := f.service.Allocate(ctx, tx, f.key)
		if err != nil {
			return err
		}
		aborted = number
		return errors.New("business write failed")
	})
	if err == nil {
		t.Fatal("transaction should have rolled back")
	}
	if aborted != "QTN-0001" {
		t.Fatalf("aborted allocation = %q, want QTN-0001", aborted)
	}

	number, err := f.service.Allocate(ctx, nil, f.key)
	if err != nil {
		t.Fatalf("allocate after rollback: %v", err)
	}
	if number != aborted {
		t.Fatalf("number after rollback = %q, want %q reissued", number, aborted)
	}
}

func TestUpdateFormatAppliesForward(t *testing.T) {
	f := setupSequenceService(t)
	ctx := context.Background()

	if _, err := f.service.Allocate(ctx, nil, f.key); err != nil {
		t.Fatalf("prime: %v", err)
	}
	scopes, err := f.service.List(ctx, domain.ListScopesRequest{CompanyID: f.key.CompanyID})
	if err != nil || len(scopes) != 1 {
		t.Fatalf("list: %v (%d scopes)", err, len(scopes))
	}

	updated, err := f.service.UpdateFormat(ctx, domain.UpdateFormatRequest{
		ScopeID:   scopes[0].ID,
		Prefix:    "QUO/",
		PadLength: 6,
	})
	if err != nil {
		t.Fatalf("update format: %v", err)
	}
	if updated.CurrentNumber != 1 {
		t.Fatalf("format change moved counter to %d", updated.CurrentNumber)
	}

	number, err := f.service.Allocate(ctx, nil, f.key)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if number != "QUO/000002" {
		t.Fatalf("allocation after format change = %q, want QUO/000002", number)
	}
}

func TestUpdateFormatValidation(t *testing.T) {
	f := setupSequenceService(t)
	ctx := context.Background()

	_, err := f.service.UpdateFormat(ctx, domain.UpdateFormatRequest{
		ScopeID:   f.node.Generate(),
		Prefix:    "",
		PadLength: 4,
	})
	if !errors.Is(err, domain.ErrConstraintViolation) {
		t.Fatalf("empty prefix err = %v, want ErrConstraintViolation", err)
	}

	_, err = f.service.UpdateFormat(ctx, domain.UpdateFormatRequest{
		ScopeID:   f.node.Generate(),
		Prefix:    "X-",
		PadLength: 4,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing scope err = %v, want ErrNotFound", err)
	}
}

func TestRetireStopsAllocationForScope(t *testing.T) {
	f := setupSequenceService(t)
	ctx := context.Background()

	if _, err := f.service.Allocate(ctx, nil, f.key); err != nil {
		t.Fatalf("prime: %v", err)
	}
	scopes, err := f.service.List(ctx, domain.ListScopesRequest{CompanyID: f.key.CompanyID})
	if err != nil || len(scopes) != 1 {
		t.Fatalf("list: %v (%d scopes)", err, len(scopes))
	}

	if err := f.service.Retire(ctx, scopes[0].ID); err != nil {
		t.Fatalf("retire: %v", err)
	}

	// A retired stream stays retired; the next allocation opens a fresh scope
	// starting from 1 rather than resuming the old counter.
	number, err := f.service.Allocate(ctx, nil, f.key)
	if err != nil {
		t.Fatalf("allocate after retire: %v", err)
	}
	if number != "QTN-0001" {
		t.Fatalf("allocation after retire = %q, want QTN-0001", number)
	}

	if err := f.service.Retire(ctx, scopes[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("double retire err = %v, want ErrNotFound", err)
	}
}

func TestNewYearStartsFreshStream(t *testing.T) {
	f := setupSequenceService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.service.Allocate(ctx, nil, f.key); err != nil {
			t.Fatalf("allocate: %v", err)
		}
	}

	start := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	nextYear := fydomain.FinancialYear{
		ID:        f.node.Generate(),
		CompanyID: f.key.CompanyID,
		YearCode:  fydomain.YearCode(start),
		StartDate: start,
		EndDate:   start.AddDate(1, 0, -1),
	}
	if err := f.db.Create(&nextYear).Error; err != nil {
		t.Fatalf("seed next year: %v", err)
	}

	nextKey := f.key
	nextKey.FinancialYearID = nextYear.ID
	number, err := f.service.Allocate(ctx, nil, nextKey)
	if err != nil {
		t.Fatalf("allocate next year: %v", err)
	}
	if number != "QTN-0001" {
		t.Fatalf("first allocation of new year = %q, want QTN-0001", number)
	}

	// The old year's stream is untouched.
	number, err = f.service.Allocate(ctx, nil, f.key)
	if err != nil {
		t.Fatalf("allocate old year: %v", err)
	}
	if number != "QTN-0004" {
		t.Fatalf("old year allocation = %q, want QTN-0004", number)
	}
}
