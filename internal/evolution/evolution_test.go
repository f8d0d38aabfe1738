package evolution

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	sequencedomain "github.com/karobar/karobar/internal/sequence/domain"
	"github.com/karobar/karobar/internal/versioning"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupEvolutionDB(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
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

	if err := db.AutoMigrate(&sequencedomain.DocumentSequence{}, &versioning.Setting{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return db, node
}

func seedScope(t *testing.T, db *gorm.DB, node *snowflake.Node, docType sequencedomain.DocumentType, prefix string, pad int, current int64) sequencedomain.DocumentSequence {
	t.Helper()

	now := time.Now().UTC()
	scope := sequencedomain.DocumentSequence{
		ID:              node.Generate(),
		CompanyID:       1001,
		BranchID:        2001,
		DocumentType:    docType,
		FinancialYearID: 3001,
		Prefix:          prefix,
		PadLength:       pad,
		CurrentNumber:   current,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := db.Create(&scope).Error; err != nil {
		t.Fatalf("seed scope: %v", err)
	}
	return scope
}

func TestPrefixNormalizationUpAndDown(t *testing.T) {
	db, node := setupEvolutionDB(t)
	ctx := context.Background()

	legacy := seedScope(t, db, node, sequencedomain.DocumentTypeQuotation, "QT/", 5, 42)
	untouched := seedScope(t, db, node, sequencedomain.DocumentTypeInvoice, "INV-", 4, 7)

	runner := NewRunner(db, zap.NewNop(), []Step{
		{Version: 1, Name: "normalize_sequence_prefixes", Up: normalizePrefixesUp, Down: normalizePrefixesDown},
	})
	if err := runner.Up(ctx); err != nil {
		t.Fatalf("up: %v", err)
	}

	var migrated sequencedomain.DocumentSequence
	if err := db.First(&migrated, "id = ?", legacy.ID).Error; err != nil {
		t.Fatalf("read scope: %v", err)
	}
	if migrated.Prefix != "QTN-" || migrated.PadLength != 4 {
		t.Fatalf("migrated = %q pad %d, want QTN- pad 4", migrated.Prefix, migrated.PadLength)
	}
	if migrated.CurrentNumber != 42 {
		t.Fatalf("counter moved to %d during prefix rewrite", migrated.CurrentNumber)
	}

	var other sequencedomain.DocumentSequence
	if err := db.First(&other, "id = ?", untouched.ID).Error; err != nil {
		t.Fatalf("read scope: %v", err)
	}
	if other.Prefix != "INV-" || other.PadLength != 4 {
		t.Fatalf("unrelated scope rewritten to %q pad %d", other.Prefix, other.PadLength)
	}

	// Down restores the exact legacy shape, including the wider pad.
	if err := runner.Down(ctx, 0); err != nil {
		t.Fatalf("down: %v", err)
	}
	if err := db.First(&migrated, "id = ?", legacy.ID).Error; err != nil {
		t.Fatalf("read scope: %v", err)
	}
	if migrated.Prefix != "QT/" || migrated.PadLength != 5 {
		t.Fatalf("restored = %q pad %d, want QT/ pad 5", migrated.Prefix, migrated.PadLength)
	}
}

func TestPrefixNormalizationRerunIsNoop(t *testing.T) {
	db, node := setupEvolutionDB(t)
	ctx := context.Background()

	seedScope(t, db, node, sequencedomain.DocumentTypeQuotation, "QT/", 5, 10)

	if err := normalizePrefixesUp(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := normalizePrefixesUp(ctx, db); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var count int64
	err := db.Model(&sequencedomain.DocumentSequence{}).
		Where("prefix_pattern = ?", "QTN-").
		Count(&count).Error
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("normalized scopes = %d, want 1", count)
	}
}

func TestDocumentTypeBackfillIsIdempotent(t *testing.T) {
	db, node := setupEvolutionDB(t)
	ctx := context.Background()

	seedScope(t, db, node, sequencedomain.DocumentTypeQuotation, "QTN-", 4, 15)

	if err := backfillScopes(ctx, db, node, sequencedomain.DocumentTypeDeliveryChallan, sequencedomain.DocumentTypeQuotation); err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if err := backfillScopes(ctx, db, node, sequencedomain.DocumentTypeDeliveryChallan, sequencedomain.DocumentTypeQuotation); err != nil {
		t.Fatalf("rerun backfill: %v", err)
	}

	var scopes []sequencedomain.DocumentSequence
	err := db.Where("document_type = ?", sequencedomain.DocumentTypeDeliveryChallan).Find(&scopes).Error
	if err != nil {
		t.Fatalf("read scopes: %v", err)
	}
	if len(scopes) != 1 {
		t.Fatalf("backfilled scopes = %d, want 1", len(scopes))
	}
	if scopes[0].Prefix != "DC-" || scopes[0].PadLength != 4 || scopes[0].CurrentNumber != 0 {
		t.Fatalf("backfilled scope = %q pad %d counter %d, want DC- pad 4 counter 0",
			scopes[0].Prefix, scopes[0].PadLength, scopes[0].CurrentNumber)
	}
}

func TestFullStepSequenceAndTrackerMode(t *testing.T) {
	db, node := setupEvolutionDB(t)
	ctx := context.Background()

	seedScope(t, db, node, sequencedomain.DocumentTypeQuotation, "QT/", 5, 3)
	seedScope(t, db, node, sequencedomain.DocumentTypeInvoice, "INV-", 4, 8)

	runner := NewRunner(db, zap.NewNop(), Steps(node))
	if err := runner.Up(ctx); err != nil {
		t.Fatalf("up: %v", err)
	}

	// Step 4 persists the conditional touch mode.
	tracker := versioning.NewTracker(zap.NewNop())
	tracker.SetMode(versioning.ModeUnconditional)
	if err := tracker.LoadMode(ctx, db); err != nil {
		t.Fatalf("load mode: %v", err)
	}
	if tracker.Mode() != versioning.ModeConditional {
		t.Fatalf("mode = %q, want conditional after step 4", tracker.Mode())
	}

	// Steps 2 and 3 backfill one scope per new type next to the references.
	for _, docType := range []sequencedomain.DocumentType{
		sequencedomain.DocumentTypeDeliveryChallan,
		sequencedomain.DocumentTypePaymentReceipt,
		sequencedomain.DocumentTypePaymentMade,
	} {
		var count int64
		err := db.Model(&sequencedomain.DocumentSequence{}).
			Where("document_type = ?", docType).
			Count(&count).Error
		if err != nil {
			t.Fatalf("count %s: %v", docType, err)
		}
		if count != 1 {
			t.Fatalf("%s scopes = %d, want 1", docType, count)
		}
	}

	// A rerun applies nothing new.
	if err := runner.Up(ctx); err != nil {
		t.Fatalf("rerun up: %v", err)
	}
	var ledger int64
	if err := db.Model(&AppliedStep{}).Count(&ledger).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if ledger != int64(len(Steps(node))) {
		t.Fatalf("ledger entries = %d, want %d", ledger, len(Steps(node)))
	}

	// Full revert restores the legacy dataset and mode.
	if err := runner.Down(ctx, 0); err != nil {
		t.Fatalf("down: %v", err)
	}
	var legacy sequencedomain.DocumentSequence
	err := db.First(&legacy, "document_type = ?", sequencedomain.DocumentTypeQuotation).Error
	if err != nil {
		t.Fatalf("read quotation scope: %v", err)
	}
	if legacy.Prefix != "QT/" || legacy.PadLength != 5 || legacy.CurrentNumber != 3 {
		t.Fatalf("reverted scope = %q pad %d counter %d, want QT/ pad 5 counter 3",
			legacy.Prefix, legacy.PadLength, legacy.CurrentNumber)
	}

	var remaining int64
	err = db.Model(&sequencedomain.DocumentSequence{}).
		Where("document_type IN ?", []sequencedomain.DocumentType{
			sequencedomain.DocumentTypeDeliveryChallan,
			sequencedomain.DocumentTypePaymentReceipt,
			sequencedomain.DocumentTypePaymentMade,
		}).
		Count(&remaining).Error
	if err != nil {
		t.Fatalf("count new types: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("reverted dataset still holds %d new-type scopes", remaining)
	}

	if err := tracker.LoadMode(ctx, db); err != nil {
		t.Fatalf("load mode after down: %v", err)
	}
	if tracker.Mode() != versioning.ModeUnconditional {
		t.Fatalf("mode = %q, want unconditional after full revert", tracker.Mode())
	}
}

func TestDownRefusesAmbiguousReverseMapping(t *testing.T) {
	db, node := setupEvolutionDB(t)
	ctx := context.Background()

	seedScope(t, db, node, sequencedomain.DocumentTypeQuotation, "QTN-", 4, 1)

	original := prefixMappings
	prefixMappings = []prefixMapping{
		{OldPrefix: "QT/", NewPrefix: "QTN-", PadLength: 4, LegacyPadLength: 5},
		{OldPrefix: "QUO/", NewPrefix: "QTN-", PadLength: 4, LegacyPadLength: 5},
	}
	defer func() { prefixMappings = original }()

	err := normalizePrefixesDown(ctx, db)
	if !errors.Is(err, ErrMigrationIrreversible) {
		t.Fatalf("err = %v, want ErrMigrationIrreversible", err)
	}
}
