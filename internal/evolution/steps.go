package evolution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	sequencedomain "github.com/karobar/karobar/internal/sequence/domain"
	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// prefixMapping rewrites one exact legacy prefix to its normalized form.
// LegacyPadLength is what the down step restores; the legacy formats used a
// wider pad than the normalized ones, so the inverse is recorded explicitly
// instead of being derived from the forward mapping.
type prefixMapping struct {
	OldPrefix       string
	NewPrefix       string
	PadLength       int
	LegacyPadLength int
}

var prefixMappings = []prefixMapping{
	{OldPrefix: "QT/", NewPrefix: "QTN-", PadLength: 4, LegacyPadLength: 5},
	{OldPrefix: "SO/", NewPrefix: "SO-", PadLength: 4, LegacyPadLength: 5},
}

// Document types admitted by the base schema constraint. Later steps widen
// this set; their inverses narrow it back.
var baseDocumentTypes = []sequencedomain.DocumentType{
	sequencedomain.DocumentTypeQuotation,
	sequencedomain.DocumentTypeSalesOrder,
	sequencedomain.DocumentTypeInvoice,
	sequencedomain.DocumentTypeCreditNote,
	sequencedomain.DocumentTypePurchaseOrder,
	sequencedomain.DocumentTypeGoodsReceiptNote,
	sequencedomain.DocumentTypeVendorBill,
	sequencedomain.DocumentTypeDebitNote,
	sequencedomain.DocumentTypeWorkOrder,
	sequencedomain.DocumentTypePurchaseRequisition,
}

// Steps returns every evolution step in its fixed order.
func Steps(genID *snowflake.Node) []Step {
	withDeliveryChallan := append(append([]sequencedomain.DocumentType{}, baseDocumentTypes...),
		sequencedomain.DocumentTypeDeliveryChallan)
	withPaymentDocs := append(append([]sequencedomain.DocumentType{}, withDeliveryChallan...),
		sequencedomain.DocumentTypePaymentReceipt,
		sequencedomain.DocumentTypePaymentMade)

	return []Step{
		{
			Version: 1,
			Name:    "normalize_sequence_prefixes",
			Up:      normalizePrefixesUp,
			Down:    normalizePrefixesDown,
		},
		newDocumentTypeStep(documentTypeIntro{
			Version:       2,
			Name:          "introduce_delivery_challan",
			GenID:         genID,
			NewTypes:      []sequencedomain.DocumentType{sequencedomain.DocumentTypeDeliveryChallan},
			ReferenceType: sequencedomain.DocumentTypeQuotation,
			Allowed:       withDeliveryChallan,
			Previous:      baseDocumentTypes,
		}),
		newDocumentTypeStep(documentTypeIntro{
			Version:       3,
			Name:          "introduce_payment_documents",
			GenID:         genID,
			NewTypes:      []sequencedomain.DocumentType{sequencedomain.DocumentTypePaymentReceipt, sequencedomain.DocumentTypePaymentMade},
			ReferenceType: sequencedomain.DocumentTypeInvoice,
			Allowed:       withPaymentDocs,
			Previous:      withDeliveryChallan,
		}),
		{
			Version: 4,
			Name:    "conditional_sync_touch",
			Up: func(ctx context.Context, tx *gorm.DB) error {
				return writeTrackerMode(ctx, tx, versioning.ModeConditional)
			},
			Down: func(ctx context.Context, tx *gorm.DB) error {
				return writeTrackerMode(ctx, tx, versioning.ModeUnconditional)
			},
		},
	}
}

// normalizePrefixesUp rewrites each known legacy prefix to its normalized
// form. Only rows whose prefix matches the old value exactly are touched; a
// rerun against already-normalized data is a no-op.
func normalizePrefixesUp(ctx context.Context, tx *gorm.DB) error {
	for _, mapping := range prefixMappings {
		err := tx.WithContext(ctx).Exec(
			`UPDATE document_sequences
			 SET prefix_pattern = ?, pad_length = ?, updated_at = ?
			 WHERE prefix_pattern = ?`,
			mapping.NewPrefix,
			mapping.PadLength,
			time.Now().UTC(),
			mapping.OldPrefix,
		).Error
		if err != nil {
			return fmt.Errorf("rewrite prefix %q: %w", mapping.OldPrefix, err)
		}
	}
	return nil
}

func normalizePrefixesDown(ctx context.Context, tx *gorm.DB) error {
	seen := make(map[string]bool, len(prefixMappings))
	for _, mapping := range prefixMappings {
		if seen[mapping.NewPrefix] {
			return fmt.Errorf("%w: prefix %q has more than one reverse mapping", ErrMigrationIrreversible, mapping.NewPrefix)
		}
		seen[mapping.NewPrefix] = true
	}

	for _, mapping := range prefixMappings {
		err := tx.WithContext(ctx).Exec(
			`UPDATE document_sequences
			 SET prefix_pattern = ?, pad_length = ?, updated_at = ?
			 WHERE prefix_pattern = ?`,
			mapping.OldPrefix,
			mapping.LegacyPadLength,
			time.Now().UTC(),
			mapping.NewPrefix,
		).Error
		if err != nil {
			return fmt.Errorf("restore prefix %q: %w", mapping.OldPrefix, err)
		}
	}
	return nil
}

type documentTypeIntro struct {
	Version       int
	Name          string
	GenID         *snowflake.Node
	NewTypes      []sequencedomain.DocumentType
	ReferenceType sequencedomain.DocumentType
	Allowed       []sequencedomain.DocumentType
	Previous      []sequencedomain.DocumentType
}

// newDocumentTypeStep widens the document_type constraint and backfills one
// live scope per (company, branch, financial year) that already has a live
// scope of the reference type. The backfill is idempotent: keys that already
// have a live scope of the new type are skipped, so a rerun creates nothing.
func newDocumentTypeStep(intro documentTypeIntro) Step {
	return Step{
		Version: intro.Version,
		Name:    intro.Name,
		Up: func(ctx context.Context, tx *gorm.DB) error {
			if err := setDocumentTypeConstraint(ctx, tx, intro.Allowed); err != nil {
				return err
			}
			for _, newType := range intro.NewTypes {
				if err := backfillScopes(ctx, tx, intro.GenID, newType, intro.ReferenceType); err != nil {
					return err
				}
			}
			return nil
		},
		Down: func(ctx context.Context, tx *gorm.DB) error {
			for _, newType := range intro.NewTypes {
				err := tx.WithContext(ctx).Exec(
					`DELETE FROM document_sequences WHERE document_type = ?`,
					newType,
				).Error
				if err != nil {
					return fmt.Errorf("remove %s scopes: %w", newType, err)
				}
			}
			return setDocumentTypeConstraint(ctx, tx, intro.Previous)
		},
	}
}

func backfillScopes(ctx context.Context, tx *gorm.DB, genID *snowflake.Node, newType, refType sequencedomain.DocumentType) error {
	format, ok := sequencedomain.DefaultFormats[newType]
	if !ok {
		return fmt.Errorf("no default format for document type %s", newType)
	}

	var refs []sequencedomain.DocumentSequence
	err := tx.WithContext(ctx).
		Where("document_type = ? AND is_deleted = ?", refType, false).
		Find(&refs).Error
	if err != nil {
		return fmt.Errorf("load %s reference scopes: %w", refType, err)
	}

	now := time.Now().UTC()
	for _, ref := range refs {
		var existing int64
		err := tx.WithContext(ctx).
			Model(&sequencedomain.DocumentSequence{}).
			Where("company_id = ? AND branch_id = ? AND financial_year_id = ? AND document_type = ? AND is_deleted = ?",
				ref.CompanyID, ref.BranchID, ref.FinancialYearID, newType, false).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("check existing %s scope: %w", newType, err)
		}
		if existing > 0 {
			continue
		}

		scope := sequencedomain.DocumentSequence{
			ID:              genID.Generate(),
			CompanyID:       ref.CompanyID,
			BranchID:        ref.BranchID,
			DocumentType:    newType,
			FinancialYearID: ref.FinancialYearID,
			Prefix:          format.Prefix,
			PadLength:       format.PadLength,
			CurrentNumber:   0,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.WithContext(ctx).Create(&scope).Error; err != nil {
			return fmt.Errorf("backfill %s scope: %w", newType, err)
		}
	}
	return nil
}

// setDocumentTypeConstraint rebuilds the closed CHECK constraint on postgres.
// sqlite cannot alter constraints in place; there the Go enumeration is the
// only boundary, which the application enforces on every write anyway.
func setDocumentTypeConstraint(ctx context.Context, tx *gorm.DB, allowed []sequencedomain.DocumentType) error {
	if !db.IsPostgres(tx) {
		return nil
	}

	err := tx.WithContext(ctx).Exec(
		`ALTER TABLE document_sequences DROP CONSTRAINT IF EXISTS chk_document_sequences_document_type`,
	).Error
	if err != nil {
		return fmt.Errorf("drop document_type constraint: %w", err)
	}

	quoted := make([]string, 0, len(allowed))
	for _, docType := range allowed {
		quoted = append(quoted, "'"+string(docType)+"'")
	}
	err = tx.WithContext(ctx).Exec(fmt.Sprintf(
		`ALTER TABLE document_sequences
		 ADD CONSTRAINT chk_document_sequences_document_type
		 CHECK (document_type IN (%s))`,
		strings.Join(quoted, ", "),
	)).Error
	if err != nil {
		return fmt.Errorf("add document_type constraint: %w", err)
	}
	return nil
}

func writeTrackerMode(ctx context.Context, tx *gorm.DB, mode versioning.Mode) error {
	setting := versioning.Setting{
		Key:   versioning.SyncTouchModeKey,
		Value: string(mode),
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&setting).Error
}
