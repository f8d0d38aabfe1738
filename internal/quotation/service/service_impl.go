package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	fydomain "github.com/karobar/karobar/internal/financialyear/domain"
	"github.com/karobar/karobar/internal/quotation/domain"
	seqdomain "github.com/karobar/karobar/internal/sequence/domain"
	"github.com/karobar/karobar/pkg/db/option"
	"github.com/karobar/karobar/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      repository.Repository[domain.Quotation]
	Years     repository.Repository[fydomain.FinancialYear]
	Sequences seqdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      repository.Repository[domain.Quotation]
	years     repository.Repository[fydomain.FinancialYear]
	sequences seqdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("quotation.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		years:     p.Years,
		sequences: p.Sequences,
	}
}

// Create numbers and persists a quotation in one transaction. The number is
// allocated inside the same transaction as the row insert, so a failed insert
// rolls the counter back and the number is reissued to the next caller.
func (s *Service) Create(ctx context.Context, req domain.CreateQuotationRequest) (*domain.Quotation, error) {
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, domain.ErrInvalidCustomer
	}

	year, err := s.years.FindOne(ctx, &fydomain.FinancialYear{ID: req.FinancialYearID})
	if err != nil {
		return nil, err
	}
	if year == nil || year.IsDeleted {
		return nil, domain.ErrNotFound
	}
	if year.IsLocked {
		return nil, domain.ErrYearLocked
	}

	var quotation *domain.Quotation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.sequences.Allocate(ctx, tx, seqdomain.ScopeKey{
			CompanyID:       req.CompanyID,
			BranchID:        req.BranchID,
			DocumentType:    seqdomain.DocumentTypeQuotation,
			FinancialYearID: req.FinancialYearID,
		})
		if err != nil {
			return err
		}

		quotation = &domain.Quotation{
			ID:              s.genID.Generate(),
			CompanyID:       req.CompanyID,
			BranchID:        req.BranchID,
			FinancialYearID: req.FinancialYearID,
			QuotationNo:     number,
			CustomerName:    strings.TrimSpace(req.CustomerName),
			Status:          domain.StatusDraft,
			Items:           req.Items,
			TotalAmount:     req.TotalAmount,
			ValidUntil:      req.ValidUntil,
		}
		return s.repo.WithTrx(tx).Create(ctx, quotation)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quotation created",
		zap.Int64("quotation_id", int64(quotation.ID)),
		zap.String("quotation_no", quotation.QuotationNo),
	)
	return quotation, nil
}

// Update edits a draft quotation's content. The quotation number is
// immutable; non-draft quotations reject edits entirely.
func (s *Service) Update(ctx context.Context, req domain.UpdateQuotationRequest) (*domain.Quotation, error) {
	quotation, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if quotation.Status != domain.StatusDraft {
		return nil, domain.ErrDocumentImmutable
	}

	if name := strings.TrimSpace(req.CustomerName); name != "" {
		quotation.CustomerName = name
	}
	if req.Items != nil {
		quotation.Items = req.Items
	}
	if req.TotalAmount > 0 {
		quotation.TotalAmount = req.TotalAmount
	}
	if req.ValidUntil != nil {
		quotation.ValidUntil = req.ValidUntil
	}
	quotation.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, quotation); err != nil {
		return nil, err
	}
	return quotation, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id snowflake.ID, next domain.Status) (*domain.Quotation, error) {
	switch next {
	case domain.StatusSent, domain.StatusAccepted, domain.StatusRejected, domain.StatusExpired, domain.StatusConverted:
	default:
		return nil, domain.ErrInvalidStatus
	}

	quotation, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quotation.Status.CanTransitionTo(next) {
		return nil, domain.ErrInvalidTransition
	}

	quotation.Status = next
	quotation.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, quotation); err != nil {
		return nil, err
	}
	return quotation, nil
}

func (s *Service) List(ctx context.Context, req domain.ListQuotationsRequest) ([]domain.Quotation, error) {
	filter := &domain.Quotation{
		CompanyID: req.CompanyID,
		BranchID:  req.BranchID,
		Status:    req.Status,
	}
	rows, err := s.repo.Find(ctx, filter, option.WithOrder("created_at DESC"))
	if err != nil {
		return nil, err
	}
	quotations := make([]domain.Quotation, 0, len(rows))
	for _, row := range rows {
		if row.IsDeleted {
			continue
		}
		quotations = append(quotations, *row)
	}
	return quotations, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Quotation, error) {
	quotation, err := s.repo.FindOne(ctx, &domain.Quotation{ID: id})
	if err != nil {
		return nil, err
	}
	if quotation == nil || quotation.IsDeleted {
		return nil, domain.ErrNotFound
	}
	return quotation, nil
}
