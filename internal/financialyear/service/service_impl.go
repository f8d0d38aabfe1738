package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/karobar/karobar/internal/company/domain"
	"github.com/karobar/karobar/internal/financialyear/domain"
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
	Repo      repository.Repository[domain.FinancialYear]
	Companies repository.Repository[companydomain.Company]
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      repository.Repository[domain.FinancialYear]
	companies repository.Repository[companydomain.Company]
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("financialyear.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		companies: p.Companies,
	}
}

// Create opens a new financial year spanning twelve months from StartDate.
// Numbering scopes are not pre-created here: the first allocation against the
// new year creates them lazily, starting every stream from 1.
func (s *Service) Create(ctx context.Context, req domain.CreateYearRequest) (*domain.FinancialYear, error) {
	if req.StartDate.IsZero() {
		return nil, domain.ErrInvalidPeriod
	}

	company, err := s.companies.FindOne(ctx, &companydomain.Company{ID: req.CompanyID})
	if err != nil {
		return nil, err
	}
	if company == nil || company.IsDeleted {
		return nil, domain.ErrInvalidCompany
	}

	start := time.Date(req.StartDate.Year(), req.StartDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, -1)

	existing, err := s.List(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if !start.After(existing[i].EndDate) && !end.Before(existing[i].StartDate) {
			return nil, domain.ErrYearOverlap
		}
	}

	year := &domain.FinancialYear{
		ID:        s.genID.Generate(),
		CompanyID: req.CompanyID,
		YearCode:  domain.YearCode(start),
		StartDate: start,
		EndDate:   end,
	}
	if err := s.repo.Create(ctx, year); err != nil {
		return nil, err
	}

	s.log.Info("financial year opened",
		zap.Int64("company_id", int64(req.CompanyID)),
		zap.String("year_code", year.YearCode),
	)
	return year, nil
}

func (s *Service) List(ctx context.Context, companyID snowflake.ID) ([]domain.FinancialYear, error) {
	rows, err := s.repo.Find(ctx, &domain.FinancialYear{CompanyID: companyID}, option.WithOrder("start_date ASC"))
	if err != nil {
		return nil, err
	}
	years := make([]domain.FinancialYear, 0, len(rows))
	for _, row := range rows {
		if row.IsDeleted {
			continue
		}
		years = append(years, *row)
	}
	return years, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.FinancialYear, error) {
	year, err := s.repo.FindOne(ctx, &domain.FinancialYear{ID: id})
	if err != nil {
		return nil, err
	}
	if year == nil || year.IsDeleted {
		return nil, domain.ErrNotFound
	}
	return year, nil
}

// SetLocked locks or reopens a year. Locking stops new documents from being
// created in the year; its sequence counters keep their values either way.
func (s *Service) SetLocked(ctx context.Context, id snowflake.ID, locked bool) (*domain.FinancialYear, error) {
	year, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if year.IsLocked == locked {
		return year, nil
	}

	year.IsLocked = locked
	year.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, year); err != nil {
		return nil, err
	}
	return year, nil
}
