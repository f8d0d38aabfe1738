package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	branchdomain "github.com/karobar/karobar/internal/branch/domain"
	"github.com/karobar/karobar/internal/company/domain"
	fydomain "github.com/karobar/karobar/internal/financialyear/domain"
	userdomain "github.com/karobar/karobar/internal/user/domain"
	"github.com/karobar/karobar/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     repository.Repository[domain.Company]
	Branches repository.Repository[branchdomain.Branch]
	Years    repository.Repository[fydomain.FinancialYear]
	Users    repository.Repository[userdomain.User]
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     repository.Repository[domain.Company]
	branches repository.Repository[branchdomain.Branch]
	years    repository.Repository[fydomain.FinancialYear]
	users    repository.Repository[userdomain.User]
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("company.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		branches: p.Branches,
		years:    p.Years,
		users:    p.Users,
	}
}

// Setup bootstraps a single-company installation: the company row, its head
// office branch, the opening financial year and the admin user profile are
// written in one transaction. Running Setup twice fails.
func (s *Service) Setup(ctx context.Context, req domain.SetupRequest) (domain.SetupResponse, error) {
	var resp domain.SetupResponse

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return resp, domain.ErrInvalidName
	}
	if req.BaseCurrency == "" {
		req.BaseCurrency = "INR"
	}
	if len(req.BaseCurrency) != 3 {
		return resp, domain.ErrInvalidCurrency
	}
	if req.FYStartMonth == 0 {
		req.FYStartMonth = int(time.April)
	}
	if req.FYStartMonth < 1 || req.FYStartMonth > 12 {
		return resp, domain.ErrInvalidMonth
	}

	existing, err := s.repo.Count(ctx, &domain.Company{})
	if err != nil {
		return resp, err
	}
	if existing > 0 {
		return resp, domain.ErrAlreadySetup
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company := domain.Company{
			ID:           s.genID.Generate(),
			Name:         req.Name,
			GSTIN:        strings.ToUpper(strings.TrimSpace(req.GSTIN)),
			PAN:          strings.ToUpper(strings.TrimSpace(req.PAN)),
			BaseCurrency: strings.ToUpper(req.BaseCurrency),
			FYStartMonth: req.FYStartMonth,
		}
		if err := s.repo.WithTrx(tx).Create(ctx, &company); err != nil {
			return err
		}

		branchName := strings.TrimSpace(req.BranchName)
		if branchName == "" {
			branchName = "Head Office"
		}
		branch := branchdomain.Branch{
			ID:        s.genID.Generate(),
			CompanyID: company.ID,
			Name:      branchName,
			StateCode: strings.TrimSpace(req.BranchState),
		}
		if err := s.branches.WithTrx(tx).Create(ctx, &branch); err != nil {
			return err
		}

		year := openingYear(s.genID.Generate(), company.ID, req.FYStartMonth, time.Now().UTC())
		if err := s.years.WithTrx(tx).Create(ctx, &year); err != nil {
			return err
		}

		admin := userdomain.User{
			ID:        s.genID.Generate(),
			CompanyID: company.ID,
			BranchID:  branch.ID,
			Name:      strings.TrimSpace(req.AdminName),
			Email:     strings.ToLower(strings.TrimSpace(req.AdminEmail)),
			Role:      "admin",
		}
		if admin.Name == "" {
			admin.Name = "Administrator"
		}
		if err := s.users.WithTrx(tx).Create(ctx, &admin); err != nil {
			return err
		}

		resp = domain.SetupResponse{
			Company:         company,
			BranchID:        branch.ID,
			FinancialYearID: year.ID,
			AdminUserID:     admin.ID,
		}
		return nil
	})
	if err != nil {
		return domain.SetupResponse{}, err
	}

	s.log.Info("company setup complete",
		zap.Int64("company_id", int64(resp.Company.ID)),
		zap.String("name", resp.Company.Name),
	)
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	company, err := s.repo.FindOne(ctx, &domain.Company{ID: id})
	if err != nil {
		return nil, err
	}
	if company == nil || company.IsDeleted {
		return nil, domain.ErrNotFound
	}
	return company, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Company, error) {
	rows, err := s.repo.Find(ctx, &domain.Company{})
	if err != nil {
		return nil, err
	}
	companies := make([]domain.Company, 0, len(rows))
	for _, row := range rows {
		if row.IsDeleted {
			continue
		}
		companies = append(companies, *row)
	}
	return companies, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCompanyRequest) (*domain.Company, error) {
	company, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		company.Name = name
	}
	if req.GSTIN != "" {
		company.GSTIN = strings.ToUpper(strings.TrimSpace(req.GSTIN))
	}
	if req.PAN != "" {
		company.PAN = strings.ToUpper(strings.TrimSpace(req.PAN))
	}
	company.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// openingYear derives the financial year containing now for the configured
// start month, e.g. start month 4 and now=2026-02 gives 2025-04-01..2026-03-31.
func openingYear(id snowflake.ID, companyID snowflake.ID, startMonth int, now time.Time) fydomain.FinancialYear {
	startYear := now.Year()
	if int(now.Month()) < startMonth {
		startYear--
	}
	start := time.Date(startYear, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, -1)
	return fydomain.FinancialYear{
		ID:        id,
		CompanyID: companyID,
		YearCode:  fydomain.YearCode(start),
		StartDate: start,
		EndDate:   end,
	}
}
