package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/branch/domain"
	companydomain "github.com/karobar/karobar/internal/company/domain"
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
	Repo      repository.Repository[domain.Branch]
	Companies repository.Repository[companydomain.Company]
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      repository.Repository[domain.Branch]
	companies repository.Repository[companydomain.Company]
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("branch.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		companies: p.Companies,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBranchRequest) (*domain.Branch, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if strings.TrimSpace(req.StateCode) == "" {
		return nil, domain.ErrInvalidState
	}

	company, err := s.companies.FindOne(ctx, &companydomain.Company{ID: req.CompanyID})
	if err != nil {
		return nil, err
	}
	if company == nil || company.IsDeleted {
		return nil, domain.ErrInvalidCompany
	}

	branch := &domain.Branch{
		ID:        s.genID.Generate(),
		CompanyID: req.CompanyID,
		Name:      name,
		StateCode: strings.TrimSpace(req.StateCode),
		Address:   strings.TrimSpace(req.Address),
	}
	if err := s.repo.Create(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

func (s *Service) List(ctx context.Context, companyID snowflake.ID) ([]domain.Branch, error) {
	rows, err := s.repo.Find(ctx, &domain.Branch{CompanyID: companyID}, option.WithOrder("created_at ASC"))
	if err != nil {
		return nil, err
	}
	branches := make([]domain.Branch, 0, len(rows))
	for _, row := range rows {
		if row.IsDeleted {
			continue
		}
		branches = append(branches, *row)
	}
	return branches, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Branch, error) {
	branch, err := s.repo.FindOne(ctx, &domain.Branch{ID: id})
	if err != nil {
		return nil, err
	}
	if branch == nil || branch.IsDeleted {
		return nil, domain.ErrNotFound
	}
	return branch, nil
}

// Retire soft deletes a branch. The last live branch of a company cannot be
// retired: documents always need a branch scope to number against.
func (s *Service) Retire(ctx context.Context, id snowflake.ID) error {
	branch, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	live, err := s.List(ctx, branch.CompanyID)
	if err != nil {
		return err
	}
	if len(live) <= 1 {
		return domain.ErrLastBranch
	}

	branch.IsDeleted = true
	branch.UpdatedAt = time.Now().UTC()
	return s.repo.Save(ctx, branch)
}
