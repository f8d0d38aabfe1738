package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/karobar/karobar/internal/bom/domain"
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
	Repo      repository.Repository[domain.BOM]
	Companies repository.Repository[companydomain.Company]
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      repository.Repository[domain.BOM]
	companies repository.Repository[companydomain.Company]
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("bom.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		companies: p.Companies,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBOMRequest) (*domain.BOM, error) {
	name := strings.TrimSpace(req.ProductName)
	if name == "" {
		return nil, domain.ErrInvalidProduct
	}
	if req.OutputQty <= 0 {
		return nil, domain.ErrInvalidQty
	}

	company, err := s.companies.FindOne(ctx, &companydomain.Company{ID: req.CompanyID})
	if err != nil {
		return nil, err
	}
	if company == nil || company.IsDeleted {
		return nil, domain.ErrInvalidProduct
	}

	uom := strings.TrimSpace(req.UOM)
	if uom == "" {
		uom = "Nos"
	}

	bom := &domain.BOM{
		ID:          s.genID.Generate(),
		CompanyID:   req.CompanyID,
		ProductName: name,
		Revision:    1,
		OutputQty:   req.OutputQty,
		UOM:         uom,
		Status:      domain.StatusDraft,
		Components:  req.Components,
	}
	if err := s.repo.Create(ctx, bom); err != nil {
		return nil, err
	}
	return bom, nil
}

func (s *Service) Approve(ctx context.Context, id snowflake.ID) (*domain.BOM, error) {
	bom, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bom.Status == domain.StatusApproved {
		return nil, domain.ErrAlreadyApproved
	}

	bom.Status = domain.StatusApproved
	bom.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, bom); err != nil {
		return nil, err
	}
	return bom, nil
}

// Clone copies an approved BOM into a fresh draft with the next revision
// number for the product. The approved source stays untouched.
func (s *Service) Clone(ctx context.Context, id snowflake.ID) (*domain.BOM, error) {
	source, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if source.Status != domain.StatusApproved {
		return nil, domain.ErrNotApproved
	}

	revisions, err := s.repo.Find(ctx, &domain.BOM{
		CompanyID:   source.CompanyID,
		ProductName: source.ProductName,
	})
	if err != nil {
		return nil, err
	}
	nextRevision := 1
	for _, rev := range revisions {
		if rev.Revision >= nextRevision {
			nextRevision = rev.Revision + 1
		}
	}

	clone := &domain.BOM{
		ID:          s.genID.Generate(),
		CompanyID:   source.CompanyID,
		ProductName: source.ProductName,
		Revision:    nextRevision,
		OutputQty:   source.OutputQty,
		UOM:         source.UOM,
		Status:      domain.StatusDraft,
		Components:  source.Components,
	}
	if err := s.repo.Create(ctx, clone); err != nil {
		return nil, err
	}
	return clone, nil
}

func (s *Service) List(ctx context.Context, companyID snowflake.ID) ([]domain.BOM, error) {
	rows, err := s.repo.Find(ctx, &domain.BOM{CompanyID: companyID}, option.WithOrder("product_name ASC, revision ASC"))
	if err != nil {
		return nil, err
	}
	boms := make([]domain.BOM, 0, len(rows))
	for _, row := range rows {
		if row.IsDeleted {
			continue
		}
		boms = append(boms, *row)
	}
	return boms, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.BOM, error) {
	bom, err := s.repo.FindOne(ctx, &domain.BOM{ID: id})
	if err != nil {
		return nil, err
	}
	if bom == nil || bom.IsDeleted {
		return nil, domain.ErrNotFound
	}
	return bom, nil
}
