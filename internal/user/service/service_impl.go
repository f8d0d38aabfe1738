package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/karobar/karobar/internal/company/domain"
	"github.com/karobar/karobar/internal/user/domain"
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
	Repo      repository.Repository[domain.User]
	Companies repository.Repository[companydomain.Company]
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      repository.Repository[domain.User]
	companies repository.Repository[companydomain.Company]
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("user.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		companies: p.Companies,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	company, err := s.companies.FindOne(ctx, &companydomain.Company{ID: req.CompanyID})
	if err != nil {
		return nil, err
	}
	if company == nil || company.IsDeleted {
		return nil, domain.ErrInvalidCompany
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = "member"
	}

	user := &domain.User{
		ID:        s.genID.Generate(),
		CompanyID: req.CompanyID,
		BranchID:  req.BranchID,
		Name:      strings.TrimSpace(req.Name),
		Email:     email,
		Role:      role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, companyID snowflake.ID) ([]domain.User, error) {
	rows, err := s.repo.Find(ctx, &domain.User{CompanyID: companyID}, option.WithOrder("created_at ASC"))
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		if row.IsDeleted {
			continue
		}
		users = append(users, *row)
	}
	return users, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.repo.FindOne(ctx, &domain.User{Email: strings.ToLower(strings.TrimSpace(email))})
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsDeleted {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) Retire(ctx context.Context, id snowflake.ID) error {
	user, err := s.repo.FindOne(ctx, &domain.User{ID: id})
	if err != nil {
		return err
	}
	if user == nil || user.IsDeleted {
		return domain.ErrNotFound
	}
	user.IsDeleted = true
	user.UpdatedAt = time.Now().UTC()
	return s.repo.Save(ctx, user)
}
