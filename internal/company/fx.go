package company

import (
	"github.com/karobar/karobar/internal/company/domain"
	"github.com/karobar/karobar/internal/company/service"
	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("company.service",
	fx.Provide(
		func(db *gorm.DB, tracker *versioning.Tracker) repository.Repository[domain.Company] {
			return repository.ProvideStore[domain.Company](db, tracker)
		},
		service.New,
	),
)
