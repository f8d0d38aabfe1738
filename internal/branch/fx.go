package branch

import (
	"github.com/karobar/karobar/internal/branch/domain"
	"github.com/karobar/karobar/internal/branch/service"
	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("branch.service",
	fx.Provide(
		func(db *gorm.DB, tracker *versioning.Tracker) repository.Repository[domain.Branch] {
			return repository.ProvideStore[domain.Branch](db, tracker)
		},
		service.New,
	),
)
