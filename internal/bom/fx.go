package bom

import (
	"github.com/karobar/karobar/internal/bom/domain"
	"github.com/karobar/karobar/internal/bom/service"
	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("bom.service",
	fx.Provide(
		func(db *gorm.DB, tracker *versioning.Tracker) repository.Repository[domain.BOM] {
			return repository.ProvideStore[domain.BOM](db, tracker)
		},
		service.New,
	),
)
