package quotation

import (
	"github.com/karobar/karobar/internal/quotation/domain"
	"github.com/karobar/karobar/internal/quotation/service"
	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("quotation.service",
	fx.Provide(
		func(db *gorm.DB, tracker *versioning.Tracker) repository.Repository[domain.Quotation] {
			return repository.ProvideStore[domain.Quotation](db, tracker)
		},
		service.New,
	),
)
