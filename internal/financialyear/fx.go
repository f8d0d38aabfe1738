package financialyear

import (
	"github.com/karobar/karobar/internal/financialyear/domain"
	"github.com/karobar/karobar/internal/financialyear/service"
	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("financialyear.service",
	fx.Provide(
		func(db *gorm.DB, tracker *versioning.Tracker) repository.Repository[domain.FinancialYear] {
			return repository.ProvideStore[domain.FinancialYear](db, tracker)
		},
		service.New,
	),
)
