package user

import (
	"github.com/karobar/karobar/internal/user/domain"
	"github.com/karobar/karobar/internal/user/service"
	"github.com/karobar/karobar/internal/versioning"
	"github.com/karobar/karobar/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("user.service",
	fx.Provide(
		func(db *gorm.DB, tracker *versioning.Tracker) repository.Repository[domain.User] {
			return repository.ProvideStore[domain.User](db, tracker)
		},
		service.New,
	),
)
