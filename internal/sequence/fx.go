package sequence

import (
	"github.com/karobar/karobar/internal/sequence/repository"
	"github.com/karobar/karobar/internal/sequence/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
