package promoter

import (
	"github.com/smallbiznis/sorteos/internal/promoter/repository"
	"github.com/smallbiznis/sorteos/internal/promoter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("promoter.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
