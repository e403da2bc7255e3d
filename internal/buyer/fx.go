package buyer

import (
	"github.com/smallbiznis/sorteos/internal/buyer/repository"
	"github.com/smallbiznis/sorteos/internal/buyer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("buyer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
