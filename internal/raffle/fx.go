package raffle

import (
	"github.com/smallbiznis/sorteos/internal/raffle/repository"
	"github.com/smallbiznis/sorteos/internal/raffle/service"
	"go.uber.org/fx"
)

var Module = fx.Module("raffle.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
