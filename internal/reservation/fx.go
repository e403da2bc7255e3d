package reservation

import (
	"github.com/smallbiznis/sorteos/internal/reservation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reservation.service",
	fx.Provide(service.New),
)
