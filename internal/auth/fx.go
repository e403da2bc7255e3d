package auth

import (
	"context"

	"github.com/smallbiznis/sorteos/internal/auth/domain"
	"github.com/smallbiznis/sorteos/internal/auth/repository"
	"github.com/smallbiznis/sorteos/internal/auth/service"
	"github.com/smallbiznis/sorteos/internal/auth/session"
	"github.com/smallbiznis/sorteos/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	session.Module,
	fx.Invoke(ensureBootstrapAdmin),
)

func ensureBootstrapAdmin(lc fx.Lifecycle, cfg config.Config, svc domain.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		},
	})
}
