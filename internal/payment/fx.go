package payment

import (
	"github.com/smallbiznis/sorteos/internal/payment/adapters"
	"github.com/smallbiznis/sorteos/internal/payment/adapters/mercadopago"
	"github.com/smallbiznis/sorteos/internal/payment/domain"
	"github.com/smallbiznis/sorteos/internal/payment/repository"
	paymentservice "github.com/smallbiznis/sorteos/internal/payment/service"
	"github.com/smallbiznis/sorteos/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(mercadopago.New),
	fx.Provide(func(mp *mercadopago.Client) *adapters.Registry {
		return adapters.NewRegistry(mp)
	}),
	fx.Provide(paymentservice.New),
	fx.Provide(func(s *paymentservice.Service) domain.PreferenceService { return s }),
	fx.Provide(func(s *paymentservice.Service) domain.LogService { return s }),
	fx.Provide(webhook.NewService),
)
