package telegram

import (
	"github.com/smallbiznis/sorteos/internal/config"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.telegram",
	fx.Provide(NewFromConfig),
	fx.Provide(
		fx.Annotate(
			NewSaleNotifier,
			fx.As(new(paymentdomain.Notifier)),
			fx.ResultTags(`group:"payment.notifiers"`),
		),
	),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
		return &NoOpProvider{}
	}
	return NewBot(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}
