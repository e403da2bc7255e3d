package email

import (
	"strings"

	"github.com/smallbiznis/sorteos/internal/config"
	paymentdomain "github.com/smallbiznis/sorteos/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
	fx.Provide(
		fx.Annotate(
			NewPaymentNotifier,
			fx.As(new(paymentdomain.Notifier)),
			fx.ResultTags(`group:"payment.notifiers"`),
		),
	),
)

// NewFromConfig drops mail when SMTP is not configured.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if strings.TrimSpace(cfg.Email.SMTPHost) == "" {
		return &disabledProvider{log: log.Named("email")}
	}
	emailCfg := Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
	}
	return NewSMTP(emailCfg)
}
