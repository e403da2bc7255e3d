package session

import (
	"strings"

	"github.com/smallbiznis/sorteos/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.session",
	fx.Provide(ConfigFrom),
	fx.Provide(NewManager),
)

// Config controls the admin session cookie.
type Config struct {
	CookieName string
	Secure     bool
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		CookieName: strings.TrimSpace(cfg.AuthCookieName),
		Secure:     cfg.AuthCookieSecure,
	}
}
