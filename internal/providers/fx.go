package providers

import (
	"github.com/smallbiznis/sorteos/internal/providers/email"
	"github.com/smallbiznis/sorteos/internal/providers/pdf"
	"github.com/smallbiznis/sorteos/internal/providers/telegram"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
	telegram.Module,
)
