// Package masking redacts buyer contact data and credentials in audit metadata.
package masking

import (
	"strings"

	buyerdomain "github.com/smallbiznis/sorteos/internal/buyer/domain"
)

// Kind is the redaction applied to one metadata value.
type Kind int

const (
	KindNone Kind = iota
	KindPhone
	KindEmail
	KindSecret
)

var suffixKinds = []struct {
	suffix string
	kind   Kind
}{
	{"phone", KindPhone},
	{"whatsapp", KindPhone},
	{"email", KindEmail},
	{"password", KindSecret},
	{"token", KindSecret},
	{"secret", KindSecret},
}

// KindOf classifies a key by its last segment, so "buyer_phone" and
// "user_email" are masked like "phone" and "email".
func KindOf(key string) Kind {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, sk := range suffixKinds {
		if key == sk.suffix || strings.HasSuffix(key, "_"+sk.suffix) {
			return sk.kind
		}
	}
	return KindNone
}

// Email keeps the first letter of the local part and the domain.
func Email(value string) string {
	value = strings.TrimSpace(value)
	at := strings.LastIndex(value, "@")
	if at <= 0 || at == len(value)-1 {
		return Secret(value)
	}
	return value[:1] + "***" + value[at:]
}

// Secret hides everything but the last four characters of long values.
func Secret(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case len(value) <= 8:
		return "****"
	default:
		return "****" + value[len(value)-4:]
	}
}

func mask(kind Kind, value string) string {
	switch kind {
	case KindPhone:
		return buyerdomain.MaskPhone(value)
	case KindEmail:
		return Email(value)
	case KindSecret:
		return Secret(value)
	default:
		return value
	}
}

// Metadata returns a copy of input with sensitive values masked by key.
// Masking applies through nested maps and lists; a sensitive key masks
// every string below it.
func Metadata(input map[string]any) map[string]any {
	return maskMap(input, KindNone)
}

func maskMap(input map[string]any, inherited Kind) map[string]any {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		kind := inherited
		if k := KindOf(key); k != KindNone {
			kind = k
		}
		out[key] = maskValue(value, kind)
	}
	return out
}

func maskValue(value any, kind Kind) any {
	switch v := value.(type) {
	case string:
		return mask(kind, v)
	case map[string]any:
		return maskMap(v, kind)
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, maskValue(item, kind))
		}
		return out
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, mask(kind, item))
		}
		return out
	default:
		return value
	}
}
