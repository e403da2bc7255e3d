package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"phone":         KindPhone,
		"buyer_phone":   KindPhone,
		" User_Email ":  KindEmail,
		"access_token":  KindSecret,
		"password":      KindSecret,
		"ticket_ids":    KindNone,
		"telephone":     KindNone,
		"promoter_code": KindNone,
	}
	for key, want := range tests {
		assert.Equal(t, want, KindOf(key), key)
	}
}

func TestMaskers(t *testing.T) {
	assert.Equal(t, "a***@example.com", Email("ana@example.com"))
	assert.Equal(t, "****", Email("@nope"))
	assert.Equal(t, "", Secret(" "))
	assert.Equal(t, "****", Secret("abc"))
	assert.Equal(t, "****cdef", Secret("sk_live_abcdef"))
}

func TestMetadata(t *testing.T) {
	got := Metadata(map[string]any{
		"buyer_phone": "(668) 123-4567",
		"tickets":     3,
		"buyer":       map[string]any{"email": "ana@example.com", "name": "Ana"},
		"token":       []any{"abcdefghijkl"},
		"":            "skipped",
	})

	assert.Equal(t, "******4567", got["buyer_phone"])
	assert.Equal(t, 3, got["tickets"])
	assert.Equal(t, map[string]any{"email": "a***@example.com", "name": "Ana"}, got["buyer"])
	assert.Equal(t, []any{"****ijkl"}, got["token"])
	assert.NotContains(t, got, "")
	assert.Nil(t, Metadata(nil))
}
