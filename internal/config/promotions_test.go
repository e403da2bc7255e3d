package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBonusForPicksHighestTier(t *testing.T) {
	promos := DefaultPromotionsConfig()

	assert.Equal(t, "", promos.BonusFor(4))
	assert.Equal(t, "BONO VIP", promos.BonusFor(5))
	assert.Equal(t, "BONO ADICIONAL", promos.BonusFor(12))
	assert.Equal(t, "BONO EXTRA", promos.BonusFor(20))
	assert.Equal(t, "BONO ENVÍO GRATIS", promos.BonusFor(45))
}

func TestNewPromotionsHolderFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewPromotionsHolder(Config{})
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, int64(100000), got.CommissionPerTicket)
	assert.Equal(t, 10, got.ExtraPrizeThreshold)
	assert.Len(t, got.BonusTiers, 4)
}

func TestNewPromotionsHolderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promotions.yml")
	content := []byte(`promotions:
  commissionPerTicket: 5000
  extraPrizeThreshold: 3
  bonusTiers:
    - minTickets: 2
      label: DOBLE
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewPromotionsHolder(Config{Promotions: path})
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, int64(5000), got.CommissionPerTicket)
	assert.Equal(t, 3, got.ExtraPrizeThreshold)
	assert.Equal(t, "DOBLE", got.BonusFor(2))
}

func TestNewPromotionsHolderRejectsMissingExplicitPath(t *testing.T) {
	_, err := NewPromotionsHolder(Config{Promotions: filepath.Join(t.TempDir(), "missing.yml")})
	require.Error(t, err)
}
