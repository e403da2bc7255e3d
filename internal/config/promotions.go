package config

import (
	"errors"
	"log"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BonusTier grants a label once a purchase reaches MinTickets.
type BonusTier struct {
	MinTickets int    `mapstructure:"minTickets" json:"min_tickets"`
	Label      string `mapstructure:"label" json:"label"`
}

// PromotionsConfig holds the storefront incentives that marketing tunes
// without a redeploy.
type PromotionsConfig struct {
	BonusTiers []BonusTier `mapstructure:"bonusTiers" json:"bonus_tiers"`
	// CommissionPerTicket is expressed in minor units (centavos).
	CommissionPerTicket int64 `mapstructure:"commissionPerTicket" json:"commission_per_ticket"`
	ExtraPrizeThreshold int   `mapstructure:"extraPrizeThreshold" json:"extra_prize_threshold"`
}

func DefaultPromotionsConfig() PromotionsConfig {
	return PromotionsConfig{
		BonusTiers: []BonusTier{
			{MinTickets: 30, Label: "BONO ENVÍO GRATIS"},
			{MinTickets: 20, Label: "BONO EXTRA"},
			{MinTickets: 10, Label: "BONO ADICIONAL"},
			{MinTickets: 5, Label: "BONO VIP"},
		},
		CommissionPerTicket: 100000,
		ExtraPrizeThreshold: 10,
	}
}

// BonusFor returns the highest tier label reached by count, or "" when none.
func (p PromotionsConfig) BonusFor(count int) string {
	tiers := append([]BonusTier(nil), p.BonusTiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinTickets > tiers[j].MinTickets })
	for _, tier := range tiers {
		if tier.MinTickets > 0 && count >= tier.MinTickets {
			return tier.Label
		}
	}
	return ""
}

type PromotionsHolder struct {
	current atomic.Value // holds PromotionsConfig
}

// NewStaticPromotionsHolder wraps a fixed configuration.
func NewStaticPromotionsHolder(cfg PromotionsConfig) *PromotionsHolder {
	holder := &PromotionsHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewPromotionsHolder reads promotions.yml (or the configured path) and keeps
// it hot-reloaded. Missing files fall back to defaults.
func NewPromotionsHolder(cfg Config) (*PromotionsHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(cfg.Promotions); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("promotions")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/sorteos")
		v.AddConfigPath(".")
	}

	defaults := DefaultPromotionsConfig()
	v.SetDefault("promotions.bonusTiers", defaults.BonusTiers)
	v.SetDefault("promotions.commissionPerTicket", defaults.CommissionPerTicket)
	v.SetDefault("promotions.extraPrizeThreshold", defaults.ExtraPrizeThreshold)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		// An explicit path that does not exist is a startup error.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var promos PromotionsConfig
	if err := v.UnmarshalKey("promotions", &promos); err != nil {
		return nil, err
	}
	if err := validatePromotions(promos); err != nil {
		return nil, err
	}

	holder := NewStaticPromotionsHolder(promos)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PromotionsConfig
		if err := v.UnmarshalKey("promotions", &updated); err != nil {
			log.Printf("[promotions-config] reload failed: %v", err)
			return
		}
		if err := validatePromotions(updated); err != nil {
			log.Printf("[promotions-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[promotions-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PromotionsHolder) Get() PromotionsConfig {
	if h == nil {
		return DefaultPromotionsConfig()
	}
	cfg, ok := h.current.Load().(PromotionsConfig)
	if !ok {
		return DefaultPromotionsConfig()
	}
	return cfg
}

func validatePromotions(cfg PromotionsConfig) error {
	if cfg.CommissionPerTicket < 0 {
		return errors.New("promotions.commissionPerTicket cannot be negative")
	}
	if cfg.ExtraPrizeThreshold <= 0 {
		return errors.New("promotions.extraPrizeThreshold must be positive")
	}
	for _, tier := range cfg.BonusTiers {
		if tier.MinTickets <= 0 || strings.TrimSpace(tier.Label) == "" {
			return errors.New("promotions.bonusTiers entries need minTickets and label")
		}
	}
	return nil
}
