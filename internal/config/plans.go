package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PlanEntry maps a provider price reference, or a charged amount, to a tier.
type PlanEntry struct {
	PriceRef string `mapstructure:"priceRef"`
	Amount   int64  `mapstructure:"amount"`
	Currency string `mapstructure:"currency"`
	Tier     string `mapstructure:"tier"`
	Months   int    `mapstructure:"months"`
}

type PlanCatalogConfig struct {
	Version string      `mapstructure:"version"`
	Entries []PlanEntry `mapstructure:"entries"`
}

func DefaultPlanCatalogConfig() PlanCatalogConfig {
	return PlanCatalogConfig{
		Version: "2024-01",
		Entries: []PlanEntry{
			{PriceRef: "price_starter_monthly", Tier: "starter", Months: 1},
			{PriceRef: "price_premium_monthly", Tier: "premium", Months: 1},
			{PriceRef: "price_pro_monthly", Tier: "pro", Months: 1},
			{PriceRef: "price_max_monthly", Tier: "max", Months: 1},
			{PriceRef: "price_premium_yearly", Tier: "premium", Months: 12},
			{PriceRef: "price_pro_yearly", Tier: "pro", Months: 12},
			{Amount: 1900, Currency: "usd", Tier: "starter", Months: 1},
			{Amount: 4900, Currency: "usd", Tier: "premium", Months: 1},
			{Amount: 9900, Currency: "usd", Tier: "pro", Months: 1},
			{Amount: 19900, Currency: "usd", Tier: "max", Months: 1},
		},
	}
}

type PlanCatalogHolder struct {
	current atomic.Value // holds PlanCatalogConfig
}

// NewStaticPlanCatalogHolder returns a holder that never reloads.
func NewStaticPlanCatalogHolder(cfg PlanCatalogConfig) *PlanCatalogHolder {
	holder := &PlanCatalogHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPlanCatalogHolder() (*PlanCatalogHolder, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/talentloop/config")
	v.AddConfigPath("/etc/talentloop")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TALENTLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fromFile = false
	}

	cfg := DefaultPlanCatalogConfig()
	if fromFile {
		var loaded PlanCatalogConfig
		if err := v.UnmarshalKey("plans", &loaded); err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := validatePlanCatalog(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPlanCatalogHolder(cfg)
	if !fromFile {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanCatalogConfig
		if err := v.UnmarshalKey("plans", &updated); err != nil {
			log.Printf("[plan-catalog] reload failed: %v", err)
			return
		}
		if err := validatePlanCatalog(updated); err != nil {
			log.Printf("[plan-catalog] invalid catalog ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[plan-catalog] reloaded version %s from %s", updated.Version, e.Name)
	})

	return holder, nil
}

func (h *PlanCatalogHolder) Get() PlanCatalogConfig {
	return h.current.Load().(PlanCatalogConfig)
}

func validatePlanCatalog(cfg PlanCatalogConfig) error {
	if len(cfg.Entries) == 0 {
		return errors.New("plans.entries cannot be empty")
	}
	seen := map[string]struct{}{}
	for i, entry := range cfg.Entries {
		ref := strings.TrimSpace(entry.PriceRef)
		if ref == "" && entry.Amount <= 0 {
			return fmt.Errorf("plans.entries[%d]: priceRef or amount is required", i)
		}
		if strings.TrimSpace(entry.Tier) == "" {
			return fmt.Errorf("plans.entries[%d]: tier is required", i)
		}
		if entry.Months <= 0 {
			return fmt.Errorf("plans.entries[%d]: months must be positive", i)
		}
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			return fmt.Errorf("plans.entries[%d]: duplicate priceRef %q", i, ref)
		}
		seen[ref] = struct{}{}
	}
	return nil
}
