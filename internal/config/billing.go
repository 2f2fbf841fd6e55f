package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// BillingConfig holds the tunable billing rules: how long an invoice stays
// payable, the grace before an unpaid invoice counts as overdue, and the
// default tax rate applied to generated line items.
type BillingConfig struct {
	DueInDays         int     `mapstructure:"dueInDays"`
	OverdueGraceDays  int     `mapstructure:"overdueGraceDays"`
	DefaultTaxPercent float64 `mapstructure:"defaultTaxPercent"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DueInDays:         14,
		OverdueGraceDays:  3,
		DefaultTaxPercent: 0,
	}
}

// DefaultTaxRate returns the tax rate as a decimal percentage.
func (c BillingConfig) DefaultTaxRate() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultTaxPercent)
}

// BillingConfigHolder serves the current billing config and hot-reloads it
// when the underlying file changes.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/innkeep/config") // Volume-mounted config
	v.AddConfigPath("/etc/innkeep")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("INNKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBillingConfig()
		v.SetDefault("billing.dueInDays", defaults.DueInDays)
		v.SetDefault("billing.overdueGraceDays", defaults.OverdueGraceDays)
		v.SetDefault("billing.defaultTaxPercent", defaults.DefaultTaxPercent)
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed config, for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.DueInDays < 0 {
		return errors.New("billing.dueInDays cannot be negative")
	}
	if cfg.OverdueGraceDays < 0 {
		return errors.New("billing.overdueGraceDays cannot be negative")
	}
	if cfg.DefaultTaxPercent < 0 || cfg.DefaultTaxPercent > 100 {
		return errors.New("billing.defaultTaxPercent must be within 0..100")
	}
	return nil
}
