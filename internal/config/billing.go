package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig holds the reconciliation rules loaded from billing.yml.
type BillingConfig struct {
	TaxRate                 float64 `mapstructure:"taxRate"`
	FallbackLeadPrice       float64 `mapstructure:"fallbackLeadPrice"`
	Timezone                string  `mapstructure:"timezone"`
	StrictTimestamps        bool    `mapstructure:"strictTimestamps"`
	SettingsCacheTTLSeconds int     `mapstructure:"settingsCacheTTLSeconds"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		TaxRate:                 0.19,
		FallbackLeadPrice:       30,
		Timezone:                "UTC",
		StrictTimestamps:        false,
		SettingsCacheTTLSeconds: 60,
	}
}

// Location resolves the billing timezone, falling back to UTC.
func (c BillingConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c BillingConfig) SettingsCacheTTL() time.Duration {
	if c.SettingsCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.SettingsCacheTTLSeconds) * time.Second
}

var defaultBillingConfigPaths = []string{
	"/etc/leadbilling", // System config
	".",                // Current directory (dev mode)
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	return LoadBillingConfigHolder(log, defaultBillingConfigPaths...)
}

// LoadBillingConfigHolder reads billing.yml from the first matching path and
// keeps watching it for changes.
func LoadBillingConfigHolder(log *zap.Logger, paths ...string) (*BillingConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("billing.config")

	v := viper.New()
	v.SetConfigName("billing")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("LEADBILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.taxRate", defaults.TaxRate)
	v.SetDefault("billing.fallbackLeadPrice", defaults.FallbackLeadPrice)
	v.SetDefault("billing.timezone", defaults.Timezone)
	v.SetDefault("billing.strictTimestamps", defaults.StrictTimestamps)
	v.SetDefault("billing.settingsCacheTTLSeconds", defaults.SettingsCacheTTLSeconds)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeBillingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		log.Info("billing config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeBillingConfig(v)
		if err != nil {
			log.Warn("billing config reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("billing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed config, mainly for tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	if h == nil {
		return DefaultBillingConfig()
	}
	cfg, ok := h.current.Load().(BillingConfig)
	if !ok {
		return DefaultBillingConfig()
	}
	return cfg
}

// decodeBillingConfig reads every billing key through viper's lookup order
// (env, file, default). UnmarshalKey on the "billing" map alone would only
// see what the file sets.
func decodeBillingConfig(v *viper.Viper) (BillingConfig, error) {
	var wrapper struct {
		Billing BillingConfig `mapstructure:"billing"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return BillingConfig{}, err
	}
	if err := validateBillingConfig(wrapper.Billing); err != nil {
		return BillingConfig{}, err
	}
	return wrapper.Billing, nil
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return errors.New("billing.taxRate must be within [0, 1)")
	}
	if cfg.FallbackLeadPrice < 0 {
		return errors.New("billing.fallbackLeadPrice cannot be negative")
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("billing.timezone: %w", err)
		}
	}
	return nil
}
