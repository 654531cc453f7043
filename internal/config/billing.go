package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig carries the business rules that operators tune without a deploy.
type BillingConfig struct {
	Aging      AgingConfig      `mapstructure:"aging"`
	Collection CollectionConfig `mapstructure:"collection"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
}

// AgingConfig bounds the aging tiers in whole days late.
type AgingConfig struct {
	RecentMaxDays  int `mapstructure:"recentMaxDays"`
	BlockedMaxDays int `mapstructure:"blockedMaxDays"`
}

type CollectionConfig struct {
	LookaheadDays    int    `mapstructure:"lookaheadDays"`
	Limit            int    `mapstructure:"limit"`
	DispatchSchedule string `mapstructure:"dispatchSchedule"`
	ResetSchedule    string `mapstructure:"resetSchedule"`
	UpcomingTemplate string `mapstructure:"upcomingTemplate"`
	OverdueTemplate  string `mapstructure:"overdueTemplate"`
}

type DashboardConfig struct {
	TrendMonths int `mapstructure:"trendMonths"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Aging: AgingConfig{
			RecentMaxDays:  7,
			BlockedMaxDays: 30,
		},
		Collection: CollectionConfig{
			LookaheadDays:    3,
			Limit:            20,
			DispatchSchedule: "0 9 * * *",
			ResetSchedule:    "0 0 * * *",
			UpcomingTemplate: "Olá {{.ClientName}}! Sua mensalidade de R$ {{.Amount}} vence em {{.DueDate}}.",
			OverdueTemplate:  "Olá {{.ClientName}}! Sua mensalidade de R$ {{.Amount}} venceu em {{.DueDate}} e está em aberto há {{.DaysLate}} dia(s).",
		},
		Dashboard: DashboardConfig{
			TrendMonths: 3,
		},
	}
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

// NewStaticBillingConfigHolder wraps a fixed config; used by tests and tools.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/mensalidade")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MENSALIDADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setBillingDefaults(v, DefaultBillingConfig())

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	cfg, err := unmarshalBilling(v)
	if err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := unmarshalBilling(v)
		if err != nil {
			log.Warn("billing config reload failed", zap.Error(err))
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Warn("invalid billing config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("billing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
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

// unmarshalBilling goes through AllSettings so env overrides of nested keys apply.
func unmarshalBilling(v *viper.Viper) (BillingConfig, error) {
	var root struct {
		Billing BillingConfig `mapstructure:"billing"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return BillingConfig{}, err
	}
	return root.Billing, nil
}

func setBillingDefaults(v *viper.Viper, defaults BillingConfig) {
	v.SetDefault("billing.aging.recentMaxDays", defaults.Aging.RecentMaxDays)
	v.SetDefault("billing.aging.blockedMaxDays", defaults.Aging.BlockedMaxDays)
	v.SetDefault("billing.collection.lookaheadDays", defaults.Collection.LookaheadDays)
	v.SetDefault("billing.collection.limit", defaults.Collection.Limit)
	v.SetDefault("billing.collection.dispatchSchedule", defaults.Collection.DispatchSchedule)
	v.SetDefault("billing.collection.resetSchedule", defaults.Collection.ResetSchedule)
	v.SetDefault("billing.collection.upcomingTemplate", defaults.Collection.UpcomingTemplate)
	v.SetDefault("billing.collection.overdueTemplate", defaults.Collection.OverdueTemplate)
	v.SetDefault("billing.dashboard.trendMonths", defaults.Dashboard.TrendMonths)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.Aging.RecentMaxDays < 1 {
		return errors.New("billing.aging.recentMaxDays must be at least 1")
	}
	if cfg.Aging.BlockedMaxDays <= cfg.Aging.RecentMaxDays {
		return errors.New("billing.aging.blockedMaxDays must be greater than recentMaxDays")
	}
	if cfg.Collection.LookaheadDays < 0 {
		return errors.New("billing.collection.lookaheadDays cannot be negative")
	}
	if cfg.Collection.Limit <= 0 {
		return errors.New("billing.collection.limit must be positive")
	}
	if strings.TrimSpace(cfg.Collection.UpcomingTemplate) == "" || strings.TrimSpace(cfg.Collection.OverdueTemplate) == "" {
		return errors.New("billing.collection templates cannot be empty")
	}
	if cfg.Dashboard.TrendMonths <= 0 {
		return errors.New("billing.dashboard.trendMonths must be positive")
	}
	return nil
}
