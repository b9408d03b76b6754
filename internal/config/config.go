// Package config loads and validates the application configuration from YAML,
// with environment fallbacks for secrets so credentials can stay out of the
// file.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/riverjin839/riverflow/internal/broker"
	"github.com/riverjin839/riverflow/internal/scheduler"
	"github.com/riverjin839/riverflow/internal/types"
	"github.com/riverjin839/riverflow/pkg/errors"
)

// TelegramConfig configures the notifier. Both fields empty disables it.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}

	*d = Duration(parsed)

	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// StreamConfig tunes the feed ingestor.
type StreamConfig struct {
	WatchList      []string `yaml:"watch_list"`
	FlushInterval  Duration `yaml:"flush_interval"`
	SupplyInterval Duration `yaml:"supply_interval"`
	ReconnectDelay Duration `yaml:"reconnect_delay"`
}

// AppConfig is the whole application configuration.
type AppConfig struct {
	// Broker selects the adapter: "kis" or "bridge". Only the selected
	// adapter's config block is validated.
	Broker broker.BrokerType   `yaml:"broker" validate:"required,oneof=kis bridge"`
	KIS    broker.KISConfig    `yaml:"kis" validate:"-"`
	Bridge broker.BridgeConfig `yaml:"bridge" validate:"-"`

	// Markets are the index markets scanned and tracked, e.g. KOSPI, KOSDAQ.
	Markets []string `yaml:"markets" validate:"required,min=1"`
	// Timezone is the market-local timezone for trading hours and schedules.
	Timezone string `yaml:"timezone"`

	// StorePath is the DuckDB file; empty runs in memory.
	StorePath string `yaml:"store_path"`

	Telegram TelegramConfig `yaml:"telegram"`
	Stream   StreamConfig   `yaml:"stream"`

	Safety types.TradeSafetyConfig `yaml:"safety" validate:"-"`

	Schedules scheduler.Specs `yaml:"schedules"`

	Conditions []types.ScanCondition `yaml:"conditions" validate:"-"`
}

// Default returns a runnable baseline configuration.
func Default() AppConfig {
	return AppConfig{
		Broker:   broker.BrokerKIS,
		Markets:  []string{"KOSPI", "KOSDAQ"},
		Timezone: "Asia/Seoul",
		Safety:   types.DefaultTradeSafetyConfig(),
	}
}

// Load reads the YAML file at path, applies environment fallbacks, and
// validates the result.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// applyEnv fills secrets left out of the file from the environment.
func (c *AppConfig) applyEnv() {
	envFallback(&c.KIS.AppKey, "KIS_APP_KEY")
	envFallback(&c.KIS.AppSecret, "KIS_APP_SECRET")
	envFallback(&c.KIS.AccountNo, "KIS_ACCOUNT_NO")
	envFallback(&c.Bridge.Token, "BRIDGE_TOKEN")
	envFallback(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	envFallback(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
}

func envFallback(target *string, key string) {
	if *target != "" {
		return
	}

	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// Validate validates the AppConfig struct, including the selected broker's
// adapter config.
func (c *AppConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid app config", err)
	}

	switch c.Broker {
	case broker.BrokerKIS:
		if err := c.KIS.Validate(); err != nil {
			return err
		}
	case broker.BrokerBridge:
		if err := c.Bridge.Validate(); err != nil {
			return err
		}
	}

	if err := c.Safety.Validate(); err != nil {
		return err
	}

	for i := range c.Conditions {
		if err := c.Conditions[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// BrokerConfig returns the selected adapter's config value for the registry.
func (c *AppConfig) BrokerConfig() any {
	if c.Broker == broker.BrokerBridge {
		return c.Bridge
	}

	return c.KIS
}
