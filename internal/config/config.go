package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Upstream     UpstreamConfig     `mapstructure:"upstream"`
	Universe     UniverseConfig     `mapstructure:"universe"`
	Fetch        FetchConfig        `mapstructure:"fetch"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	RefData      RefDataConfig      `mapstructure:"refdata"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type UpstreamConfig struct {
	// URL templates. {symbol} is replaced with the instrument token,
	// {expiry} with the contract month code on the futures template.
	EquityQuoteURL  string `mapstructure:"equity_quote_url"`
	FuturesQuoteURL string `mapstructure:"futures_quote_url"`
	SubscriptionURL string `mapstructure:"subscription_url"`

	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
}

type UniverseConfig struct {
	Symbols []string `mapstructure:"symbols"`
}

type FetchConfig struct {
	Workers            int `mapstructure:"workers"`
	TaskTimeoutSeconds int `mapstructure:"task_timeout_seconds"`
}

type SubscriptionConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
}

type RefDataConfig struct {
	LotSizePath string `mapstructure:"lot_size_path"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/arbdesk")
	}

	// Read environment variables
	v.SetEnvPrefix("ARBDESK")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 5000)

	// Upstream defaults
	v.SetDefault("upstream.equity_quote_url", "http://localhost:8084/quote?dispname={symbol}EQ")
	v.SetDefault("upstream.futures_quote_url", "http://localhost:8084/quote?dispname={symbol}{expiry}FUT")
	v.SetDefault("upstream.subscription_url", "http://localhost:8084/subscribe?dispname={symbol}")
	v.SetDefault("upstream.timeout_seconds", 10)
	v.SetDefault("upstream.rate_per_second", 0)

	// Universe defaults
	v.SetDefault("universe.symbols", []string{})

	// Fetch defaults
	v.SetDefault("fetch.workers", 10)
	v.SetDefault("fetch.task_timeout_seconds", 15)

	// Subscription defaults
	v.SetDefault("subscription.max_attempts", 5)

	// Reference data defaults
	v.SetDefault("refdata.lot_size_path", "./dict_symbol_lotsize.json")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 90)
	v.SetDefault("logging.max_backups", 5)
}
