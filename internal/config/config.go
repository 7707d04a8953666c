package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Node        string        `mapstructure:"node"`
	Conference  string        `mapstructure:"conference"`
	DisplayName string        `mapstructure:"display_name"`
	Pin         string        `mapstructure:"pin"`
	CallTag     string        `mapstructure:"call_tag"`
	LogLevel    string        `mapstructure:"log_level"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("display_name", "confclient")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_timeout", "30s")

	v.SetEnvPrefix("confclient")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults and env\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Node == "" {
		return nil, errors.New("node URL is required")
	}
	if cfg.Conference == "" {
		return nil, errors.New("conference alias is required")
	}
	return &cfg, nil
}
