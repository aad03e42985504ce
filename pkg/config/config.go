package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backends accepted by BROWSER_BACKEND.
const (
	BackendChromedp   = "chromedp"
	BackendRod        = "rod"
	BackendPlaywright = "playwright"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	Headless       bool   `mapstructure:"HEADLESS"`
	BrowserBackend string `mapstructure:"BROWSER_BACKEND"`
	BrowserBin     string `mapstructure:"BROWSER_BIN"`

	TargetURL       string        `mapstructure:"TARGET_URL"`
	WaitTimeout     time.Duration `mapstructure:"WAIT_TIMEOUT"`
	PageLoadTimeout time.Duration `mapstructure:"PAGE_LOAD_TIMEOUT"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, envFile string) (*Config, error) {
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	_ = v.ReadInConfig()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("HEADLESS", true)
	v.SetDefault("BROWSER_BACKEND", BackendChromedp)
	v.SetDefault("BROWSER_BIN", "")
	v.SetDefault("TARGET_URL", "")
	v.SetDefault("WAIT_TIMEOUT", 10*time.Second)
	v.SetDefault("PAGE_LOAD_TIMEOUT", 30*time.Second)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.BrowserBackend = strings.ToLower(strings.TrimSpace(cfg.BrowserBackend))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.BrowserBackend {
	case BackendChromedp, BackendRod, BackendPlaywright:
	default:
		return fmt.Errorf("unsupported BROWSER_BACKEND %q", c.BrowserBackend)
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("WAIT_TIMEOUT must be positive, got %s", c.WaitTimeout)
	}
	if c.PageLoadTimeout <= 0 {
		return fmt.Errorf("PAGE_LOAD_TIMEOUT must be positive, got %s", c.PageLoadTimeout)
	}
	return nil
}
