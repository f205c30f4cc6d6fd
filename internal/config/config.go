package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebkit   = "webkit"
)

type Config struct {
	AppConfig     *AppConfig
	BrowserConfig *BrowserConfig
	RunConfig     *RunConfig
}

type AppConfig struct {
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	Debug      bool   `envconfig:"DEBUG" default:"false"`
	TracesPath string `envconfig:"TRACES_PATH" default:""`
}

type BrowserConfig struct {
	Engine          string `envconfig:"BROWSER" default:"chromium"`
	Headless        bool   `envconfig:"HEADLESS" default:"true"`
	SlowMo          int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Locale          string `envconfig:"BROWSER_LOCALE" default:"en-US"`
	ViewportWidth   int    `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1366"`
	ViewportHeight  int    `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"768"`
	InstallBrowsers bool   `envconfig:"INSTALL_BROWSERS" default:"false"`
}

type RunConfig struct {
	BaseURL         string        `envconfig:"BASE_URL" required:"true"`
	Workers         int           `envconfig:"WORKERS" default:"2"`
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"10s"`
	Tags            string        `envconfig:"TAGS" default:""`
	ScenarioTimeout time.Duration `envconfig:"SCENARIO_TIMEOUT" default:"3m"`
	PopupSettle     time.Duration `envconfig:"POPUP_SETTLE" default:"1500ms"`
	PopupBudget     time.Duration `envconfig:"POPUP_BUDGET" default:"10s"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.RunConfig.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BASE_URL must be an absolute http(s) url, got %q", c.RunConfig.BaseURL)
	}

	if c.RunConfig.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.RunConfig.Workers)
	}

	if c.RunConfig.Timeout <= 0 {
		return fmt.Errorf("TIMEOUT must be positive, got %s", c.RunConfig.Timeout)
	}

	switch c.BrowserConfig.Engine {
	case BrowserChromium, BrowserFirefox, BrowserWebkit:
	default:
		return fmt.Errorf("BROWSER must be one of chromium, firefox, webkit, got %q", c.BrowserConfig.Engine)
	}

	return nil
}
