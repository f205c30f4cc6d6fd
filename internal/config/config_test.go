package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigFromEnv(t *testing.T) {
	t.Setenv("BASE_URL", "https://shop.example.com")
	t.Setenv("WORKERS", "4")
	t.Setenv("TIMEOUT", "5s")
	t.Setenv("TAGS", "smoke,~slow")
	t.Setenv("HEADLESS", "false")

	conf, err := GetConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com", conf.RunConfig.BaseURL)
	assert.Equal(t, 4, conf.RunConfig.Workers)
	assert.Equal(t, 5*time.Second, conf.RunConfig.Timeout)
	assert.Equal(t, "smoke,~slow", conf.RunConfig.Tags)
	assert.False(t, conf.BrowserConfig.Headless)
	assert.Equal(t, BrowserChromium, conf.BrowserConfig.Engine)
	assert.Equal(t, 1500*time.Millisecond, conf.RunConfig.PopupSettle)
}

func TestGetConfigRequiresBaseURL(t *testing.T) {
	t.Setenv("BASE_URL", "")

	_, err := GetConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AppConfig:     &AppConfig{},
			BrowserConfig: &BrowserConfig{Engine: BrowserFirefox},
			RunConfig: &RunConfig{
				BaseURL: "http://localhost:8080",
				Workers: 1,
				Timeout: time.Second,
			},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"relative base url", func(c *Config) { c.RunConfig.BaseURL = "/shop" }},
		{"ftp base url", func(c *Config) { c.RunConfig.BaseURL = "ftp://shop.example.com" }},
		{"zero workers", func(c *Config) { c.RunConfig.Workers = 0 }},
		{"zero timeout", func(c *Config) { c.RunConfig.Timeout = 0 }},
		{"unknown engine", func(c *Config) { c.BrowserConfig.Engine = "netscape" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
