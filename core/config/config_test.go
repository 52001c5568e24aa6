package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimal() *Config {
	return &Config{Telegram: TelegramConfig{Token: "123:abc"}}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := minimal()
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, 5, cfg.Telegram.RestartDelaySeconds)
	assert.Equal(t, 1, cfg.RateLimit.Burst)
}

func TestNormalizeAcceptsPollingAliasAndCase(t *testing.T) {
	cfg := minimal()
	cfg.Telegram.RunMode = " Polling "
	cfg.Logging.Level = "DEBUG"
	cfg.RateLimit.ExcludeUpdates = []string{" Callback"}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestNormalizeWebhookMode(t *testing.T) {
	cfg := minimal()
	cfg.Telegram.RunMode = RunModeWebhook
	cfg.Webhook = WebhookConfig{URL: "https://bot.example.com/hook", Listen: "0.0.0.0", Port: 8443}
	require.NoError(t, Normalize(cfg))

	cfg.Webhook.Port = 0
	assert.ErrorContains(t, Normalize(cfg), "webhook.port")
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		field  string
	}{
		"missing token":   {func(c *Config) { c.Telegram.Token = "" }, "telegram.token"},
		"unknown mode":    {func(c *Config) { c.Telegram.RunMode = "push" }, "telegram.run_mode"},
		"negative delay":  {func(c *Config) { c.Telegram.RestartDelaySeconds = -1 }, "telegram.restart_delay_seconds"},
		"negative burst":  {func(c *Config) { c.RateLimit.Burst = -2 }, "rate_limit.burst"},
		"bad exclude":     {func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"poll"} }, "rate_limit.exclude_updates[0]"},
		"bad webhook url": {func(c *Config) { c.Webhook.URL = "not a url" }, "webhook.url"},
		"bad log level":   {func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := minimal()
			tc.mutate(cfg)
			assert.ErrorContains(t, Normalize(cfg), tc.field)
		})
	}
	assert.Error(t, Normalize(nil))
}
