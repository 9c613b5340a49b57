package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	oauth := func() Config {
		c := DefaultConfig()
		c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "refresh"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"oauth", func(*Config) {}, ""},
		{"service account", func(c *Config) {
			c.ClientID, c.ClientSecret, c.RefreshToken = "", "", ""
			c.ServiceAccountPath = "/tmp/sa.json"
		}, ""},
		{"no auth", func(c *Config) { c.RefreshToken = "" }, "no authentication"},
		{"both auth", func(c *Config) { c.ServiceAccountPath = "/tmp/sa.json" }, "multiple authentication"},
		{"bad batch", func(c *Config) { c.BatchSize = 0 }, "batch size"},
		{"negative retries", func(c *Config) { c.RetryAttempts = -1 }, "retry attempts"},
		{"no target", func(c *Config) { c.SpreadsheetName = "" }, "spreadsheet ID or name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := oauth()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "Asia/Kolkata", c.TimeZone)
	assert.True(t, c.EnableFormatting)
	assert.Equal(t, 1000, c.BatchSize)
}
