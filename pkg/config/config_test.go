package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, time.Hour, c.Cache.TTL)
	assert.Equal(t, 7, c.Collector.LookbackDays)
	assert.Len(t, c.Collector.Tickers, 7)
	assert.Contains(t, c.Collector.Indices, "DX-Y.NYB")
	assert.Equal(t, "market_data.json", c.Storage.SnapshotFile)
	assert.Equal(t, "Daily_write_ups", c.Storage.WriteupDir)
	assert.Equal(t, "gemini-2.5-pro", c.Providers.Gemini.Model)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.False(t, c.Kafka.Enabled)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: prod
server:
  port: 9090
collector:
  tickers: [AAPL]
cache:
  ttl: 5m
`))
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, []string{"AAPL"}, c.Collector.Tickers)
	assert.Equal(t, 5*time.Minute, c.Cache.TTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"kafka without brokers", "kafka:\n  enabled: true\n"},
		{"zero ttl", "cache:\n  ttl: 0s\n"},
		{"bad port", "server:\n  port: -1\n"},
		{"empty environment", "environment: \"\"\n"},
		{"queue without redis", "queue:\n  enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o644))

	t.Setenv("FRED_API_KEY", "fred-key")
	t.Setenv("NEWS_API_KEY", "news-key")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "cache:6380")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "fred-key", c.Providers.FRED.APIKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "cache", c.Cache.Redis.Host)
	assert.Equal(t, 6380, c.Cache.Redis.Port)
	assert.NoError(t, c.ValidateCollector())
}

func TestValidateCollectorNeedsKeys(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Error(t, c.ValidateCollector())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSampleConfigParses(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.Server.WSPing)
	assert.Equal(t, 2.0, c.Providers.RefillPerSec)
	assert.Len(t, c.Collector.Indices, 9)
	assert.False(t, c.Kafka.Enabled)
}
