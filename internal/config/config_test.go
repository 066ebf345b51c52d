package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "@every 30s", cfg.Sync.Schedule)
	assert.Equal(t, 50*time.Millisecond, cfg.Simulator.TickInterval)
	assert.Equal(t, 10, cfg.Simulator.TrailLength)
	assert.Equal(t, "manual", cfg.Simulator.ChargingExit)
	assert.Equal(t, 70.0, cfg.Simulator.ApproachOffsetY)
	assert.Equal(t, 20*time.Second, cfg.OrderAPI.Timeout)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WSE_ORDERAPI_BASE_URL", "http://orders.internal:8080")
	t.Setenv("WSE_SIMULATOR_TICK_INTERVAL", "100ms")
	t.Setenv("WSE_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("WSE_SYNC_SCHEDULE", "@every 5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://orders.internal:8080", cfg.OrderAPI.BaseURL)
	assert.Equal(t, 100*time.Millisecond, cfg.Simulator.TickInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "@every 5s", cfg.Sync.Schedule)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
simulator:
  charging_exit: battery_threshold
  resume_level: 80
mongodb:
  enabled: true
  database: wse_test
`), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "battery_threshold", cfg.Simulator.ChargingExit)
	assert.Equal(t, 80.0, cfg.Simulator.ResumeLevel)
	assert.True(t, cfg.MongoDB.Enabled)
	assert.Equal(t, "wse_test", cfg.MongoDB.Database)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WSE_SIMULATOR_CHARGING_EXIT", "timer")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charging_exit")

	t.Setenv("WSE_SIMULATOR_CHARGING_EXIT", "manual")
	t.Setenv("WSE_SIMULATOR_WANDER_PROBABILITY", "1.5")
	_, err = Load()
	assert.Error(t, err)
}
