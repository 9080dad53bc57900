package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 1954, cfg.YearMin)
	assert.Equal(t, 2014, cfg.YearMax)
	assert.Equal(t, DefaultTopologyURL, cfg.TopologyURL)
	assert.Empty(t, cfg.TopologyPath)
	assert.Equal(t, 10*time.Second, cfg.TopologyTimeout)
	assert.Equal(t, 960, cfg.MapWidth)
	assert.Equal(t, 480, cfg.MapHeight)
	assert.Equal(t, 3, cfg.MaxScale)
	assert.Equal(t, 0.98, cfg.ClampQuantile)
	assert.Equal(t, 128, cfg.FrameCacheSize)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "dataset-updates", cfg.KafkaTopic)
	assert.Equal(t, "precip-atlas", cfg.KafkaGroupID)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATA_DIR", "/srv/precip")
	t.Setenv("YEAR_MIN", "1960")
	t.Setenv("YEAR_MAX", "2000")
	t.Setenv("TOPOLOGY_URL", "http://mirror.local/countries-110m.json")
	t.Setenv("TOPOLOGY_PATH", "/srv/topo.json")
	t.Setenv("TOPOLOGY_TIMEOUT", "3s")
	t.Setenv("MAP_WIDTH", "1440")
	t.Setenv("MAP_HEIGHT", "720")
	t.Setenv("MAX_SCALE", "2")
	t.Setenv("CLAMP_QUANTILE", "0.95")
	t.Setenv("FRAME_CACHE_SIZE", "32")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-updates")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/srv/precip", cfg.DataDir)
	assert.Equal(t, 1960, cfg.YearMin)
	assert.Equal(t, 2000, cfg.YearMax)
	assert.Equal(t, "http://mirror.local/countries-110m.json", cfg.TopologyURL)
	assert.Equal(t, "/srv/topo.json", cfg.TopologyPath)
	assert.Equal(t, 3*time.Second, cfg.TopologyTimeout)
	assert.Equal(t, 1440, cfg.MapWidth)
	assert.Equal(t, 720, cfg.MapHeight)
	assert.Equal(t, 2, cfg.MaxScale)
	assert.Equal(t, 0.95, cfg.ClampQuantile)
	assert.Equal(t, 32, cfg.FrameCacheSize)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-updates", cfg.KafkaTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_YearRangeInverted(t *testing.T) {
	t.Setenv("YEAR_MIN", "2000")
	t.Setenv("YEAR_MAX", "1990")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YEAR_MIN")
}

func TestLoad_InvalidClampQuantile(t *testing.T) {
	t.Setenv("CLAMP_QUANTILE", "1.0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLAMP_QUANTILE")
}

func TestLoad_ZeroClampQuantileDisables(t *testing.T) {
	t.Setenv("CLAMP_QUANTILE", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.ClampQuantile)
}

func TestLoad_InvalidMapSize(t *testing.T) {
	t.Setenv("MAP_WIDTH", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAP_WIDTH")
}

func TestLoad_MaxScaleOutOfRange(t *testing.T) {
	t.Setenv("MAX_SCALE", "9")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_SCALE")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaBrokersImplyEnabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}
