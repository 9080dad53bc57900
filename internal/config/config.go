package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultTopologyURL points at the world-atlas countries topology used for
// the border overlay. Overridable for mirrors or pinned copies.
const DefaultTopologyURL = "https://cdn.jsdelivr.net/npm/world-atlas@2/countries-110m.json"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset configuration. CSVs are expected at
	// <DataDir>/processed/pr_by_year/pr_<year>_win5.csv.
	DataDir string
	YearMin int
	YearMax int

	// Topology (country boundary) source. A non-empty TopologyPath takes
	// precedence over the URL.
	TopologyURL     string
	TopologyPath    string
	TopologyTimeout time.Duration

	// Rendering configuration.
	MapWidth       int
	MapHeight      int
	MaxScale       int
	ClampQuantile  float64
	FrameCacheSize int

	// Optional Kafka dataset-update listener.
	KafkaBrokers []string
	KafkaEnabled bool
	KafkaTopic   string
	KafkaGroupID string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	topologyTimeout, err := parseDurationEnv("TOPOLOGY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	yearMin, err := parseIntEnv("YEAR_MIN", 1954)
	if err != nil {
		return nil, err
	}
	yearMax, err := parseIntEnv("YEAR_MAX", 2014)
	if err != nil {
		return nil, err
	}

	mapWidth, err := parseIntEnv("MAP_WIDTH", 960)
	if err != nil {
		return nil, err
	}
	mapHeight, err := parseIntEnv("MAP_HEIGHT", 480)
	if err != nil {
		return nil, err
	}
	maxScale, err := parseIntEnv("MAX_SCALE", 3)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntEnv("FRAME_CACHE_SIZE", 128)
	if err != nil {
		return nil, err
	}

	clampQuantile, err := parseFloatEnv("CLAMP_QUANTILE", 0.98)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir: envOrDefault("DATA_DIR", "./data"),
		YearMin: yearMin,
		YearMax: yearMax,

		TopologyURL:     envOrDefault("TOPOLOGY_URL", DefaultTopologyURL),
		TopologyPath:    os.Getenv("TOPOLOGY_PATH"),
		TopologyTimeout: topologyTimeout,

		MapWidth:       mapWidth,
		MapHeight:      mapHeight,
		MaxScale:       maxScale,
		ClampQuantile:  clampQuantile,
		FrameCacheSize: cacheSize,

		KafkaBrokers: brokers,
		KafkaEnabled: kafkaEnabled,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "dataset-updates"),
		KafkaGroupID: envOrDefault("KAFKA_GROUP_ID", "precip-atlas"),
	}

	if cfg.YearMin > cfg.YearMax {
		return nil, errors.New("YEAR_MIN must not exceed YEAR_MAX")
	}
	if cfg.MapWidth <= 0 || cfg.MapHeight <= 0 {
		return nil, errors.New("MAP_WIDTH and MAP_HEIGHT must be positive")
	}
	if cfg.MaxScale < 1 || cfg.MaxScale > 8 {
		return nil, errors.New("MAX_SCALE must be between 1 and 8")
	}
	if cfg.ClampQuantile < 0 || cfg.ClampQuantile >= 1 {
		return nil, errors.New("CLAMP_QUANTILE must be in [0, 1); 0 disables clamping")
	}
	if cfg.FrameCacheSize < 1 {
		return nil, errors.New("FRAME_CACHE_SIZE must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
