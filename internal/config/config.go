package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const ServiceName = "warehouse-state"

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	OrderAPI  OrderAPIConfig  `mapstructure:"orderapi"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Layout    LayoutConfig    `mapstructure:"layout"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// OrderAPIConfig configures the external order API client
type OrderAPIConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	BreakerTrips uint32        `mapstructure:"breaker_trips"`
	BreakerOpen  time.Duration `mapstructure:"breaker_open"`
}

// SyncConfig configures order polling. Schedule is a robfig/cron spec.
type SyncConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type SimulatorConfig struct {
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	WanderProbability float64       `mapstructure:"wander_probability"`
	TrailLength       int           `mapstructure:"trail_length"`
	SubscriberBuffer  int           `mapstructure:"subscriber_buffer"`
	DefaultSpeed      float64       `mapstructure:"default_speed"`
	Seed              int64         `mapstructure:"seed"`
	ChargingExit      string        `mapstructure:"charging_exit"`
	ChargeRate        float64       `mapstructure:"charge_rate"`
	ResumeLevel       float64       `mapstructure:"resume_level"`
	ApproachOffsetX   float64       `mapstructure:"approach_offset_x"`
	ApproachOffsetY   float64       `mapstructure:"approach_offset_y"`
}

// LayoutConfig points at an optional YAML floor plan; empty uses the built-in layout
type LayoutConfig struct {
	File string `mapstructure:"file"`
}

type MongoDBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.environment", "development")

	v.SetDefault("log.level", "info")

	v.SetDefault("orderapi.base_url", "http://localhost:3000")
	v.SetDefault("orderapi.timeout", 20*time.Second)
	v.SetDefault("orderapi.max_retries", 2)
	v.SetDefault("orderapi.retry_backoff", 200*time.Millisecond)
	v.SetDefault("orderapi.breaker_trips", 5)
	v.SetDefault("orderapi.breaker_open", 30*time.Second)

	v.SetDefault("sync.schedule", "@every 30s")

	v.SetDefault("simulator.tick_interval", 50*time.Millisecond)
	v.SetDefault("simulator.wander_probability", 0.02)
	v.SetDefault("simulator.trail_length", 10)
	v.SetDefault("simulator.subscriber_buffer", 4)
	v.SetDefault("simulator.default_speed", 2.0)
	v.SetDefault("simulator.seed", 0)
	v.SetDefault("simulator.charging_exit", "manual")
	v.SetDefault("simulator.charge_rate", 0.5)
	v.SetDefault("simulator.resume_level", 95.0)
	v.SetDefault("simulator.approach_offset_x", 0.0)
	v.SetDefault("simulator.approach_offset_y", 70.0)

	v.SetDefault("layout.file", "")

	v.SetDefault("mongodb.enabled", false)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "warehouse_state")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "wms.warehouse-state.events")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 1.0)
}

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and WSE_* environment variables, in increasing precedence.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that would otherwise fail late at startup
func (c *Config) Validate() error {
	if c.OrderAPI.BaseURL == "" {
		return fmt.Errorf("orderapi.base_url is required")
	}
	if c.Simulator.WanderProbability < 0 || c.Simulator.WanderProbability > 1 {
		return fmt.Errorf("simulator.wander_probability must be within [0,1], got %v", c.Simulator.WanderProbability)
	}
	switch c.Simulator.ChargingExit {
	case "manual", "battery_threshold":
	default:
		return fmt.Errorf("simulator.charging_exit must be manual or battery_threshold, got %q", c.Simulator.ChargingExit)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	return nil
}
