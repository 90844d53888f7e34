package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`

	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`

	Redis struct {
		Host         string `yaml:"host" default:"localhost"`
		Port         int    `yaml:"port" default:"6379"`
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		PoolSize     int    `yaml:"pool_size" default:"10"`
		MinIdleConns int    `yaml:"min_idle_conns" default:"5"`
		Prefix       string `yaml:"prefix" default:"patterntrade"`
	} `yaml:"redis"`

	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"patterntrade"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`

	Kafka struct {
		Brokers  []string `yaml:"brokers"`
		Topic    string   `yaml:"topic" default:"candles"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"patterntrade"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"1024"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	Feed struct {
		// Source selects the candle input: kafka (live), socket (live),
		// or replay (backtest over the durable store or a CSV file).
		Source         string        `yaml:"source" default:"kafka" validate:"oneof=kafka socket replay"`
		SocketURL      string        `yaml:"socket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"3s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"15s"`
		Symbols        []string      `yaml:"symbols"`
		Timeframes     []string      `yaml:"timeframes" default:"[\"5m\"]"`

		// Replay bounds. ReplayCSV takes priority over the durable
		// store when set; from/to accept RFC3339 or unix seconds.
		ReplayCSV       string `yaml:"replay_csv"`
		ReplaySymbol    string `yaml:"replay_symbol"`
		ReplayTimeframe string `yaml:"replay_timeframe" default:"5m"`
		ReplayFrom      string `yaml:"replay_from"`
		ReplayTo        string `yaml:"replay_to"`
	} `yaml:"feed"`

	Queue struct {
		Workers    int           `yaml:"workers" default:"2"`
		QueueSize  int           `yaml:"queue_size" default:"1024"`
		RetryLimit int           `yaml:"retry_limit" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"2s"`

		// WebhookURL, when set, receives every order lifecycle event
		// as a JSON POST.
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"queue"`

	Engine EngineConfig `yaml:"engine"`
}

// EngineConfig holds the decision-pipeline tunables. The hammer
// thresholds are the externally configured values the detector reads;
// none of them are hard-coded in the pattern code.
type EngineConfig struct {
	Mode         string   `yaml:"mode" default:"live" validate:"oneof=live backtest"`
	Algos        []string `yaml:"algos" default:"[\"hammer\"]"`
	SMAWindow    int      `yaml:"sma_window" default:"9" validate:"min=2"`
	PivotDepth   int      `yaml:"pivot_depth" default:"3" validate:"min=1"`
	PivotWorkers int      `yaml:"pivot_workers" default:"4" validate:"min=1"`

	// TradeEndCutoff is wall-clock HH:MM; executed orders still open at
	// this time are force-closed at the current close.
	TradeEndCutoff string `yaml:"trade_end_cutoff" default:"15:15"`

	Hammer HammerConfig `yaml:"hammer"`
}

// HammerConfig holds the hammer-pattern thresholds.
type HammerConfig struct {
	SupportTolerance   float64 `yaml:"support_tolerance" default:"0.002"`
	RedStreakThreshold int     `yaml:"red_streak_threshold" default:"3"`
	DropThreshold      float64 `yaml:"drop_threshold" default:"20"`
	DropWindow         int     `yaml:"drop_window" default:"10" validate:"min=2"`
	SLMarginPoints     float64 `yaml:"sl_margin_points" default:"1"`
	TargetMultiplier   float64 `yaml:"target_multiplier" default:"1.5"`
	Quantity           int     `yaml:"quantity" default:"10" validate:"min=1"`
}

var validate = validator.New()

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides secrets and
// endpoints from environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FEED_SOCKET_URL"); v != "" {
		c.Feed.SocketURL = v
	}

	return c, nil
}
