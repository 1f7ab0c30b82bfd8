package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Engine     EngineConfig     `yaml:"engine"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	MarketData MarketDataConfig `yaml:"market_data"`
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type EngineConfig struct {
	PricePoints   int64  `yaml:"price_points"`
	CommandBuffer int    `yaml:"command_buffer"`
	PriceIndex    string `yaml:"price_index"` // "scan" or "skiplist"
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// DatabaseConfig enables the trade journal when URL is set.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// KafkaConfig enables the trade and market data feed when Brokers is set.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	TradeTopic   string   `yaml:"trade_topic"`
	SummaryTopic string   `yaml:"summary_topic"`
}

type MarketDataConfig struct {
	Interval time.Duration `yaml:"interval"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:           ":3000",
			RequestTimeout: 3 * time.Second,
		},
		Engine: EngineConfig{
			PricePoints:   1_000_000,
			CommandBuffer: 1024,
			PriceIndex:    "scan",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Kafka: KafkaConfig{
			TradeTopic:   "trades",
			SummaryTopic: "market-summary",
		},
		MarketData: MarketDataConfig{
			Interval: time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty), a .env file next to it, and finally the process
// environment. Variables already set in the environment win over .env.
func Load(path string) (*Config, error) {
	cfg := Default()

	envPath := ".env"
	if path != "" {
		envPath = filepath.Join(filepath.Dir(path), ".env")
	}
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "load %s", envPath)
	}

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open config file")
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, errors.Wrap(err, "decode config file")
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PRICE_POINTS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "PRICE_POINTS (%s)", v)
		}
		c.Engine.PricePoints = n
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return errors.Errorf("http.request_timeout (%s) must be positive", c.HTTP.RequestTimeout)
	}
	if c.Engine.PricePoints < 1 {
		return errors.Errorf("engine.price_points (%d) must be at least 1", c.Engine.PricePoints)
	}
	if c.Engine.CommandBuffer < 0 {
		return errors.Errorf("engine.command_buffer (%d) must not be negative", c.Engine.CommandBuffer)
	}
	switch c.Engine.PriceIndex {
	case "scan", "skiplist":
	default:
		return errors.Errorf("engine.price_index (%s) must be scan or skiplist", c.Engine.PriceIndex)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return errors.Errorf("log.format (%s) must be json or text", c.Log.Format)
	}
	if c.MarketData.Interval <= 0 {
		return errors.Errorf("market_data.interval (%s) must be positive", c.MarketData.Interval)
	}
	if len(c.Kafka.Brokers) > 0 && (c.Kafka.TradeTopic == "" || c.Kafka.SummaryTopic == "") {
		return errors.New("kafka topics are required when brokers are set")
	}
	return nil
}
