package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"MarketBrief/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"500ms"`
		CORS            bool          `yaml:"cors" default:"true"`
		WSBuffer        int           `yaml:"ws_buffer" default:"16"`
		WSPing          time.Duration `yaml:"ws_ping" default:"30s"`
	} `yaml:"server"`
	Logging struct {
		Level          string        `yaml:"level" default:"info"`
		Format         string        `yaml:"format" default:"console"`
		Output         string        `yaml:"output" default:"stdout"`
		DigestTopic    string        `yaml:"digest_topic"`
		DigestInterval time.Duration `yaml:"digest_interval" default:"30s"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Collector struct {
		Interval     time.Duration `yaml:"interval"`
		LookbackDays int           `yaml:"lookback_days" default:"7"`
		Tickers      []string      `yaml:"tickers" default:"[\"AAPL\",\"MSFT\",\"GOOGL\",\"AMZN\",\"NVDA\",\"META\",\"TSLA\"]"`
		Indices      []string      `yaml:"indices" default:"[\"^GSPC\",\"^DJI\",\"^IXIC\",\"^RUT\",\"^VIX\",\"CL=F\",\"BZ=F\",\"GC=F\",\"DX-Y.NYB\"]"`
		RunLockTTL   time.Duration `yaml:"run_lock_ttl" default:"10m"`
		SkipWriteup  bool          `yaml:"skip_writeup"`
	} `yaml:"collector"`
	Providers struct {
		// Outbound throttle shared by every provider, keyed by provider name.
		Burst        float64 `yaml:"burst" default:"5"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"2"`
		FRED         struct {
			APIKey  string        `yaml:"api_key"`
			BaseURL string        `yaml:"base_url" default:"https://api.stlouisfed.org"`
			Timeout time.Duration `yaml:"timeout" default:"15s"`
			Retries int           `yaml:"retries" default:"2"`
		} `yaml:"fred"`
		Yahoo struct {
			BaseURL string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
			Timeout time.Duration `yaml:"timeout" default:"15s"`
			Retries int           `yaml:"retries" default:"2"`
		} `yaml:"yahoo"`
		NewsAPI struct {
			APIKey   string        `yaml:"api_key"`
			BaseURL  string        `yaml:"base_url" default:"https://newsapi.org"`
			PageSize int           `yaml:"page_size" default:"100"`
			Queries  []string      `yaml:"queries"`
			Timeout  time.Duration `yaml:"timeout" default:"15s"`
			Retries  int           `yaml:"retries" default:"1"`
		} `yaml:"newsapi"`
		Gemini struct {
			APIKey  string        `yaml:"api_key"`
			BaseURL string        `yaml:"base_url" default:"https://generativelanguage.googleapis.com"`
			Model   string        `yaml:"model" default:"gemini-2.5-pro"`
			Timeout time.Duration `yaml:"timeout" default:"120s"`
			Retries int           `yaml:"retries" default:"1"`
		} `yaml:"gemini"`
	} `yaml:"providers"`
	Storage struct {
		DataDir      string `yaml:"data_dir" default:"."`
		SnapshotFile string `yaml:"snapshot_file" default:"market_data.json"`
		WriteupDir   string `yaml:"writeup_dir" default:"Daily_write_ups"`
	} `yaml:"storage"`
	Cache struct {
		TTL           time.Duration `yaml:"ttl" default:"1h"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"64"`
		Redis         struct {
			Enabled     bool          `yaml:"enabled"`
			Host        string        `yaml:"host" default:"localhost"`
			Port        int           `yaml:"port" default:"6379"`
			Password    string        `yaml:"password"`
			DB          int           `yaml:"db"`
			Prefix      string        `yaml:"prefix" default:"marketbrief"`
			PoolSize    int           `yaml:"pool_size" default:"10"`
			MinIdle     int           `yaml:"min_idle" default:"2"`
			PoolTimeout time.Duration `yaml:"pool_timeout" default:"4s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	// Queue carries on-demand collection requests over Redis. Needs cache.redis.
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		Workers    int           `yaml:"workers" default:"1"`
		RetryLimit int           `yaml:"retry_limit" default:"2"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		Prefix     string        `yaml:"prefix" default:"marketbrief:queue"`
	} `yaml:"queue"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		SnapshotTopic string   `yaml:"snapshot_topic" default:"marketbrief.snapshots"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"gzip"`
		Producer      struct {
			MaxAttempts      int           `yaml:"max_attempts" default:"3"`
			WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
			AutoCreateTopics bool          `yaml:"auto_create_topics"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"marketbrief-dashboard"`
			Workers    int           `yaml:"workers" default:"1"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"marketbrief"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime" default:"5m"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	RateLimit struct {
		Enabled      bool    `yaml:"enabled"`
		Capacity     float64 `yaml:"capacity" default:"30"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"5"`
	} `yaml:"rate_limit"`
}

// Default returns a config with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Parse reads YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		c.Providers.FRED.APIKey = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		c.Providers.NewsAPI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Providers.Gemini.APIKey = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, _ := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		c.Cache.Redis.Port = util.ParseIntDefault(port, c.Cache.Redis.Port)
		c.Cache.Redis.Enabled = true
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive, got %d", c.Server.Port)
	}
	if c.Storage.DataDir == "" || c.Storage.SnapshotFile == "" {
		return fmt.Errorf("storage.data_dir and storage.snapshot_file are required")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Collector.LookbackDays <= 0 {
		return fmt.Errorf("collector.lookback_days must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.SnapshotTopic == "" {
		return fmt.Errorf("kafka.snapshot_topic is required when kafka is enabled")
	}
	if c.Queue.Enabled && !c.Cache.Redis.Enabled {
		return fmt.Errorf("queue requires cache.redis to be enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}

// ValidateCollector checks the settings only the collector needs.
func (c *Config) ValidateCollector() error {
	if c.Providers.FRED.APIKey == "" {
		return fmt.Errorf("providers.fred.api_key is required")
	}
	if c.Providers.NewsAPI.APIKey == "" {
		return fmt.Errorf("providers.newsapi.api_key is required")
	}
	if len(c.Collector.Tickers) == 0 && len(c.Collector.Indices) == 0 {
		return fmt.Errorf("collector.tickers and collector.indices cannot both be empty")
	}
	return nil
}
