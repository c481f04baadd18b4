package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FinPrompt/internal/domain/apperr"
	"FinPrompt/pkg/logger"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	Log         logger.Config `yaml:"log"`
	Data        struct {
		Dir            string `yaml:"dir" default:"data"`
		PriceSource    string `yaml:"price_source" default:"csv" validate:"oneof=csv clickhouse"`
		PriceFile      string `yaml:"price_file" default:"stock_price_history.csv"`
		NewsFile       string `yaml:"news_file" default:"news_history.csv"`
		TranscriptFile string `yaml:"transcript_file" default:"earnings_transcripts.csv"`
		StatementFile  string `yaml:"statement_file" default:"financial_statement_history.csv"`
		SentimentFile  string `yaml:"sentiment_file" default:"news_sentiment.csv"`
	} `yaml:"data"`
	LLM struct {
		Provider  string        `yaml:"provider" validate:"omitempty,oneof=openai claude gemini"`
		Model     string        `yaml:"model" default:"deepseek-chat"`
		BaseURL   string        `yaml:"base_url" default:"https://api.deepseek.com"`
		APIKey    string        `yaml:"api_key"`
		MaxTokens int           `yaml:"max_tokens" default:"1024" validate:"gt=0"`
		Timeout   time.Duration `yaml:"timeout" default:"2m"`
		RPS       float64       `yaml:"rps" validate:"gte=0"`
		Burst     int           `yaml:"burst" default:"1" validate:"gte=0"`
	} `yaml:"llm"`
	Pipeline struct {
		WindowSize    int     `yaml:"window_size" default:"30" validate:"gt=0"`
		WindowWorkers int     `yaml:"window_workers" default:"1" validate:"gt=0"`
		Workers       int     `yaml:"workers" default:"10" validate:"gt=0"`
		NewsWorkers   int     `yaml:"news_workers" default:"10" validate:"gt=0"`
		Temperature   float64 `yaml:"temperature" default:"0.1" validate:"gte=0,lte=2"`
		MinCount      int     `yaml:"min_count" default:"50" validate:"gte=0"`
	} `yaml:"pipeline"`
	Cache struct {
		Backend    string        `yaml:"backend" default:"none" validate:"oneof=none memory redis layered"`
		TTL        time.Duration `yaml:"ttl" default:"24h"`
		MemorySize int           `yaml:"memory_size" default:"10000" validate:"gt=0"`
		Redis      struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"finprompt"`

			PoolSize     int           `yaml:"pool_size" default:"10" validate:"gt=0"`
			MinIdleConns int           `yaml:"min_idle_conns" default:"2" validate:"gte=0"`
			PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table" default:"stock_price_history"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled     bool     `yaml:"enabled"`
		Brokers     []string `yaml:"brokers"`
		Topic       string   `yaml:"topic" default:"finprompt.results"`
		JobsTopic   string   `yaml:"jobs_topic" default:"finprompt.jobs"`
		LogTopic    string   `yaml:"log_topic" default:"finprompt.failures"`
		Compression string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer    struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"finprompt"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"500ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"30s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"finprompt.jobs.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Queue struct {
		Backend    string        `yaml:"backend" default:"kafka" validate:"oneof=kafka redis"`
		Workers    int           `yaml:"workers" default:"2" validate:"gt=0"`
		RetryLimit int           `yaml:"retry_limit" default:"3" validate:"gte=0"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		KeyPrefix  string        `yaml:"key_prefix" default:"finprompt:jobs"`
	} `yaml:"queue"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10m"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

var validate = validator.New()

// Default returns a config with every default applied.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, apperr.InvalidParameter("config", "parse %s: %v", path, err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadWithEnv loads .env (if present), then the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("DEEPSEEK_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = getenv(apiKeyEnv(c.LLM.Provider, c.LLM.Model))
	}
	if v := getenv("DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

func apiKeyEnv(provider, model string) string {
	m := strings.ToLower(model)
	switch {
	case provider == "claude", provider == "" && strings.HasPrefix(m, "claude"):
		return "ANTHROPIC_API_KEY"
	case provider == "gemini", provider == "" && strings.HasPrefix(m, "gemini"):
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperr.InvalidParameter("config", "%v", err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return apperr.InvalidParameter("config", "kafka.brokers is required when kafka is enabled")
	}
	if c.Kafka.Consumer.BackoffMax < c.Kafka.Consumer.BackoffMin {
		return apperr.InvalidParameter("config", "kafka.consumer.backoff_max must be >= backoff_min")
	}
	return nil
}

// DataPath joins a data file name onto Data.Dir; absolute names are kept.
func (c *Config) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}
