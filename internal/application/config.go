package application

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/ahrav/go-essay-judge/infrastructure/cache"
	"github.com/ahrav/go-essay-judge/infrastructure/grammar"
	"github.com/ahrav/go-essay-judge/infrastructure/logging"
)

// EnvPrefix prefixes every environment override, e.g. ESSAYJUDGE_GRAMMAR_BACKEND.
const EnvPrefix = "ESSAYJUDGE"

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// Config is the runtime configuration of the engine and its services.
type Config struct {
	Log         logging.Config   `mapstructure:"log" yaml:"log" json:"log"`
	Tokenizer   TokenizerConfig  `mapstructure:"tokenizer" yaml:"tokenizer" json:"tokenizer"`
	Similarity  SimilarityConfig `mapstructure:"similarity" yaml:"similarity" json:"similarity"`
	Grammar     GrammarConfig    `mapstructure:"grammar" yaml:"grammar" json:"grammar"`
	Cache       CacheConfig      `mapstructure:"cache" yaml:"cache" json:"cache"`
	Storage     StorageConfig    `mapstructure:"storage" yaml:"storage" json:"storage"`
	Worker      WorkerConfig     `mapstructure:"worker" yaml:"worker" json:"worker"`
	Metrics     MetricsConfig    `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	ScorersFile string           `mapstructure:"scorers_file" yaml:"scorers_file" json:"scorers_file"`
}

// TokenizerConfig selects the tokenizer and stopword list.
type TokenizerConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode" json:"mode" validate:"oneof=linguistic naive"`

	// StopwordsFile replaces the built-in list. When it cannot be read the
	// small fallback list is used.
	StopwordsFile string `mapstructure:"stopwords_file" yaml:"stopwords_file" json:"stopwords_file"`
}

// SimilarityConfig toggles the TF-IDF similarity model used for cohesion.
type SimilarityConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// GrammarConfig selects the grammar-check backend and its call policy.
// An empty Backend disables grammar checking.
type GrammarConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend" json:"backend" validate:"omitempty,oneof=languagetool openai anthropic google"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint" validate:"omitempty,url"`
	Language string `mapstructure:"language" yaml:"language" json:"language"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Model    string `mapstructure:"model" yaml:"model" json:"model"`

	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout" validate:"gt=0"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries" validate:"gte=0,lte=10"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay" json:"retry_base_delay" validate:"gt=0"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay" yaml:"retry_max_delay" json:"retry_max_delay" validate:"gtefield=RetryBaseDelay"`

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit" validate:"gte=0"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst" json:"rate_burst" validate:"gte=1"`

	BreakerFailures int           `mapstructure:"breaker_failures" yaml:"breaker_failures" json:"breaker_failures" validate:"gte=1"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" yaml:"breaker_cooldown" json:"breaker_cooldown" validate:"gt=0"`
}

// CacheConfig selects the score cache.
type CacheConfig struct {
	Backend    string            `mapstructure:"backend" yaml:"backend" json:"backend" validate:"oneof=none memory redis"`
	TTL        time.Duration     `mapstructure:"ttl" yaml:"ttl" json:"ttl" validate:"gte=0"`
	MaxEntries int               `mapstructure:"max_entries" yaml:"max_entries" json:"max_entries" validate:"gte=0"`
	Redis      cache.RedisConfig `mapstructure:"redis" yaml:"redis" json:"redis"`
}

// StorageConfig locates the essay database.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path" json:"path" validate:"required"`
}

// WorkerConfig bounds background evaluation.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency" validate:"gte=1,lte=64"`
	QueueSize   int `mapstructure:"queue_size" yaml:"queue_size" json:"queue_size" validate:"gte=1"`
}

// MetricsConfig sets the Prometheus listen address. Empty disables serving.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr" validate:"omitempty,hostname_port"`
}

// Validate checks field constraints and cross-field requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.Redis.Addr == "" {
		return errors.New("invalid configuration: cache.redis.addr is required for the redis cache")
	}
	return nil
}

// GrammarCheckerConfig converts the section into a grammar.Config.
func (g GrammarConfig) GrammarCheckerConfig() grammar.Config {
	return grammar.Config{
		Backend:  g.Backend,
		Endpoint: g.Endpoint,
		Language: g.Language,
		APIKey:   g.APIKey,
		Model:    g.Model,
		Timeout:  g.Timeout,
	}
}

// providerKeyEnv names the conventional API key variable of each LLM backend.
var providerKeyEnv = map[string]string{
	grammar.BackendOpenAI:    "OPENAI_API_KEY",
	grammar.BackendAnthropic: "ANTHROPIC_API_KEY",
	grammar.BackendGoogle:    "GOOGLE_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatJSON)
	v.SetDefault("log.output", "stderr")

	v.SetDefault("tokenizer.mode", "linguistic")
	v.SetDefault("tokenizer.stopwords_file", "")

	v.SetDefault("similarity.enabled", true)

	v.SetDefault("grammar.backend", "")
	v.SetDefault("grammar.endpoint", "")
	v.SetDefault("grammar.language", "en-US")
	v.SetDefault("grammar.api_key", "")
	v.SetDefault("grammar.model", "")
	v.SetDefault("grammar.timeout", 10*time.Second)
	v.SetDefault("grammar.max_retries", 2)
	v.SetDefault("grammar.retry_base_delay", 200*time.Millisecond)
	v.SetDefault("grammar.retry_max_delay", 2*time.Second)
	v.SetDefault("grammar.rate_limit", 0.0)
	v.SetDefault("grammar.rate_burst", 1)
	v.SetDefault("grammar.breaker_failures", 5)
	v.SetDefault("grammar.breaker_cooldown", 30*time.Second)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.ttl", time.Hour)
	v.SetDefault("cache.max_entries", 10000)
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", cache.DefaultKeyPrefix)

	v.SetDefault("storage.path", "./data/essays.db")

	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.queue_size", 128)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("scorers_file", "")
}

// LoadConfig reads path (YAML, optional) over the defaults and applies
// ESSAYJUDGE_* environment overrides. A grammar API key left empty is read
// from the provider's conventional variable.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Grammar.APIKey == "" {
		if env, ok := providerKeyEnv[cfg.Grammar.Backend]; ok {
			cfg.Grammar.APIKey = os.Getenv(env)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
