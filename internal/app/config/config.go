package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP          HTTPConfig          `mapstructure:"http"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	Assistant     AssistantConfig     `mapstructure:"assistant"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type HTTPConfig struct {
	Addr            string `mapstructure:"addr"`
	InternalToken   string `mapstructure:"internal_token"`
	CORSAllowOrigin string `mapstructure:"cors_allow_origin"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type OpenAIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	SummaryModel   string `mapstructure:"summary_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

type AssistantConfig struct {
	RetryBudget         int           `mapstructure:"retry_budget"`
	TopN                int           `mapstructure:"top_n"`
	CDNHost             string        `mapstructure:"cdn_host"`
	SummaryThreshold    int           `mapstructure:"summary_threshold"`
	KeepRecentTurns     int           `mapstructure:"keep_recent_turns"`
	RecentlyViewedLimit int           `mapstructure:"recently_viewed_limit"`
	BestSellerLimit     int           `mapstructure:"best_seller_limit"`
	BestSellerTTL       time.Duration `mapstructure:"best_seller_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func applyDefaults(v *viper.Viper) {
	// Required keys get empty defaults so viper resolves them from the
	// environment; validate rejects the empties.
	v.SetDefault("database.url", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("http.internal_token", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_allow_origin", "*")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.index", "catalog-embeddings")
	v.SetDefault("openai.base_url", "https://api.openai.com")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.summary_model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("assistant.retry_budget", 3)
	v.SetDefault("assistant.top_n", 5)
	v.SetDefault("assistant.cdn_host", "https://cdn.shopify.com/")
	v.SetDefault("assistant.summary_threshold", 1500)
	v.SetDefault("assistant.keep_recent_turns", 6)
	v.SetDefault("assistant.recently_viewed_limit", 5)
	v.SetDefault("assistant.best_seller_limit", 5)
	v.SetDefault("assistant.best_seller_ttl", 24*time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func validate(cfg Config) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if cfg.HTTP.InternalToken == "" {
		return fmt.Errorf("http.internal_token is required")
	}
	if cfg.Assistant.RetryBudget < 0 {
		return fmt.Errorf("assistant.retry_budget must be >= 0")
	}
	return nil
}
