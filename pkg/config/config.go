package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Distribution backends.
const (
	DistributionRedis = "redis"
	DistributionNATS  = "nats"
	DistributionLog   = "log"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Context      ContextConfig
	ReplyTree    ReplyTreeConfig
	Quotes       QuotesConfig
	Distribution DistributionConfig
	Events       EventsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ContextConfig bounds thread resolution and its cache.
type ContextConfig struct {
	CacheEnabled          bool
	CacheTTL              time.Duration
	AncestorsLimit        int
	DescendantsLimit      int
	DescendantsDepthLimit int
}

// ReplyTreeConfig tunes the compact reply tree endpoint.
type ReplyTreeConfig struct {
	MaxLevel   int
	FetchLimit int
}

// QuotesConfig gates the quote endpoints.
type QuotesConfig struct {
	Enabled   bool
	ListLimit int
}

// DistributionConfig selects how status updates are fanned out to subscribers.
type DistributionConfig struct {
	Backend    string
	Channel    string
	NATSURL    string
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// EventsConfig names the channel carrying status create/edit/delete events.
type EventsConfig struct {
	StatusChannel string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Context = ContextConfig{
		CacheEnabled:          v.GetBool("CONTEXT_CACHE_ENABLED"),
		CacheTTL:              parseDuration(v.GetString("CONTEXT_CACHE_TTL"), 5*time.Minute),
		AncestorsLimit:        v.GetInt("CONTEXT_ANCESTORS_LIMIT"),
		DescendantsLimit:      v.GetInt("CONTEXT_DESCENDANTS_LIMIT"),
		DescendantsDepthLimit: v.GetInt("CONTEXT_DESCENDANTS_DEPTH_LIMIT"),
	}

	cfg.ReplyTree = ReplyTreeConfig{
		MaxLevel:   v.GetInt("REPLY_TREE_MAX_LEVEL"),
		FetchLimit: v.GetInt("REPLY_TREE_FETCH_LIMIT"),
	}

	cfg.Quotes = QuotesConfig{
		Enabled:   v.GetBool("ENABLE_QUOTES"),
		ListLimit: v.GetInt("QUOTES_LIST_LIMIT"),
	}

	cfg.Distribution = DistributionConfig{
		Backend:    strings.ToLower(strings.TrimSpace(v.GetString("DISTRIBUTION_BACKEND"))),
		Channel:    v.GetString("DISTRIBUTION_CHANNEL"),
		NATSURL:    v.GetString("NATS_URL"),
		Workers:    v.GetInt("DISTRIBUTION_WORKERS"),
		Retries:    v.GetInt("DISTRIBUTION_RETRIES"),
		RetryDelay: parseDuration(v.GetString("DISTRIBUTION_RETRY_DELAY"), time.Second),
	}

	cfg.Events = EventsConfig{
		StatusChannel: v.GetString("STATUS_EVENTS_CHANNEL"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "statusgraph")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "statusgraph")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CONTEXT_CACHE_ENABLED", true)
	v.SetDefault("CONTEXT_CACHE_TTL", "5m")
	v.SetDefault("CONTEXT_ANCESTORS_LIMIT", 40)
	v.SetDefault("CONTEXT_DESCENDANTS_LIMIT", 60)
	v.SetDefault("CONTEXT_DESCENDANTS_DEPTH_LIMIT", 0)

	v.SetDefault("REPLY_TREE_MAX_LEVEL", 2)
	v.SetDefault("REPLY_TREE_FETCH_LIMIT", 500)

	v.SetDefault("ENABLE_QUOTES", true)
	v.SetDefault("QUOTES_LIST_LIMIT", 40)

	v.SetDefault("DISTRIBUTION_BACKEND", DistributionRedis)
	v.SetDefault("DISTRIBUTION_CHANNEL", "statuses:distribution")
	v.SetDefault("NATS_URL", "nats://127.0.0.1:4222")
	v.SetDefault("DISTRIBUTION_WORKERS", 2)
	v.SetDefault("DISTRIBUTION_RETRIES", 3)
	v.SetDefault("DISTRIBUTION_RETRY_DELAY", "1s")

	v.SetDefault("STATUS_EVENTS_CHANNEL", "statuses:events")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
