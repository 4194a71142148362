// Package config loads settings from defaults, an optional YAML file and
// the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App        AppConfig        `koanf:"app"`
	Server     ServerConfig     `koanf:"server"`
	Mongo      MongoConfig      `koanf:"mongo"`
	Token      TokenConfig      `koanf:"token"`
	Payment    PaymentConfig    `koanf:"payment"`
	Enrollment EnrollmentConfig `koanf:"enrollment"`
	RabbitMQ   RabbitMQConfig   `koanf:"rabbitmq"`
	Mail       MailConfig       `koanf:"mail"`
	Redis      RedisConfig      `koanf:"redis"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	CORS       CORSConfig       `koanf:"cors"`
}

type AppConfig struct {
	Environment string `koanf:"environment"`
	// Store selects the backend: mongo or memory.
	Store string `koanf:"store"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	GRPCPort        int           `koanf:"grpc_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	HealthInterval  time.Duration `koanf:"health_interval"`
}

type MongoConfig struct {
	URI         string `koanf:"uri"`
	User        string `koanf:"user"`
	Pass        string `koanf:"pass"`
	Host        string `koanf:"host"`
	Database    string `koanf:"database"`
	MaxPoolSize int    `koanf:"max_pool_size"`
}

type TokenConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

type PaymentConfig struct {
	SecretKey string `koanf:"secret_key"`
	Currency  string `koanf:"currency"`
}

type EnrollmentConfig struct {
	SeatGuard bool `koanf:"seat_guard"`
}

type RabbitMQConfig struct {
	URL string `koanf:"url"`
}

type MailConfig struct {
	Domain string `koanf:"domain"`
	APIKey string `koanf:"api_key"`
	From   string `koanf:"from"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

type RateLimitConfig struct {
	Requests int `koanf:"requests"`
	Burst    int `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Load reads .env when present, then layers defaults, the YAML file at
// path (skipped when empty) and environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.environment": "production",
		"app.store":       StoreMongo,

		"server.port":             5000,
		"server.grpc_port":        6969,
		"server.read_timeout":     "15s",
		"server.write_timeout":    "30s",
		"server.shutdown_timeout": "15s",
		"server.health_interval":  "10s",

		"mongo.database":      "sportyDb",
		"mongo.max_pool_size": 50,

		"token.ttl": "1h",

		"payment.currency": "usd",

		"enrollment.seat_guard": true,

		"mail.from": "Sporty <no-reply@sporty.local>",

		"rate_limit.requests": 120,
		"rate_limit.burst":    30,

		"cors.allowed_origins": []string{"*"},
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"APP_ENV":              "app.environment",
	"STORE":                "app.store",
	"PORT":                 "server.port",
	"GRPC_PORT":            "server.grpc_port",
	"MONGO_URI":            "mongo.uri",
	"DB_USER":              "mongo.user",
	"DB_PASS":              "mongo.pass",
	"DB_HOST":              "mongo.host",
	"MONGO_DATABASE":       "mongo.database",
	"MONGO_MAX_POOL_SIZE":  "mongo.max_pool_size",
	"ACCESS_TOKEN_SECRET":  "token.secret",
	"TOKEN_TTL":            "token.ttl",
	"PAYMENT_SECRET_KEY":   "payment.secret_key",
	"PAYMENT_CURRENCY":     "payment.currency",
	"SEAT_GUARD":           "enrollment.seat_guard",
	"RABBITMQ_CONNSTRING":  "rabbitmq.url",
	"MAILGUN_DOMAIN":       "mail.domain",
	"MAILGUN_API_KEY":      "mail.api_key",
	"MAIL_FROM":            "mail.from",
	"REDIS_URL":            "redis.url",
	"RATE_LIMIT_REQUESTS":  "rate_limit.requests",
	"RATE_LIMIT_BURST":     "rate_limit.burst",
	"CORS_ALLOWED_ORIGINS": "cors.allowed_origins",
}

func envValue(key, value string) (string, any) {
	mapped, ok := envKeyMap[key]
	if !ok {
		return "", nil
	}

	if mapped == "cors.allowed_origins" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return mapped, parts
	}
	return mapped, value
}

func (c *Config) Validate() error {
	if c.Token.Secret == "" {
		return errors.New("ACCESS_TOKEN_SECRET is required")
	}

	if c.Token.TTL <= 0 {
		return errors.New("token.ttl must be positive")
	}

	switch c.App.Store {
	case StoreMongo:
		if c.MongoConnString() == "" {
			return errors.New("MONGO_URI or DB_USER, DB_PASS and DB_HOST are required")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", c.App.Store)
	}

	if c.Mongo.MaxPoolSize <= 0 {
		return errors.New("mongo.max_pool_size must be positive")
	}

	if c.RateLimit.Requests <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit requests and burst must be positive")
	}

	return nil
}

// MongoConnString is MONGO_URI when set, otherwise an Atlas URI built
// from DB_USER, DB_PASS and DB_HOST.
func (c *Config) MongoConnString() string {
	if c.Mongo.URI != "" {
		return c.Mongo.URI
	}
	if c.Mongo.User == "" || c.Mongo.Pass == "" || c.Mongo.Host == "" {
		return ""
	}

	u := url.URL{
		Scheme:   "mongodb+srv",
		User:     url.UserPassword(c.Mongo.User, c.Mongo.Pass),
		Host:     c.Mongo.Host,
		Path:     "/",
		RawQuery: "retryWrites=true&w=majority",
	}
	return u.String()
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

func (s *ServerConfig) GRPCAddress() string {
	return fmt.Sprintf(":%d", s.GRPCPort)
}
