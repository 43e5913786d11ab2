package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	HTTPAddr string
	LogLevel string

	DatabaseURL string

	JWTSecret      []byte
	AccessTokenTTL time.Duration
	BcryptCost     int
	DefaultCredits int
	CookieSecure   bool

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	RedisAddr string
	RateLimit RateLimitConfig
}

type RateLimitConfig struct {
	Enabled        bool
	Prefix         string
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
}

var ErrMissingSecret = errors.New("JWT_SECRET is empty")

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		HTTPAddr: EnvDefault("HTTP_ADDR", ":8080"),
		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: EnvDefault("DATABASE_URL", "sqlite://office.db"),

		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		AccessTokenTTL: time.Duration(EnvIntDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 120)) * time.Minute,
		BcryptCost:     EnvIntDefault("BCRYPT_COST", bcrypt.DefaultCost),
		DefaultCredits: EnvIntDefault("DEFAULT_CREDITS", 1),
		CookieSecure:   EnvBoolDefault("COOKIE_SECURE", true),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "user_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "requests"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RateLimit: RateLimitConfig{
			Enabled:        EnvBoolDefault("RATE_LIMIT_ENABLED", true),
			Prefix:         EnvDefault("RATE_LIMIT_PREFIX", "rl"),
			Capacity:       EnvIntDefault("RATE_LIMIT_CAPACITY", 10),
			RefillTokens:   EnvIntDefault("RATE_LIMIT_REFILL_TOKENS", 1),
			RefillInterval: EnvDurationDefault("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
			TTL:            EnvDurationDefault("RATE_LIMIT_TTL", 10*time.Minute),
		},
	}

	if len(cfg.JWTSecret) == 0 {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 120 * time.Minute
	}
	if cfg.DefaultCredits < 0 {
		cfg.DefaultCredits = 0
	}

	return cfg, nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvDurationDefault accepts Go duration strings ("90s") or a bare number of seconds.
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
