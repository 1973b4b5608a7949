package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Env             string
	Port            string
	MongoURI        string
	DBName          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ClientURL       string
	LogLevel        string

	MetadataTimeout  time.Duration
	MetadataCacheTTL time.Duration

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Events    EventsConfig
}

// RedisConfig is optional; an empty Addr disables metadata caching and rate limiting.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
	Prefix         string
}

// EventsConfig is optional; an empty URL disables publishing.
type EventsConfig struct {
	URL      string
	Exchange string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = FromEnv()
}

// FromEnv builds a Config from the current process environment without
// touching .env files.
func FromEnv() Config {
	return Config{
		Env:             getEnvOrDefault("APP_ENV", "development"),
		Port:            getEnvOrDefault("PORT", "5000"),
		MongoURI:        getEnvOrDefault("MONGO_URI", ""),
		DBName:          getEnvOrDefault("DB_NAME", "linkly"),
		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 10, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		ClientURL:       getEnvOrDefault("CLIENT_URL", "http://localhost:5173"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),

		MetadataTimeout:  getParsedDurationEnv("METADATA_TIMEOUT", 8*time.Second),
		MetadataCacheTTL: getParsedDurationEnv("METADATA_CACHE_TTL", 24*time.Hour),

		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getBoolEnv("RATE_LIMIT_ENABLED", true),
			Capacity:       getIntEnv("RATE_LIMIT_CAPACITY", 20),
			RefillInterval: getParsedDurationEnv("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
			Prefix:         getEnvOrDefault("RATE_LIMIT_PREFIX", "rl"),
		},
		Events: EventsConfig{
			URL:      getEnvOrDefault("AMQP_URL", ""),
			Exchange: getEnvOrDefault("EVENTS_EXCHANGE", "linkly.events"),
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
