package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageMemory    = "memory"
	StoragePostgres  = "postgres"
	StorageFirestore = "firestore"

	PresenceMemory = "memory"
	PresenceRedis  = "redis"
)

type Config struct {
	ServerPort  string
	Environment string

	JWTSecret string
	JWTExpiry int64

	StorageDriver string
	DatabaseURL   string

	FirebaseProject            string
	FirebaseServiceAccountPath string
	FirebaseServiceAccountJSON string

	PresenceDriver string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	PresenceTTL    time.Duration

	NatsURL string

	MessageRatePerSecond float64
	MessageRateBurst     int
}

func Load() (*Config, error) {
	godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("JWT_SECRET", "your-secret-key")
	v.SetDefault("JWT_EXPIRY", 24*60*60) // 24 hours
	v.SetDefault("STORAGE_DRIVER", StorageMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_PATH", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_JSON", "")
	v.SetDefault("PRESENCE_DRIVER", PresenceMemory)
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PRESENCE_TTL_SECONDS", 90)
	v.SetDefault("NATS_URL", "")
	v.SetDefault("MESSAGE_RATE_PER_SECOND", 5.0)
	v.SetDefault("MESSAGE_RATE_BURST", 20)

	config := &Config{
		ServerPort:                 v.GetString("SERVER_PORT"),
		Environment:                v.GetString("ENVIRONMENT"),
		JWTSecret:                  v.GetString("JWT_SECRET"),
		JWTExpiry:                  v.GetInt64("JWT_EXPIRY"),
		StorageDriver:              strings.ToLower(v.GetString("STORAGE_DRIVER")),
		DatabaseURL:                v.GetString("DATABASE_URL"),
		FirebaseProject:            v.GetString("FIREBASE_PROJECT_ID"),
		FirebaseServiceAccountPath: v.GetString("FIREBASE_SERVICE_ACCOUNT_PATH"),
		FirebaseServiceAccountJSON: v.GetString("FIREBASE_SERVICE_ACCOUNT_JSON"),
		PresenceDriver:             strings.ToLower(v.GetString("PRESENCE_DRIVER")),
		RedisAddr:                  v.GetString("REDIS_ADDR"),
		RedisPassword:              v.GetString("REDIS_PASSWORD"),
		RedisDB:                    v.GetInt("REDIS_DB"),
		PresenceTTL:                time.Duration(v.GetInt("PRESENCE_TTL_SECONDS")) * time.Second,
		NatsURL:                    v.GetString("NATS_URL"),
		MessageRatePerSecond:       v.GetFloat64("MESSAGE_RATE_PER_SECOND"),
		MessageRateBurst:           v.GetInt("MESSAGE_RATE_BURST"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpiry) * time.Second
}
