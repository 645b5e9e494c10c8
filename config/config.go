package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Storage. STORAGE_DRIVER is "mongo" or "memory".
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DatabaseName  string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Push delivery.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	PushChannelID           string `mapstructure:"PUSH_CHANNEL_ID"`

	// Reminder sweep. SWEEP_TRIGGER is "local", "queue" or "none".
	SweepTrigger   string        `mapstructure:"SWEEP_TRIGGER"`
	SweepSchedule  string        `mapstructure:"SWEEP_SCHEDULE"`
	SweepBatchSize int           `mapstructure:"SWEEP_BATCH_SIZE"`
	SweepLockTTL   time.Duration `mapstructure:"SWEEP_LOCK_TTL"`
	SweepTimeout   time.Duration `mapstructure:"SWEEP_TIMEOUT"`

	// Admin auth for broadcast. Empty disables the check.
	AdminJWTSecret string `mapstructure:"ADMIN_JWT_SECRET"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("STORAGE_DRIVER", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "nudge")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "firebase-adminsdk.json")
	v.SetDefault("PUSH_CHANNEL_ID", "npd_reminders")
	v.SetDefault("SWEEP_TRIGGER", "local")
	v.SetDefault("SWEEP_SCHEDULE", "@every 60s")
	v.SetDefault("SWEEP_BATCH_SIZE", 100)
	v.SetDefault("SWEEP_LOCK_TTL", "55s")
	v.SetDefault("SWEEP_TIMEOUT", "50s")
	v.SetDefault("ADMIN_JWT_SECRET", "")
}

// LoadConfig reads config.yaml (current or ./config directory) and environment overrides into AppConfig.
func LoadConfig() Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// Automatically use environment variables where available.
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := v.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return AppConfig
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
