package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Stripe checkout configuration for payment-gated reschedules.
	StripeKey          string `mapstructure:"STRIPE_KEY"`
	Currency           string `mapstructure:"CURRENCY"`
	CheckoutSuccessURL string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL  string `mapstructure:"CHECKOUT_CANCEL_URL"`

	// Engine policy knobs.
	PendingExpiryHours    int `mapstructure:"PENDING_EXPIRY_HOURS"`    // unapproved appointments lapse after this
	HoldExpiryHours       int `mapstructure:"HOLD_EXPIRY_HOURS"`       // abandoned reschedule holds lapse after this
	RescheduleCutoffDays  int `mapstructure:"RESCHEDULE_CUTOFF_DAYS"`  // minimum lead time for a move
	SweepIntervalMinutes  int `mapstructure:"SWEEP_INTERVAL_MINUTES"`  // cadence of the background sweeps
	AvailabilityCacheSecs int `mapstructure:"AVAILABILITY_CACHE_SECS"` // redis TTL for month expansions
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_QUEUE_DB", 1)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "parishly")
	viper.SetDefault("CURRENCY", "usd")
	viper.SetDefault("PENDING_EXPIRY_HOURS", 72)
	viper.SetDefault("HOLD_EXPIRY_HOURS", 72)
	viper.SetDefault("RESCHEDULE_CUTOFF_DAYS", 3)
	viper.SetDefault("SWEEP_INTERVAL_MINUTES", 5)
	viper.SetDefault("AVAILABILITY_CACHE_SECS", 60)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
