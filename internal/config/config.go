package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	LogLevel            string
	LogFile             string  // empty logs to stdout only
	SeedProducts        bool    // seed the catalog on startup when it is empty
	ProductSeedFile     string  // YAML file; empty uses the built-in catalog
	IntakeRatePerMinute float64 // application submissions per client IP
	IntakeRateBurst     int
	NAVCacheTTL         time.Duration // how long a refreshed NAV is served from Redis
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SEED_PRODUCTS", true)
	viper.SetDefault("INTAKE_RATE_PER_MINUTE", 30)
	viper.SetDefault("INTAKE_RATE_BURST", 5)
	viper.SetDefault("NAV_CACHE_TTL", "36h")

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		LogFile:             strings.TrimSpace(viper.GetString("LOG_FILE")),
		SeedProducts:        viper.GetBool("SEED_PRODUCTS"),
		ProductSeedFile:     strings.TrimSpace(viper.GetString("PRODUCT_SEED_FILE")),
		IntakeRatePerMinute: viper.GetFloat64("INTAKE_RATE_PER_MINUTE"),
		IntakeRateBurst:     viper.GetInt("INTAKE_RATE_BURST"),
		NAVCacheTTL:         viper.GetDuration("NAV_CACHE_TTL"),
	}, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
