package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int

	DBDriver         string
	DBDataSourceName string
	MigrationsDir    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Timezone is the reference timezone that defines the auction day
	// boundary. All rollovers and day lookups use it.
	Timezone string

	// RolloverCheckInterval is how often the scheduler re-runs the
	// (idempotent) rollover. Short intervals are safe; they just find
	// nothing to do until the day changes.
	RolloverCheckInterval time.Duration

	LiveItemCacheTTL time.Duration
	RecentBidsLimit  int

	// Fallback item created when a day has nothing queued.
	FallbackItemName        string
	FallbackItemDescription string
	FallbackItemImageURL    string
	DefaultStartBid         int64

	AdminAPIKey string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: could not load .env file, relying on environment")
	}

	config := &Config{}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.ServerPort = p
		}
	}
	if config.ServerPort == 0 {
		config.ServerPort = 8040
	}

	config.DBDriver = "postgres"

	dbHost := getEnvOrDefault("DAILYBID_DB_HOST", "localhost")
	dbPort := getEnvOrDefault("DAILYBID_DB_PORT", "5432")
	dbName := getEnvOrDefault("DAILYBID_DB_DATABASE", "dailybid")
	dbUser := getEnvOrDefault("DAILYBID_DB_USERNAME", "root")
	dbPassword := getEnvOrDefault("DAILYBID_DB_PASSWORD", "1234")

	config.DBDataSourceName = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbUser, dbPassword, dbHost, dbPort, dbName)
	config.MigrationsDir = getEnvOrDefault("MIGRATIONS_DIR", "migrations")

	redisHost := getEnvOrDefault("DAILYBID_REDIS_HOST", "localhost")
	redisPort := getEnvOrDefault("DAILYBID_REDIS_PORT", "6379")
	config.RedisAddr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	config.RedisPassword = os.Getenv("DAILYBID_REDIS_PASSWORD")
	if db := os.Getenv("DAILYBID_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			config.RedisDB = n
		}
	}

	config.Timezone = getEnvOrDefault("AUCTION_TIMEZONE", "UTC")

	config.RolloverCheckInterval = time.Minute
	if raw := os.Getenv("ROLLOVER_CHECK_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ROLLOVER_CHECK_INTERVAL %q: %w", raw, err)
		}
		config.RolloverCheckInterval = d
	}

	config.LiveItemCacheTTL = 30 * time.Second
	config.RecentBidsLimit = 20
	if raw := os.Getenv("RECENT_BIDS_LIMIT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			config.RecentBidsLimit = n
		}
	}

	config.FallbackItemName = getEnvOrDefault("FALLBACK_ITEM_NAME", "Mystery Box of the Day")
	config.FallbackItemDescription = getEnvOrDefault("FALLBACK_ITEM_DESCRIPTION",
		"Nothing was queued for today, so the house put up a mystery box.")
	config.FallbackItemImageURL = getEnvOrDefault("FALLBACK_ITEM_IMAGE_URL",
		"https://example.com/images/mystery-box.png")

	config.DefaultStartBid = 100
	if raw := os.Getenv("DEFAULT_START_BID"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			config.DefaultStartBid = n
		}
	}

	config.AdminAPIKey = os.Getenv("ADMIN_API_KEY")

	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
