package dto

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL string
	RabbitMQURL string
	Port        string

	// CacheTTL is kept short on purpose: the cache absorbs update bursts
	// and serves just-happened reads, it is not a store replacement.
	CacheTTL          time.Duration
	BatchSize         int
	FlushInterval     time.Duration
	SweepInterval     time.Duration
	InactiveThreshold time.Duration
}

func LoadConfig() Config {
	return Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RabbitMQURL:       os.Getenv("RABBITMQ_URL"),
		Port:              getEnv("PORT", "8080"),
		CacheTTL:          getDuration("CACHE_TTL", 5*time.Second),
		BatchSize:         getInt("BATCH_SIZE", 50),
		FlushInterval:     getDuration("FLUSH_INTERVAL", 10*time.Second),
		SweepInterval:     getDuration("SWEEP_INTERVAL", 30*time.Second),
		InactiveThreshold: getDuration("INACTIVE_THRESHOLD", 60*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("Invalid value for %s: %v, using default", key, err)
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logrus.Warnf("Invalid value for %s: %v, using default", key, err)
		return fallback
	}
	return parsed
}
