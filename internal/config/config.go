package config

import (
	"os"
	"strconv"
)

type Config struct {
	DBDriver           string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	RedisHost          string
	RedisPort          string
	SessionSecret      string
	GinMode            string
	DefaultTimezone    string
	DefaultHourlyRate  float64
	WeekendRateFactor  float64
	ActiveEntriesLimit int
}

func Load() *Config {
	return &Config{
		DBDriver:           getEnv("DB_DRIVER", "mysql"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "3306"),
		DBUser:             getEnv("DB_USER", "kimai"),
		DBPassword:         getEnv("DB_PASSWORD", "kimai"),
		DBName:             getEnv("DB_NAME", "kimai"),
		RedisHost:          getEnv("REDIS_HOST", "localhost"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		SessionSecret:      getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		GinMode:            getEnv("GIN_MODE", "debug"),
		DefaultTimezone:    getEnv("DEFAULT_TIMEZONE", "UTC"),
		DefaultHourlyRate:  getEnvFloat("DEFAULT_HOURLY_RATE", 0),
		WeekendRateFactor:  getEnvFloat("WEEKEND_RATE_FACTOR", 1),
		ActiveEntriesLimit: getEnvInt("ACTIVE_ENTRIES_LIMIT", 1),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
