package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	NATSURL         string
	NATSConnTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTELCollectorURL string

	ClickHouseDSN          string
	ClickHouseMaxOpenConns int
	ClickHouseMaxIdleConns int
	ClickHouseConnMaxLife  time.Duration
	ClickHouseUsername     string
	ClickHousePassword     string
	ClickHouseDatabase     string

	// Matching
	DefaultRadiusMeters float64
	MatchQueryLimit     int

	// Push delivery
	PushAPIBaseURL  string
	PushAPIKey      string
	PushSendTimeout time.Duration
	FanoutWorkers   int

	// Background sweeps
	ReminderCronSpec string
	ExpiryCronSpec   string
	ReminderTTL      time.Duration
}

func LoadConfig() (*Config, error) {
	config := &Config{
		NATSURL:         getEnvString("NATS_URL", "nats://localhost:4222"),
		NATSConnTimeout: getEnvDuration("NATS_CONN_TIMEOUT", 10*time.Second),

		RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTELCollectorURL: getEnvString("OTEL_COLLECTOR_URL", ""),

		ClickHouseDSN:          getEnvString("CLICKHOUSE_DSN", "localhost:9000"),
		ClickHouseMaxOpenConns: getEnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 10),
		ClickHouseMaxIdleConns: getEnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 5),
		ClickHouseConnMaxLife:  getEnvDuration("CLICKHOUSE_CONN_MAX_LIFE", time.Hour),
		ClickHouseUsername:     getEnvString("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword:     getEnvString("CLICKHOUSE_PASSWORD", ""),
		ClickHouseDatabase:     getEnvString("CLICKHOUSE_DATABASE", "dayhire"),

		DefaultRadiusMeters: getEnvFloat("DEFAULT_RADIUS_METERS", 50_000),
		MatchQueryLimit:     getEnvInt("MATCH_QUERY_LIMIT", 500),

		PushAPIBaseURL:  getEnvString("PUSH_API_BASE_URL", "https://fcm.googleapis.com/fcm"),
		PushAPIKey:      getEnvString("PUSH_API_KEY", ""),
		PushSendTimeout: getEnvDuration("PUSH_SEND_TIMEOUT", 5*time.Second),
		FanoutWorkers:   getEnvInt("FANOUT_WORKERS", 10),

		ReminderCronSpec: getEnvString("REMINDER_CRON_SPEC", "0 0 18 * * *"),
		ExpiryCronSpec:   getEnvString("EXPIRY_CRON_SPEC", "0 30 0 * * *"),
		ReminderTTL:      getEnvDuration("REMINDER_TTL", 48*time.Hour),
	}

	return config, nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
