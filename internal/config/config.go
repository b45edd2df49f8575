package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppPort string
	AppEnv  string
	DBDSN   string

	JWTSecret          string
	JWTExpiresMin      int
	RefreshExpiresHour int

	RedisAddr     string
	RedisPassword string
	RabbitMQURL   string
	KafkaBrokers  []string
	KafkaTopic    string

	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
	CORSOrigins     string

	SentryDSN string
	LogLevel  string
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "60"))
	refresh, _ := strconv.Atoi(get("JWT_REFRESH_EXPIRES_HOURS", "168"))
	return Config{
		AppPort:            get("APP_PORT", "8080"),
		AppEnv:             get("APP_ENV", "development"),
		DBDSN:              must("DB_DSN"),
		JWTSecret:          must("JWT_SECRET"),
		JWTExpiresMin:      expires,
		RefreshExpiresHour: refresh,
		RedisAddr:          get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      get("REDIS_PASSWORD", ""),
		RabbitMQURL:        get("RABBITMQ_URL", ""),
		KafkaBrokers:       splitCSV(get("KAFKA_BROKERS", "")),
		KafkaTopic:         get("KAFKA_TOPIC", "marketplace.events"),
		GoogleClientID:     get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:       get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:     get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL:    get("FRONTEND_BASE_URL", "http://localhost:3000"),
		CORSOrigins:        get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),
		SentryDSN:          get("SENTRY_DSN", ""),
		LogLevel:           get("LOG_LEVEL", "info"),
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
