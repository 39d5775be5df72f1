package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds portal configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Remote clinic services. The appointment service runs behind its own base URL.
	BackendBaseURL     string
	AppointmentBaseURL string
	GatewayTimeout     time.Duration

	// Session storage
	UseMemorySessions bool
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	SessionSecret     string
	SessionTTL        time.Duration
	SessionCookieName string

	LoginPath          string
	CORSAllowedOrigins []string

	// Payment reconciliation ledger (optional)
	DatabaseURL string

	SubmitRatePerSec float64
	SubmitBurst      int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		BackendBaseURL:     getEnv("BACKEND_BASE_URL", "http://localhost:5000/api"),
		AppointmentBaseURL: getEnv("APPOINTMENT_BASE_URL", "http://localhost:8001/api"),
		GatewayTimeout:     getEnvAsDuration("GATEWAY_TIMEOUT", 0),

		UseMemorySessions: getEnvAsBool("USE_MEMORY_SESSIONS", false),
		RedisAddr:         getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "order_session"),

		LoginPath:          getEnv("LOGIN_PATH", "/login"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		SubmitRatePerSec: getEnvAsFloat("SUBMIT_RATE_PER_SEC", 2),
		SubmitBurst:      getEnvAsInt("SUBMIT_BURST", 5),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
