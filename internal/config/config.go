package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Plan drafting
	GeminiAPIKey       string
	GeminiModelID      string
	BedrockModelID     string
	PlanSystemPrompt   string
	PlanMaxTokens      int
	PlanTemperature    float64
	PlanCacheTTL       time.Duration
	PlanArchiveBucket  string
	PlanRateLimitRPS   float64
	PlanRateLimitBurst int

	// Scheduling
	ClinicTimezone    string
	WorkingHoursStart string
	WorkingHoursEnd   string
	SlotMinutes       int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:      getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:     getEnv("BEDROCK_MODEL_ID", ""),
		PlanSystemPrompt:   getEnv("PLAN_SYSTEM_PROMPT", ""),
		PlanMaxTokens:      getEnvAsInt("PLAN_MAX_TOKENS", 200),
		PlanTemperature:    getEnvAsFloat("PLAN_TEMPERATURE", 0.7),
		PlanCacheTTL:       getEnvAsDuration("PLAN_CACHE_TTL", 24*time.Hour),
		PlanArchiveBucket:  getEnv("PLAN_ARCHIVE_BUCKET", ""),
		PlanRateLimitRPS:   getEnvAsFloat("PLAN_RATE_LIMIT_RPS", 0.2),
		PlanRateLimitBurst: getEnvAsInt("PLAN_RATE_LIMIT_BURST", 3),

		ClinicTimezone:    getEnv("CLINIC_TIMEZONE", "America/Mexico_City"),
		WorkingHoursStart: getEnv("WORKING_HOURS_START", "09:00"),
		WorkingHoursEnd:   getEnv("WORKING_HOURS_END", "20:00"),
		SlotMinutes:       getEnvAsInt("SLOT_MINUTES", 30),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}
}

// Location resolves ClinicTimezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
