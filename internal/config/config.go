package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	Env        string
	LogLevel   string

	StoreDriver string
	DataDir     string
	MySQLDSN    string
	PostgresDSN string
	SQLitePath  string
	ResetDB     bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret       string
	JWTExpiry       time.Duration
	VerificationTTL time.Duration
	FrontendURL     string

	MailAPIURL string
	MailAPIKey string
	MailFrom   string

	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	SelfPingURL      string
	SelfPingInterval time.Duration

	SwaggerHost string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", getEnv("PORT", "8080")),
		Env:        getEnv("APP_ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		StoreDriver: getEnv("STORE_DRIVER", StoreFile),
		DataDir:     getEnv("DATA_DIR", "data"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/safetysos?charset=utf8mb4&parseTime=True&loc=UTC"),
		PostgresDSN: getEnv("POSTGRES_DSN", os.Getenv("SUPABASE_DB_URL")),
		SQLitePath:  getEnv("SQLITE_PATH", "safetysos.db"),
		ResetDB:     getEnvBool("RESET_DB", false),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:       getEnv("JWT_SECRET", "change-me"),
		JWTExpiry:       getEnvDuration("JWT_EXPIRES", 7*24*time.Hour),
		VerificationTTL: getEnvDuration("VERIFICATION_TTL", 24*time.Hour),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),

		MailAPIURL: os.Getenv("MAIL_API_URL"),
		MailAPIKey: os.Getenv("MAIL_API_KEY"),
		MailFrom:   getEnv("MAIL_FROM", "no-reply@safetysos.local"),

		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "safetysos-server"),
		MQTTUsername:    os.Getenv("MQTT_USERNAME"),
		MQTTPassword:    os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "safetysos"),

		SelfPingURL:      getEnv("SELF_PING_URL", getEnv("RENDER_EXTERNAL_URL", os.Getenv("SERVER_URL"))),
		SelfPingInterval: getEnvDuration("SELF_PING_INTERVAL", 30*time.Second),

		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("168h") and the shorthand "7d".
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n := len(v); n > 1 && v[n-1] == 'd' {
		if days, err := strconv.Atoi(v[:n-1]); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	return def
}
