package config

import (
	"os"
	"strconv"
	"time"

	"kehila/internal/cache"
	"kehila/internal/database"
	"kehila/internal/external"
	"kehila/internal/messaging"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database      database.Config
	NATS          messaging.Config
	Valkey        cache.Config
	Elasticsearch ElasticsearchConfig
	Identity      external.IdentityConfig
	Payment       external.PaymentConfig
	Email         external.EmailConfig
}

// Load загружает конфигурацию из переменных окружения.
// Читается один раз при старте процесса; бизнес-логика окружение не трогает.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "kehila"),
			Password:           getEnv("DB_PASSWORD", "kehila123"),
			DBName:             getEnv("DB_NAME", "kehila"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "kehila"),
			ClientID:  getEnv("NATS_CLIENT_ID", "kehila-api"),
		},

		Valkey: cache.Config{
			Addr:         getEnv("VALKEY_ADDR", "localhost:6379"),
			Password:     getEnv("VALKEY_PASSWORD", ""),
			AuthCacheTTL: time.Duration(getEnvInt("VALKEY_AUTH_TTL_SEC", 300)) * time.Second,
			ListCacheTTL: time.Duration(getEnvInt("VALKEY_LIST_TTL_SEC", 60)) * time.Second,
		},

		Elasticsearch: ElasticsearchConfig{
			Enabled:    getEnv("ELASTICSEARCH_ENABLED", "false") == "true",
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:      getEnv("ELASTICSEARCH_INDEX", "kehila-events"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		},

		Identity: external.IdentityConfig{
			BaseURL: getEnv("IDENTITY_PROVIDER_URL", "http://localhost:9099"),
			APIKey:  getEnv("IDENTITY_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("IDENTITY_TIMEOUT_SEC", 10)) * time.Second,
		},

		Payment: external.PaymentConfig{
			BaseURL:   getEnv("PAYMENT_GATEWAY_URL", ""),
			SecretKey: getEnv("PAYMENT_SECRET_KEY", ""),
			Currency:  getEnv("PAYMENT_CURRENCY", "ils"),
			Timeout:   time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Email: external.EmailConfig{
			BaseURL:    getEnv("EMAIL_API_URL", "https://api.mailjet.com"),
			APIKey:     getEnv("EMAIL_API_KEY", ""),
			APISecret:  getEnv("EMAIL_API_SECRET", ""),
			FromEmail:  getEnv("EMAIL_FROM_ADDRESS", "noreply@kehila.local"),
			FromName:   getEnv("EMAIL_FROM_NAME", "Kehila"),
			AdminEmail: getEnv("EMAIL_ADMIN_ADDRESS", ""),
			Timeout:    time.Duration(getEnvInt("EMAIL_TIMEOUT_SEC", 15)) * time.Second,
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
