package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	AllowedOrigins  []string

	StorageBackend string
	CartStorageKey string
	RedisAddr      string
	RedisPassword  string
	MongoURI       string
	MongoDBName    string

	CommerceAPIURL      string
	CommerceAccessToken string
	CommerceTimeout     time.Duration
	DefaultCurrency     string
	CatalogDefaultLimit int

	KafkaBrokers        []string
	CheckoutEventsTopic string
}

func Load() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  getSeconds("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getSeconds("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		AllowedOrigins:  getList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendRedis)),
		CartStorageKey: getEnv("CART_STORAGE_KEY", "organic-cart"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "storefront"),

		CommerceAPIURL:      getEnv("COMMERCE_API_URL", "http://localhost:9000/api/graphql"),
		CommerceAccessToken: getEnv("COMMERCE_ACCESS_TOKEN", ""),
		CommerceTimeout:     getSeconds("COMMERCE_TIMEOUT", 10*time.Second),
		DefaultCurrency:     getEnv("DEFAULT_CURRENCY", "USD"),
		CatalogDefaultLimit: getInt("CATALOG_DEFAULT_LIMIT", 20),

		KafkaBrokers:        getList("KAFKA_BROKERS", nil),
		CheckoutEventsTopic: getEnv("CHECKOUT_EVENTS_TOPIC", "checkout-completed"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getSeconds reads a whole number of seconds.
func getSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
