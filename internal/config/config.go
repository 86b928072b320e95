package config

import (
	"authbot/internal/types"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	BackendRedis  = "redis"
	BackendDDB    = "ddb"
	BackendMemory = "memory"

	DefaultPhoneCacheTTL    = 7 * 24 * time.Hour
	DefaultAuthLinkCacheTTL = 600 * time.Second

	DefaultAPIErrorMessage = "The service is taking a short break while we fix things. Please try again in a moment."
)

// Config is everything the service reads from the environment.
type Config struct {
	Port     int
	LogLevel string
	// LogFormat is "json" or "text".
	LogFormat string

	Cache   CacheConfig
	API     APIConfig
	FAQFile string
	Events  EventsConfig
}

// CacheConfig selects and tunes the TTL store.
type CacheConfig struct {
	Backend     string
	KeyPrefix   string
	OpTimeout   time.Duration
	PhoneTTL    time.Duration
	AuthLinkTTL time.Duration

	RedisURL   string
	RedisHost  string
	RedisPort  string
	RedisUser  string
	RedisPass  string
	RedisTLS   bool
	RedisDBNum int

	DDBEndpoint string
	DDBTable    string
}

// APIConfig points at the remote account service.
type APIConfig struct {
	BaseURL      string
	Login        string
	Password     string
	Timeout      time.Duration
	LinkField    string
	ErrorMessage string
}

type EventsConfig struct {
	TopicArn    string
	SNSEndpoint string
}

// LoadEnvFile loads ENV_FILE (default ".env") into the process environment.
// A missing file is not an error.
func LoadEnvFile() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info("The .env file not found.")
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getIntEnv("PORT", 8080),
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
		Cache: CacheConfig{
			Backend:     strings.ToLower(getenv("CACHE_BACKEND", BackendRedis)),
			KeyPrefix:   os.Getenv("CACHE_KEY_PREFIX"),
			OpTimeout:   getDurationEnv("CACHE_OP_TIMEOUT", 2*time.Second),
			PhoneTTL:    getSecondsEnv("PHONE_CACHE_TTL", DefaultPhoneCacheTTL),
			AuthLinkTTL: getSecondsEnv("AUTH_LINK_CACHE_TTL", DefaultAuthLinkCacheTTL),
			RedisURL:    os.Getenv("REDIS_URL"),
			RedisHost:   getenv("REDIS_HOST", "localhost"),
			RedisPort:   getenv("REDIS_PORT", "6379"),
			RedisUser:   os.Getenv("REDIS_USER"),
			RedisPass:   os.Getenv("REDIS_PASS"),
			RedisTLS:    parseBoolean(getenv("REDIS_SSL", "false")),
			RedisDBNum:  getIntEnv("REDIS_DB_NUM", 0),
			DDBEndpoint: os.Getenv("DDB_ENDPOINT"),
			DDBTable:    getenv("DDB_TABLE", "authbot_cache"),
		},
		API: APIConfig{
			BaseURL:      strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
			Login:        os.Getenv("API_LOGIN"),
			Password:     os.Getenv("API_PASSWORD"),
			Timeout:      getDurationEnv("API_TIMEOUT", 10*time.Second),
			LinkField:    getenv("API_LINK_FIELD", "authorization_link"),
			ErrorMessage: getenv("API_ERROR_MESSAGE", DefaultAPIErrorMessage),
		},
		FAQFile: os.Getenv("FAQ_FILE"),
		Events: EventsConfig{
			TopicArn:    os.Getenv("AUTH_EVENTS_TOPIC_ARN"),
			SNSEndpoint: os.Getenv("SNS_ENDPOINT"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return types.Err(types.ErrInvalidConfig, nil, "API_BASE_URL is required")
	}
	if c.Cache.PhoneTTL <= 0 {
		return types.Err(types.ErrInvalidConfig, nil, "PHONE_CACHE_TTL must be positive")
	}
	if c.Cache.AuthLinkTTL <= 0 {
		return types.Err(types.ErrInvalidConfig, nil, "AUTH_LINK_CACHE_TTL must be positive")
	}
	switch c.Cache.Backend {
	case BackendRedis, BackendDDB, BackendMemory:
	default:
		return types.Err(types.ErrInvalidBackend, nil, "unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	return nil
}

// SetupLogging applies LogLevel and LogFormat to the standard logrus logger.
func (c *Config) SetupLogging() {
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.SetLevel(log.InfoLevel)
		return
	}
	log.SetLevel(level)
}

// getenv retrieves the value of the environment variable named by the key.
func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		invalidEnv(key, v, def)
		return def
	}
	return i
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		invalidEnv(key, v, def)
		return def
	}
	return d
}

// getSecondsEnv reads a TTL given as whole seconds.
func getSecondsEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		invalidEnv(key, v, def)
		return def
	}
	return time.Duration(n) * time.Second
}

func invalidEnv(key, value string, def any) {
	log.WithFields(log.Fields{
		"key":     key,
		"value":   value,
		"default": def,
	}).Warn("Invalid environment value, using default")
}

func parseBoolean(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}
