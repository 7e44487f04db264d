package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Resolver ResolverConfig
	Review   ReviewConfig
	Export   ExportConfig
	Notify   NotifyConfig
	Pipeline PipelineConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig holds object storage configuration for the knowledge-store
// export target
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// ResolverConfig holds identity-resolution thresholds
type ResolverConfig struct {
	// MatchFloor is the minimum confidence for any match at all
	MatchFloor float64
	// ConfirmThreshold marks matches below it as needing human confirmation
	ConfirmThreshold float64
	// DirectoryURL is the external contact directory endpoint; empty means
	// the static contacts file is used instead
	DirectoryURL  string
	ContactsPath  string
	LookupTimeout time.Duration
}

// ReviewConfig holds review workflow configuration
type ReviewConfig struct {
	// StaleAfter raises an observability signal for meetings that sat in
	// review longer than this. Zero disables the signal; it never forces a
	// transition.
	StaleAfter time.Duration
	// SharedSecret signs inbound review requests. Empty disables the
	// signature check.
	SharedSecret string
}

// ExportConfig holds export dispatcher configuration
type ExportConfig struct {
	Targets         []string
	MaxAttempts     int
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
	TaskTrackerURL  string
	CalendarURL     string
	RequestTimeout  time.Duration
	DispatchWorkers int
	PollInterval    time.Duration
}

// NotifyConfig holds reviewer notification configuration
type NotifyConfig struct {
	WebhookURL    string
	WebhookSecret string
	Timeout       time.Duration
}

// PipelineConfig holds orchestrator configuration
type PipelineConfig struct {
	MaxConcurrentMeetings int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "meeting_protocols"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "meeting-protocols"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		Resolver: ResolverConfig{
			MatchFloor:       getEnvAsFloat("RESOLVER_MATCH_FLOOR", 0.6),
			ConfirmThreshold: getEnvAsFloat("RESOLVER_CONFIRM_THRESHOLD", 0.85),
			DirectoryURL:     getEnv("DIRECTORY_URL", ""),
			ContactsPath:     getEnv("DIRECTORY_CONTACTS_PATH", "contacts.json"),
			LookupTimeout:    getEnvAsDuration("DIRECTORY_TIMEOUT", "10s"),
		},
		Review: ReviewConfig{
			StaleAfter:   getEnvAsDuration("REVIEW_STALE_AFTER", "0s"),
			SharedSecret: getEnv("REVIEW_WEBHOOK_SECRET", ""),
		},
		Export: ExportConfig{
			Targets:         getEnvAsSlice("EXPORT_TARGETS", "tasktracker,knowledge"),
			MaxAttempts:     getEnvAsInt("EXPORT_MAX_ATTEMPTS", 5),
			BackoffInitial:  getEnvAsDuration("EXPORT_BACKOFF_INITIAL", "30s"),
			BackoffMax:      getEnvAsDuration("EXPORT_BACKOFF_MAX", "1h"),
			TaskTrackerURL:  getEnv("TASKTRACKER_URL", ""),
			CalendarURL:     getEnv("CALENDAR_URL", ""),
			RequestTimeout:  getEnvAsDuration("EXPORT_REQUEST_TIMEOUT", "30s"),
			DispatchWorkers: getEnvAsInt("EXPORT_DISPATCH_WORKERS", 4),
			PollInterval:    getEnvAsDuration("EXPORT_POLL_INTERVAL", "15s"),
		},
		Notify: NotifyConfig{
			WebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("NOTIFY_WEBHOOK_SECRET", ""),
			Timeout:       getEnvAsDuration("NOTIFY_TIMEOUT", "10s"),
		},
		Pipeline: PipelineConfig{
			MaxConcurrentMeetings: getEnvAsInt("PIPELINE_MAX_CONCURRENT", 8),
		},
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Resolver.MatchFloor < 0 || c.Resolver.MatchFloor > 1 {
		return fmt.Errorf("RESOLVER_MATCH_FLOOR must be in [0,1]")
	}
	if c.Resolver.ConfirmThreshold < c.Resolver.MatchFloor || c.Resolver.ConfirmThreshold > 1 {
		return fmt.Errorf("RESOLVER_CONFIRM_THRESHOLD must be in [match floor, 1]")
	}
	if c.Export.MaxAttempts < 1 {
		return fmt.Errorf("EXPORT_MAX_ATTEMPTS must be at least 1")
	}
	if len(c.Export.Targets) == 0 {
		return fmt.Errorf("EXPORT_TARGETS must name at least one target")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func getEnvAsSlice(key string, defaultValue string) []string {
	valueStr := getEnv(key, defaultValue)
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
