// internal/pkg/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Application
	App AppConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Asynq
	Asynq AsynqConfig

	// AWS
	AWS AWSConfig

	// File Processing
	FileProcessing FileProcessingConfig

	// Security
	Security SecurityConfig

	// Server
	Server ServerConfig

	// Email
	Email EmailConfig
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Version     string
	LogLevel    string
	LogFormat   string // json, text
	Debug       bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxConnections     int32
	MinConnections     int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	ConnectTimeout     time.Duration
	StatementCacheMode string
	EnableQueryLogging bool
	MigrationPath      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host            string
	Port            string
	Password        string
	DB              int
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
	MinIdleConns    int
	MaxConnAge      time.Duration
	PoolTimeout     time.Duration
	IdleTimeout     time.Duration
	TTL             time.Duration
}

// AsynqConfig holds Asynq configuration
type AsynqConfig struct {
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	Concurrency          int
	Queues               map[string]int // queue name -> priority
	StrictPriority       bool
	RetryMax             int
	ShutdownTimeout      time.Duration
	HealthCheckInterval  time.Duration
	DelayedTaskCheckTime time.Duration
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string // For MinIO in development
	UsePathStyle    bool   // For MinIO compatibility
}

// FileProcessingConfig holds file processing configuration
type FileProcessingConfig struct {
	PDFMaxSizeMB      int
	ExcelMaxSizeMB    int
	ProcessingTimeout time.Duration
	TempDir           string
	CleanupInterval   time.Duration
}

// EmailConfig holds outbound mail configuration
type EmailConfig struct {
	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	FromAddress     string
	AlertRecipients []string
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	JWTSecret            string
	JWTExpiration        time.Duration
	JWTRefreshExpiration time.Duration
	BcryptCost           int
	RateLimitRequests    int
	RateLimitDuration    time.Duration
	AllowedOrigins       []string
	TrustedProxies       []string
	SecureHeaders        bool
	CSRFProtection       bool
	RequestIDHeader      string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GracefulTimeout   time.Duration
	EnablePprof       bool
	EnableMetrics     bool
	EnableHealthCheck bool
	TLSEnabled        bool
	TLSCertFile       string
	TLSKeyFile        string
}

// Load loads configuration from environment variables
func Load(logger *slog.Logger) (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Local development reads a .env file; deployed environments inject
	// real environment variables.
	if env == "development" || env == "local" {
		if err := godotenv.Load(); err != nil {
			logger.Warn("no .env file found, relying on process environment",
				slog.Any("error", err))
		} else {
			logger.Info(".env file loaded")
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetTypeByDefaultValue(true)

	setDefaults()

	cfg := &Config{
		App: AppConfig{
			Name:        envStr("APP_NAME", "medtrack-api"),
			Environment: env,
			Version:     envStr("APP_VERSION", "dev"),
			LogLevel:    envStr("LOG_LEVEL", "debug"),
			LogFormat:   envStr("LOG_FORMAT", "json"),
			Debug:       envBool("APP_DEBUG", env == "development"),
		},
		Database: DatabaseConfig{
			Host:               envStr("DB_HOST", "localhost"),
			Port:               envStr("DB_PORT", "5432"),
			User:               envStr("DB_USER", "medtrack"),
			Password:           envStr("DB_PASSWORD", "medtrack_dev_2026"),
			Name:               envStr("DB_NAME", "medtrack_pharmacy"),
			SSLMode:            envStr("DB_SSL_MODE", "disable"),
			MaxConnections:     int32(envInt("DB_MAX_CONNECTIONS", 25)),
			MinConnections:     int32(envInt("DB_MIN_CONNECTIONS", 5)),
			MaxConnLifetime:    envDuration("DB_CONNECTION_LIFETIME", time.Hour),
			MaxConnIdleTime:    envDuration("DB_IDLE_TIME", 30*time.Minute),
			HealthCheckPeriod:  envDuration("DB_HEALTH_CHECK_PERIOD", time.Minute),
			ConnectTimeout:     envDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			StatementCacheMode: envStr("DB_STATEMENT_CACHE_MODE", "describe"),
			EnableQueryLogging: envBool("DB_QUERY_LOGGING", env == "development"),
			MigrationPath:      envStr("DB_MIGRATION_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Host:            envStr("REDIS_HOST", "localhost"),
			Port:            envStr("REDIS_PORT", "6379"),
			Password:        envStr("REDIS_PASSWORD", ""),
			DB:              envInt("REDIS_DB", 0),
			MaxRetries:      envInt("REDIS_MAX_RETRIES", 3),
			MinRetryBackoff: envDuration("REDIS_MIN_RETRY_BACKOFF", 8*time.Millisecond),
			MaxRetryBackoff: envDuration("REDIS_MAX_RETRY_BACKOFF", 512*time.Millisecond),
			DialTimeout:     envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:     envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:    envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolSize:        envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:    envInt("REDIS_MIN_IDLE_CONNS", 2),
			MaxConnAge:      envDuration("REDIS_MAX_CONN_AGE", 0),
			PoolTimeout:     envDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:     envDuration("REDIS_IDLE_TIMEOUT", 5*time.Minute),
			TTL:             envDuration("REDIS_TTL", time.Hour),
		},
		Asynq: AsynqConfig{
			RedisAddr:            fmt.Sprintf("%s:%s", envStr("REDIS_HOST", "localhost"), envStr("REDIS_PORT", "6379")),
			RedisPassword:        envStr("REDIS_PASSWORD", ""),
			RedisDB:              envInt("ASYNQ_REDIS_DB", 0),
			Concurrency:          envInt("ASYNQ_CONCURRENCY", 10),
			Queues:               parseQueues(envStr("ASYNQ_QUEUES", "critical:6,default:3,low:1")),
			StrictPriority:       envBool("ASYNQ_STRICT_PRIORITY", false),
			RetryMax:             envInt("ASYNQ_RETRY_MAX", 3),
			ShutdownTimeout:      envDuration("ASYNQ_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthCheckInterval:  envDuration("ASYNQ_HEALTH_CHECK_INTERVAL", 30*time.Second),
			DelayedTaskCheckTime: envDuration("ASYNQ_DELAYED_TASK_CHECK", 5*time.Second),
		},
		AWS: AWSConfig{
			Region:          envStr("AWS_REGION", "us-east-1"),
			AccessKeyID:     envStr("AWS_ACCESS_KEY_ID", "minioadmin"),
			SecretAccessKey: envStr("AWS_SECRET_ACCESS_KEY", "minioadmin123"),
			S3Bucket:        envStr("AWS_S3_BUCKET", "medtrack-reports"),
			S3Endpoint:      envStr("AWS_S3_ENDPOINT", ""),
			UsePathStyle:    envBool("AWS_S3_PATH_STYLE", env == "development"),
		},
		FileProcessing: FileProcessingConfig{
			PDFMaxSizeMB:      envInt("PDF_MAX_SIZE_MB", 50),
			ExcelMaxSizeMB:    envInt("EXCEL_MAX_SIZE_MB", 100),
			ProcessingTimeout: envDuration("PROCESSING_TIMEOUT", 5*time.Minute),
			TempDir:           envStr("TEMP_DIR", "/tmp"),
			CleanupInterval:   envDuration("CLEANUP_INTERVAL", time.Hour),
		},
		Security: SecurityConfig{
			JWTSecret:            envStr("JWT_SECRET", defaultJWTSecret(env)),
			JWTExpiration:        envDuration("JWT_EXPIRATION", 24*time.Hour),
			JWTRefreshExpiration: envDuration("JWT_REFRESH_EXPIRATION", 7*24*time.Hour),
			BcryptCost:           envInt("BCRYPT_COST", 10),
			RateLimitRequests:    envInt("RATE_LIMIT_REQUESTS", 100),
			RateLimitDuration:    envDuration("RATE_LIMIT_DURATION", time.Minute),
			AllowedOrigins:       envList("ALLOWED_ORIGINS", []string{"*"}),
			TrustedProxies:       envList("TRUSTED_PROXIES", []string{}),
			SecureHeaders:        envBool("SECURE_HEADERS", env == "production"),
			CSRFProtection:       envBool("CSRF_PROTECTION", env == "production"),
			RequestIDHeader:      envStr("REQUEST_ID_HEADER", "X-Request-ID"),
		},
		Server: ServerConfig{
			Host:              envStr("SERVER_HOST", "0.0.0.0"),
			Port:              envStr("SERVER_PORT", "8080"),
			ReadTimeout:       envDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      envDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:       envDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			MaxHeaderBytes:    envInt("SERVER_MAX_HEADER_BYTES", 1<<20), // 1 MB
			GracefulTimeout:   envDuration("SERVER_GRACEFUL_TIMEOUT", 30*time.Second),
			EnablePprof:       envBool("ENABLE_PPROF", env == "development"),
			EnableMetrics:     envBool("ENABLE_METRICS", true),
			EnableHealthCheck: envBool("ENABLE_HEALTH_CHECK", true),
			TLSEnabled:        envBool("TLS_ENABLED", false),
			TLSCertFile:       envStr("TLS_CERT_FILE", ""),
			TLSKeyFile:        envStr("TLS_KEY_FILE", ""),
		},
		Email: EmailConfig{
			SMTPHost:        envStr("SMTP_HOST", "localhost"),
			SMTPPort:        envStr("SMTP_PORT", "587"),
			SMTPUsername:    envStr("SMTP_USERNAME", ""),
			SMTPPassword:    envStr("SMTP_PASSWORD", ""),
			FromAddress:     envStr("EMAIL_FROM", "noreply@medtrack.local"),
			AlertRecipients: envList("ALERT_RECIPIENTS", []string{}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	validators := []Validator{&BasicValidator{}}
	if c.IsProduction() {
		validators = append(validators, &ProductionValidator{}, &SecurityValidator{})
	}

	for _, v := range validators {
		if err := v.Validate(c); err != nil {
			return err
		}
	}

	return nil
}

// GetDatabaseURL builds the postgres connection URL used by the
// migration runner.
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns host:port for the HTTP listener.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "local"
}

func setDefaults() {
	viper.SetDefault("app.name", "medtrack-api")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
}

func envStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return fallback
}

// parseQueues turns "critical:6,default:3,low:1" into asynq queue priorities.
func parseQueues(spec string) map[string]int {
	queues := make(map[string]int)
	for _, pair := range strings.Split(spec, ",") {
		name, prio, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		if p, err := strconv.Atoi(strings.TrimSpace(prio)); err == nil {
			queues[strings.TrimSpace(name)] = p
		}
	}
	if len(queues) == 0 {
		queues["default"] = 1
	}
	return queues
}

// defaultJWTSecret is empty in production so validation rejects a boot
// without an explicit secret.
func defaultJWTSecret(env string) string {
	if env == "production" {
		return ""
	}
	return "development-secret-change-in-production"
}
