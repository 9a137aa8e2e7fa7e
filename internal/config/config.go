package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Log          LogConfig          `yaml:"log"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Notification NotificationConfig `yaml:"notification"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC health listener settings
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	GRPCPort               int    `yaml:"grpc_port"` // 0 disables the gRPC health listener
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// JWTConfig contains bearer token settings. Tokens are issued by the identity
// provider; this service only verifies them and mints short-lived service tokens.
type JWTConfig struct {
	Secret             string `yaml:"secret"`
	Issuer             string `yaml:"issuer"`
	ServiceTokenExpiry int    `yaml:"service_token_expiry_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// LedgerConfig tunes the balance store
type LedgerConfig struct {
	MaxRetries           int `yaml:"max_retries"`
	RetryBackoffMs       int `yaml:"retry_backoff_ms"`
	NotifyTimeoutSeconds int `yaml:"notify_timeout_seconds"`
	ReconcilePageSize    int `yaml:"reconcile_page_size"`
}

// NotificationConfig contains post-commit notification channels. A channel
// with no credentials is disabled.
type NotificationConfig struct {
	FinanceEmail string         `yaml:"finance_email"`
	FinanceName  string         `yaml:"finance_name"`
	SendGrid     SendGridConfig `yaml:"sendgrid"`
	Firebase     FirebaseConfig `yaml:"firebase"`
	Redis        RedisConfig    `yaml:"redis"`
}

type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

type FirebaseConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	ProjectID       string `yaml:"project_id"`
	TopicPrefix     string `yaml:"topic_prefix"`
}

type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// SchedulerConfig contains cron schedule settings (seconds precision, UTC)
type SchedulerConfig struct {
	ReconcileWallets string `yaml:"reconcile_wallets"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory, when present, is loaded first so its values act as environment
// overrides.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("GRPC_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.GRPCPort)
	}

	// Notification channels
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notification.SendGrid.APIKey = val
	}
	if val := os.Getenv("FINANCE_EMAIL"); val != "" {
		c.Notification.FinanceEmail = val
	}
	if val := os.Getenv("FIREBASE_CREDENTIALS_FILE"); val != "" {
		c.Notification.Firebase.CredentialsFile = val
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Notification.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Notification.Redis.Password = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Ledger
	if val := os.Getenv("LEDGER_MAX_RETRIES"); val != "" {
		fmt.Sscanf(val, "%d", &c.Ledger.MaxRetries)
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}
	if c.Server.GRPCPort != 0 && c.Server.GRPCPort == c.Server.Port {
		return fmt.Errorf("grpc port must differ from server port")
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 15
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "tourledger"
	}
	if c.JWT.ServiceTokenExpiry <= 0 {
		c.JWT.ServiceTokenExpiry = 15
	}

	// Ledger defaults
	if c.Ledger.MaxRetries < 0 {
		return fmt.Errorf("ledger max_retries must not be negative")
	}
	if c.Ledger.MaxRetries == 0 {
		c.Ledger.MaxRetries = 3
	}
	if c.Ledger.RetryBackoffMs <= 0 {
		c.Ledger.RetryBackoffMs = 20
	}
	if c.Ledger.NotifyTimeoutSeconds <= 0 {
		c.Ledger.NotifyTimeoutSeconds = 10
	}
	if c.Ledger.ReconcilePageSize <= 0 {
		c.Ledger.ReconcilePageSize = 500
	}

	// Notification defaults
	if c.Notification.SendGrid.APIKey != "" && c.Notification.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid from_email is required when an api key is set")
	}
	if c.Notification.SendGrid.FromName == "" {
		c.Notification.SendGrid.FromName = "Tour Ledger"
	}
	if c.Notification.Firebase.TopicPrefix == "" {
		c.Notification.Firebase.TopicPrefix = "wallet"
	}
	if c.Notification.Redis.ChannelPrefix == "" {
		c.Notification.Redis.ChannelPrefix = "ledger"
	}

	// Scheduler defaults
	if c.Scheduler.ReconcileWallets == "" {
		c.Scheduler.ReconcileWallets = "0 0 2 * * *" // 2 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health listener address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// RetryBackoff returns the base backoff between store retries
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Ledger.RetryBackoffMs) * time.Millisecond
}

// NotifyTimeout bounds each post-commit notification dispatch
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Ledger.NotifyTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
