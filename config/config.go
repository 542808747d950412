// Package config loads server configuration from config.json with
// environment variable overrides. Environment values always win so
// deployments can keep secrets out of the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerConfig    ServerConfig    `json:"server"`
	DatabaseConfig  DatabaseConfig  `json:"database"`
	AuthConfig      AuthConfig      `json:"auth"`
	SMTPConfig      SMTPConfig      `json:"smtp"`
	RedisConfig     RedisConfig     `json:"redis"`
	VaultConfig     VaultConfig     `json:"vault"`
	SchedulerConfig SchedulerConfig `json:"scheduler"`
	LoggingConfig   LoggingConfig   `json:"logging"`
}

type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout"`    // Seconds
	WriteTimeout    int    `json:"write_timeout"`   // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type AuthConfig struct {
	JWTSecret                string        `json:"jwt_secret"`
	AccessTokenDuration      time.Duration `json:"access_token_duration"`
	RefreshTokenDuration     time.Duration `json:"refresh_token_duration"`
	MinPasswordLength        int           `json:"min_password_length"`
	RequireEmailVerification bool          `json:"require_email_verification"`
	VerificationCodeTTL      time.Duration `json:"verification_code_ttl"`
	SessionCleanupInterval   time.Duration `json:"session_cleanup_interval"`
}

type SMTPConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// SchedulerConfig holds the cadence of the background sweeps
type SchedulerConfig struct {
	MaturityInterval      time.Duration `json:"maturity_interval"`
	MaturityMaxConcurrent int           `json:"maturity_max_concurrent"`
	ExpiryInterval        time.Duration `json:"expiry_interval"`
	PendingTTL            time.Duration `json:"pending_ttl"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	JSONFormat bool   `json:"json_format"` // Output as JSON
}

func Load() (*Config, error) {
	// Base config from file, may be absent in containerized deployments
	// that configure everything through the environment.
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", cfg.ServerConfig.ReadTimeout)
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", cfg.ServerConfig.WriteTimeout)
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", cfg.ServerConfig.ShutdownTimeout)

	// Database config
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSL_MODE", cfg.DatabaseConfig.SSLMode)

	// Auth config
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", cfg.AuthConfig.AccessTokenDuration)
	cfg.AuthConfig.RefreshTokenDuration = getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_DURATION", cfg.AuthConfig.RefreshTokenDuration)
	cfg.AuthConfig.MinPasswordLength = getEnvIntOrDefault("AUTH_MIN_PASSWORD_LENGTH", cfg.AuthConfig.MinPasswordLength)
	if v := os.Getenv("AUTH_REQUIRE_EMAIL_VERIFICATION"); v != "" {
		cfg.AuthConfig.RequireEmailVerification = v == "true"
	}
	cfg.AuthConfig.VerificationCodeTTL = getEnvDurationOrDefault("AUTH_VERIFICATION_CODE_TTL", cfg.AuthConfig.VerificationCodeTTL)
	cfg.AuthConfig.SessionCleanupInterval = getEnvDurationOrDefault("AUTH_SESSION_CLEANUP_INTERVAL", cfg.AuthConfig.SessionCleanupInterval)

	// SMTP config
	cfg.SMTPConfig.Host = getEnvOrDefault("SMTP_HOST", cfg.SMTPConfig.Host)
	cfg.SMTPConfig.Port = getEnvOrDefault("SMTP_PORT", cfg.SMTPConfig.Port)
	cfg.SMTPConfig.Username = getEnvOrDefault("SMTP_USERNAME", cfg.SMTPConfig.Username)
	cfg.SMTPConfig.Password = getEnvOrDefault("SMTP_PASSWORD", cfg.SMTPConfig.Password)
	cfg.SMTPConfig.From = getEnvOrDefault("SMTP_FROM", cfg.SMTPConfig.From)
	cfg.SMTPConfig.FromName = getEnvOrDefault("SMTP_FROM_NAME", cfg.SMTPConfig.FromName)

	// Redis config
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisConfig.Enabled = v == "true"
	}
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", cfg.RedisConfig.PoolSize)

	// Vault config
	if v := os.Getenv("VAULT_ENABLED"); v != "" {
		cfg.VaultConfig.Enabled = v == "true"
	}
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)

	// Scheduler config
	cfg.SchedulerConfig.MaturityInterval = getEnvDurationOrDefault("SCHEDULER_MATURITY_INTERVAL", cfg.SchedulerConfig.MaturityInterval)
	cfg.SchedulerConfig.MaturityMaxConcurrent = getEnvIntOrDefault("SCHEDULER_MATURITY_MAX_CONCURRENT", cfg.SchedulerConfig.MaturityMaxConcurrent)
	cfg.SchedulerConfig.ExpiryInterval = getEnvDurationOrDefault("SCHEDULER_EXPIRY_INTERVAL", cfg.SchedulerConfig.ExpiryInterval)
	cfg.SchedulerConfig.PendingTTL = getEnvDurationOrDefault("SCHEDULER_PENDING_TTL", cfg.SchedulerConfig.PendingTTL)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.LoggingConfig.JSONFormat = v == "true"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8080
	}
	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.ServerConfig.AllowedOrigins == "" {
		cfg.ServerConfig.AllowedOrigins = "*"
	}
	if cfg.ServerConfig.ReadTimeout == 0 {
		cfg.ServerConfig.ReadTimeout = 30
	}
	if cfg.ServerConfig.WriteTimeout == 0 {
		cfg.ServerConfig.WriteTimeout = 30
	}
	if cfg.ServerConfig.ShutdownTimeout == 0 {
		cfg.ServerConfig.ShutdownTimeout = 10
	}

	if cfg.DatabaseConfig.Host == "" {
		cfg.DatabaseConfig.Host = "localhost"
	}
	if cfg.DatabaseConfig.Port == 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}

	if cfg.AuthConfig.AccessTokenDuration == 0 {
		cfg.AuthConfig.AccessTokenDuration = 15 * time.Minute
	}
	if cfg.AuthConfig.RefreshTokenDuration == 0 {
		cfg.AuthConfig.RefreshTokenDuration = 7 * 24 * time.Hour
	}
	if cfg.AuthConfig.MinPasswordLength == 0 {
		cfg.AuthConfig.MinPasswordLength = 8
	}
	if cfg.AuthConfig.VerificationCodeTTL == 0 {
		cfg.AuthConfig.VerificationCodeTTL = 10 * time.Minute
	}
	if cfg.AuthConfig.SessionCleanupInterval == 0 {
		cfg.AuthConfig.SessionCleanupInterval = time.Hour
	}

	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.PoolSize == 0 {
		cfg.RedisConfig.PoolSize = 10
	}

	if cfg.VaultConfig.Address == "" {
		cfg.VaultConfig.Address = "http://localhost:8200"
	}
	if cfg.VaultConfig.SecretPath == "" {
		cfg.VaultConfig.SecretPath = "secret/data/profitbliss"
	}

	if cfg.SchedulerConfig.MaturityInterval == 0 {
		cfg.SchedulerConfig.MaturityInterval = time.Hour
	}
	if cfg.SchedulerConfig.MaturityMaxConcurrent == 0 {
		cfg.SchedulerConfig.MaturityMaxConcurrent = 5
	}
	if cfg.SchedulerConfig.ExpiryInterval == 0 {
		cfg.SchedulerConfig.ExpiryInterval = 10 * time.Minute
	}
	if cfg.SchedulerConfig.PendingTTL == 0 {
		cfg.SchedulerConfig.PendingTTL = time.Hour
	}

	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
}

// Validate rejects configurations the server cannot safely start with
func (c *Config) Validate() error {
	if c.AuthConfig.JWTSecret == "" && !c.VaultConfig.Enabled {
		return fmt.Errorf("AUTH_JWT_SECRET is required when vault is disabled")
	}
	if c.DatabaseConfig.User == "" || c.DatabaseConfig.Database == "" {
		return fmt.Errorf("database user and name are required")
	}
	return nil
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		DatabaseConfig: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "profitbliss",
			Password: "your_db_password_here",
			Database: "profitbliss",
			SSLMode:  "disable",
		},
		AuthConfig: AuthConfig{
			JWTSecret:                "your_jwt_secret_here",
			AccessTokenDuration:      15 * time.Minute,
			RefreshTokenDuration:     7 * 24 * time.Hour,
			MinPasswordLength:        8,
			RequireEmailVerification: true,
			VerificationCodeTTL:      10 * time.Minute,
			SessionCleanupInterval:   time.Hour,
		},
		SMTPConfig: SMTPConfig{
			Host:     "smtp.example.com",
			Port:     "587",
			Username: "",
			Password: "",
			From:     "no-reply@example.com",
			FromName: "Profit Bliss",
		},
		RedisConfig: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			DB:       0,
			PoolSize: 10,
		},
		VaultConfig: VaultConfig{
			Enabled:    false,
			Address:    "http://localhost:8200",
			SecretPath: "secret/data/profitbliss",
		},
		SchedulerConfig: SchedulerConfig{
			MaturityInterval:      time.Hour,
			MaturityMaxConcurrent: 4,
			ExpiryInterval:        10 * time.Minute,
			PendingTTL:            time.Hour,
		},
		LoggingConfig: LoggingConfig{
			Level:      "info",
			JSONFormat: true,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling sample config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("error writing sample config: %w", err)
	}

	return nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
