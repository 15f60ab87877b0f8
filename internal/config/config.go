package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port           string `yaml:"port" env:"SERVER_PORT"`
		Mode           string `yaml:"mode" env:"SERVER_MODE"`
		RequestTimeout string `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		CacheTTL string `yaml:"cache_ttl" env:"REDIS_CACHE_TTL"`
	} `yaml:"redis"`

	SMTP struct {
		Host     string `yaml:"host" env:"SMTP_HOST"`
		Port     int    `yaml:"port" env:"SMTP_PORT"`
		Username string `yaml:"username" env:"SMTP_USERNAME"`
		Password string `yaml:"password" env:"SMTP_PASSWORD"`
		From     string `yaml:"from" env:"SMTP_FROM"`
	} `yaml:"smtp"`

	Registration struct {
		MaxCreditsPerTerm       int `yaml:"max_credits_per_term" env:"REGISTRATION_MAX_CREDITS"`
		DefaultWaitlistCapacity int `yaml:"default_waitlist_capacity" env:"REGISTRATION_DEFAULT_WAITLIST"`
	} `yaml:"registration"`

	Billing struct {
		TuitionPerCredit string `yaml:"tuition_per_credit" env:"BILLING_TUITION_PER_CREDIT"`
		RegistrationFee  string `yaml:"registration_fee" env:"BILLING_REGISTRATION_FEE"`
		TechnologyFee    string `yaml:"technology_fee" env:"BILLING_TECHNOLOGY_FEE"`
		PaymentDueDays   int    `yaml:"payment_due_days" env:"BILLING_PAYMENT_DUE_DAYS"`
		Currency         string `yaml:"currency" env:"BILLING_CURRENCY"`
	} `yaml:"billing"`

	Seed struct {
		AdminEmail    string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
		AdminPassword string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from a file and environment variables.
// A missing file is not an error; defaults and the environment still apply.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(file, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.RequestTimeout = "15s"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "universys"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.Issuer = "universys"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Redis.Addr = "localhost:6379"
	config.Redis.CacheTTL = "10m"

	config.SMTP.Port = 587
	config.SMTP.From = "registrar@universys.edu"

	config.Registration.MaxCreditsPerTerm = 18
	config.Registration.DefaultWaitlistCapacity = 10

	config.Billing.TuitionPerCredit = "350.00"
	config.Billing.RegistrationFee = "75.00"
	config.Billing.TechnologyFee = "40.00"
	config.Billing.PaymentDueDays = 30
	config.Billing.Currency = "USD"
	config.Seed.AdminEmail = "admin@universys.edu"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"server request timeout":           config.Server.RequestTimeout,
		"database connection max lifetime": config.Database.ConnMaxLifetime,
		"JWT access token expiration":      config.JWT.AccessTokenExpiration,
		"JWT refresh token expiration":     config.JWT.RefreshTokenExpiration,
		"redis cache ttl":                  config.Redis.CacheTTL,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	if config.Registration.MaxCreditsPerTerm <= 0 {
		return fmt.Errorf("registration max credits per term must be positive")
	}
	if config.Registration.DefaultWaitlistCapacity < 0 {
		return fmt.Errorf("registration default waitlist capacity cannot be negative")
	}

	amounts := map[string]string{
		"tuition per credit": config.Billing.TuitionPerCredit,
		"registration fee":   config.Billing.RegistrationFee,
		"technology fee":     config.Billing.TechnologyFee,
	}
	for name, value := range amounts {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("invalid billing %s: %w", name, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("billing %s cannot be negative", name)
		}
	}
	if config.Billing.PaymentDueDays < 0 {
		return fmt.Errorf("billing payment due days cannot be negative")
	}
	if len(strings.TrimSpace(config.Billing.Currency)) != 3 {
		return fmt.Errorf("billing currency must be a 3-letter code")
	}
	if config.Seed.AdminPassword != "" && len(config.Seed.AdminPassword) < 8 {
		return fmt.Errorf("seed admin password must be at least 8 characters")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// Duration parses a validated duration field.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

// BillingRates holds the parsed billing amounts.
type BillingRates struct {
	TuitionPerCredit decimal.Decimal
	RegistrationFee  decimal.Decimal
	TechnologyFee    decimal.Decimal
	PaymentDueDays   int
	Currency         string
}

// Rates returns the billing section with amounts parsed to decimals.
func (c *Config) Rates() BillingRates {
	return BillingRates{
		TuitionPerCredit: decimal.RequireFromString(c.Billing.TuitionPerCredit),
		RegistrationFee:  decimal.RequireFromString(c.Billing.RegistrationFee),
		TechnologyFee:    decimal.RequireFromString(c.Billing.TechnologyFee),
		PaymentDueDays:   c.Billing.PaymentDueDays,
		Currency:         strings.ToUpper(strings.TrimSpace(c.Billing.Currency)),
	}
}
