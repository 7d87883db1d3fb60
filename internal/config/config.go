package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Pages    PagesConfig
	Secrets  SecretsConfig
	Events   EventsConfig
	Rates    RatesConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	MetricsPort     int
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// IsProduction reports ENVIRONMENT=production
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// GatewayConfig holds the Garanti VPOS terminal settings. Secrets are not
// here; they come from the secret store.
type GatewayConfig struct {
	Mode                string // TEST or PROD
	TerminalID          string
	MerchantID          string
	UserID              string
	ProvUserID          string
	RefundProvUserID    string
	RedirectURL         string
	APIURL              string
	SuccessURL          string
	ErrorURL            string
	CompanyName         string
	Lang                string
	Timeout             time.Duration
	MaxRetries          int
	OrderPrefix         string
	VerifyCallbackHash  bool
	ResponseOnlyVerdict bool
}

// PagesConfig holds the landing pages the callback redirects to
type PagesConfig struct {
	Success string
	Failure string
}

// SecretsConfig selects and configures the terminal secret backend
type SecretsConfig struct {
	Manager      string // local, aws, vault or gcp
	Path         string
	LocalFile    string
	AWSRegion    string
	AWSEndpoint  string
	VaultAddr    string
	VaultToken   string
	VaultMount   string
	GCPProjectID string
	CacheTTL     time.Duration
}

// EventsConfig holds the Kafka producer settings. No brokers means events are dropped.
type EventsConfig struct {
	Brokers []string
	Topic   string
}

// RatesConfig holds the fixed exchange rate
type RatesConfig struct {
	EURTRY string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	// .env is optional; the real environment wins over it
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "development")
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("HTTP_PORT", 8080),
			MetricsPort:     getEnvAsInt("METRICS_PORT", 9090),
			Environment:     environment,
			ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 20),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "booking_payments"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Gateway: GatewayConfig{
			Mode:                strings.ToUpper(getEnv("GARANTI_MODE", "TEST")),
			TerminalID:          getEnv("GARANTI_TERMINAL_ID", ""),
			MerchantID:          getEnv("GARANTI_MERCHANT_ID", ""),
			UserID:              getEnv("GARANTI_USER_ID", "PROVAUT"),
			ProvUserID:          getEnv("GARANTI_PROV_USER_ID", "PROVAUT"),
			RefundProvUserID:    getEnv("GARANTI_REFUND_PROV_USER_ID", "PROVRFN"),
			RedirectURL:         getEnv("GARANTI_REDIRECT_URL", ""),
			APIURL:              getEnv("GARANTI_API_URL", ""),
			SuccessURL:          getEnv("GARANTI_SUCCESS_URL", ""),
			ErrorURL:            getEnv("GARANTI_ERROR_URL", ""),
			CompanyName:         getEnv("GARANTI_COMPANY_NAME", ""),
			Lang:                getEnv("GARANTI_LANG", "tr"),
			Timeout:             getEnvAsDuration("GARANTI_TIMEOUT", 30*time.Second),
			MaxRetries:          getEnvAsInt("GARANTI_MAX_RETRIES", 2),
			OrderPrefix:         getEnv("GARANTI_ORDER_PREFIX", "GRN"),
			VerifyCallbackHash:  getEnvAsBool("GARANTI_VERIFY_CALLBACK_HASH", true),
			ResponseOnlyVerdict: getEnvAsBool("GARANTI_CALLBACK_RESPONSE_ONLY_VERDICT", false),
		},
		Pages: PagesConfig{
			Success: getEnv("PAYMENT_SUCCESS_PAGE", "/payment/success"),
			Failure: getEnv("PAYMENT_FAILURE_PAGE", "/payment/failure"),
		},
		Secrets: SecretsConfig{
			Manager:      strings.ToLower(getEnv("SECRET_MANAGER", "local")),
			Path:         getEnv("SECRET_PATH", "garanti/terminal"),
			LocalFile:    getEnv("LOCAL_SECRETS_FILE", "./secrets"),
			AWSRegion:    getEnv("AWS_REGION", "eu-central-1"),
			AWSEndpoint:  getEnv("AWS_ENDPOINT_URL", ""),
			VaultAddr:    getEnv("VAULT_ADDR", ""),
			VaultToken:   getEnv("VAULT_TOKEN", ""),
			VaultMount:   getEnv("VAULT_MOUNT", "secret"),
			GCPProjectID: getEnv("GCP_PROJECT_ID", ""),
			CacheTTL:     getEnvAsDuration("SECRET_CACHE_TTL", 5*time.Minute),
		},
		Events: EventsConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "booking-payments"),
		},
		Rates: RatesConfig{
			EURTRY: getEnv("EUR_TRY_RATE", "35.00"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: environment != "production",
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Password == "" && c.Server.IsProduction() {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Gateway.Mode != "TEST" && c.Gateway.Mode != "PROD" {
		return fmt.Errorf("GARANTI_MODE must be TEST or PROD, got %q", c.Gateway.Mode)
	}
	if c.Gateway.TerminalID == "" {
		return fmt.Errorf("GARANTI_TERMINAL_ID is required")
	}
	if c.Gateway.MerchantID == "" {
		return fmt.Errorf("GARANTI_MERCHANT_ID is required")
	}
	if c.Gateway.SuccessURL == "" || c.Gateway.ErrorURL == "" {
		return fmt.Errorf("GARANTI_SUCCESS_URL and GARANTI_ERROR_URL are required")
	}
	switch c.Secrets.Manager {
	case "local", "aws":
	case "vault":
		if c.Secrets.VaultAddr == "" {
			return fmt.Errorf("VAULT_ADDR is required when SECRET_MANAGER=vault")
		}
	case "gcp":
		if c.Secrets.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required when SECRET_MANAGER=gcp")
		}
	default:
		return fmt.Errorf("unknown SECRET_MANAGER %q", c.Secrets.Manager)
	}
	if c.Server.IsProduction() && c.Secrets.Manager == "local" {
		return fmt.Errorf("SECRET_MANAGER=local is not allowed in production")
	}
	if c.Server.IsProduction() && !c.Gateway.VerifyCallbackHash {
		return fmt.Errorf("GARANTI_VERIFY_CALLBACK_HASH cannot be disabled in production")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection URL
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("30s") or plain seconds ("30")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
