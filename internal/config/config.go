package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Environment    string
	Port           string
	MailboxAddress string
	PageSize       int

	Store      string
	DBHost     string
	DBPort     string
	DBUsername string
	DBPassword string
	DBName     string
	DBSSLMode  string

	SimulatedLatencyMin time.Duration
	SimulatedLatencyMax time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string

	IMAPHost     string
	IMAPUsername string
	IMAPPassword string
	IMAPFolder   string
	IMAPUseTLS   bool

	WSMaxConnections int
}

func NewConfig() (*Config, error) {
	env := os.Getenv("CRM_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:    env,
		Port:           getEnvOrDefault("PORT", "8080"),
		MailboxAddress: getEnvOrDefault("CRM_MAILBOX_ADDRESS", "john.doe@flowcrm.com"),
		Store:          getEnvOrDefault("CRM_STORE", StoreMemory),
		DBHost:         getEnvOrDefault("CRM_DB_HOST", "localhost"),
		DBPort:         getEnvOrDefault("CRM_DB_PORT", "5432"),
		DBUsername:     getEnvOrDefault("CRM_DB_USER", "flowcrm"),
		DBPassword:     os.Getenv("CRM_DB_PASSWORD"),
		DBName:         getEnvOrDefault("CRM_DB_NAME", "flowcrm"),
		DBSSLMode:      getEnvOrDefault("CRM_DB_SSLMODE", "disable"),
		SMTPHost:       os.Getenv("CRM_SMTP_HOST"),
		SMTPPort:       getEnvOrDefault("CRM_SMTP_PORT", "587"),
		SMTPUsername:   os.Getenv("CRM_SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("CRM_SMTP_PASSWORD"),
		IMAPHost:       os.Getenv("CRM_IMAP_HOST"),
		IMAPUsername:   os.Getenv("CRM_IMAP_USERNAME"),
		IMAPPassword:   os.Getenv("CRM_IMAP_PASSWORD"),
		IMAPFolder:     getEnvOrDefault("CRM_IMAP_FOLDER", "INBOX"),
	}

	var err error
	if config.PageSize, err = getIntOrDefault("CRM_PAGE_SIZE", 50); err != nil {
		return nil, err
	}
	if config.WSMaxConnections, err = getIntOrDefault("CRM_WS_MAX_CONNECTIONS", 10); err != nil {
		return nil, err
	}
	if config.SimulatedLatencyMin, err = getDurationOrDefault("CRM_SIMULATED_LATENCY_MIN", 0); err != nil {
		return nil, err
	}
	if config.SimulatedLatencyMax, err = getDurationOrDefault("CRM_SIMULATED_LATENCY_MAX", 0); err != nil {
		return nil, err
	}
	if config.IMAPUseTLS, err = getBoolOrDefault("CRM_IMAP_TLS", true); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.MailboxAddress == "" {
		return fmt.Errorf("CRM_MAILBOX_ADDRESS is required")
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("CRM_DB_PASSWORD is required when CRM_STORE is postgres")
		}
	default:
		return fmt.Errorf("CRM_STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store)
	}

	if c.SimulatedLatencyMin > c.SimulatedLatencyMax && c.SimulatedLatencyMax > 0 {
		return fmt.Errorf("CRM_SIMULATED_LATENCY_MIN must not exceed CRM_SIMULATED_LATENCY_MAX")
	}

	if c.IMAPHost != "" && (c.IMAPUsername == "" || c.IMAPPassword == "") {
		return fmt.Errorf("CRM_IMAP_USERNAME and CRM_IMAP_PASSWORD are required when CRM_IMAP_HOST is set")
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("CRM_PAGE_SIZE must be positive")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// SMTPAddress returns host:port of the outbound relay, or "" when relaying is off.
func (c *Config) SMTPAddress() string {
	if c.SMTPHost == "" {
		return ""
	}
	return c.SMTPHost + ":" + c.SMTPPort
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 300ms: %w", key, err)
	}
	return parsed, nil
}

func getBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return parsed, nil
}
