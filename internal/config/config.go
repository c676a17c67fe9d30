package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server     ServerConfig
	MongoDB    MongoDBConfig
	Ledger     LedgerConfig
	Scheduler  SchedulerConfig
	Sheets     SheetsConfig
	Alerting   AlertingConfig
	Redis      RedisConfig
	StorageDrv string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// LedgerConfig holds the domain knobs shared by the ledger services.
type LedgerConfig struct {
	Timezone       string
	Location       *time.Location
	RecipientCodes []string
}

// SchedulerConfig holds cron schedules for the background jobs.
type SchedulerConfig struct {
	Enabled         bool
	InventoryInit   string
	ExpiryAlert     string
	ExpiryAlertDays int
	WeeklyDigest    string
	SheetsExport    string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// Export is disabled when SpreadsheetID is empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// AlertingConfig configures the outbound alert webhook.
type AlertingConfig struct {
	WebhookURL string
	Token      string
}

// RedisConfig configures the lock backend for scheduled jobs.
type RedisConfig struct {
	Address string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	alertDays, err := strconv.Atoi(getenvWithDefault("EXPIRY_ALERT_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("EXPIRY_ALERT_DAYS must be an integer: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenvWithDefault("APP_PORT", "8080"),
			Env:            getenvWithDefault("GO_ENV", "development"),
			AllowedOrigins: splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "lttp"),
		},
		Ledger: LedgerConfig{
			Timezone:       getenvWithDefault("TIMEZONE", "Asia/Ho_Chi_Minh"),
			RecipientCodes: splitAndTrim(getenvWithDefault("RECIPIENT_UNIT_CODES", "TD1,TD2,TD3,LDNB")),
		},
		Scheduler: SchedulerConfig{
			Enabled:         getenvBool("SCHEDULER_ENABLED", true),
			InventoryInit:   getenvWithDefault("INVENTORY_INIT_CRON", "5 0 * * *"),
			ExpiryAlert:     getenvWithDefault("EXPIRY_ALERT_CRON", "0 7 * * *"),
			ExpiryAlertDays: alertDays,
			WeeklyDigest:    getenvWithDefault("WEEKLY_DIGEST_CRON", "0 20 * * 5"),
			SheetsExport:    getenvWithDefault("SHEETS_EXPORT_CRON", "30 23 * * *"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Alerting: AlertingConfig{
			WebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
			Token:      os.Getenv("ALERT_WEBHOOK_TOKEN"),
		},
		Redis: RedisConfig{
			Address: os.Getenv("REDIS_ADDRESS"),
		},
		StorageDrv: getenvWithDefault("STORAGE_DRIVER", StorageMongo),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.StorageDrv {
	case StorageMongo:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StorageMongo, StorageMemory, c.StorageDrv)
	}

	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE %q is invalid: %w", c.Ledger.Timezone, err)
	}
	c.Ledger.Location = loc

	if len(c.Ledger.RecipientCodes) != 4 {
		return fmt.Errorf("RECIPIENT_UNIT_CODES must list exactly 4 unit codes, got %d", len(c.Ledger.RecipientCodes))
	}

	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when GOOGLE_SHEET_DATABASE_ID is set")
	}

	if c.Scheduler.ExpiryAlertDays < 0 {
		return errors.New("EXPIRY_ALERT_DAYS must not be negative")
	}

	if c.Scheduler.Enabled {
		specs := map[string]string{
			"INVENTORY_INIT_CRON": c.Scheduler.InventoryInit,
			"EXPIRY_ALERT_CRON":   c.Scheduler.ExpiryAlert,
			"WEEKLY_DIGEST_CRON":  c.Scheduler.WeeklyDigest,
			"SHEETS_EXPORT_CRON":  c.Scheduler.SheetsExport,
		}
		for key, spec := range specs {
			if _, err := cron.ParseStandard(spec); err != nil {
				return fmt.Errorf("%s %q is invalid: %w", key, spec, err)
			}
		}
	}

	return nil
}

// IsProduction reports whether the service runs with GO_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitAndTrim(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
