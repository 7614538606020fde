package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "go.yaml.in/yaml/v3"
)

// ErrMissingConfig is wrapped by Load when a required option is absent.
var ErrMissingConfig = errors.New("missing required configuration")

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port string

	TwilioAccountSID        string
	TwilioAuthToken         string
	TwilioWhatsAppNumber    string
	TwilioValidateSignature bool
	WebhookPublicURL        string
	SendRatePerSec          float64
	SendTimeout             time.Duration

	PollInterval time.Duration

	StoreDriver         string
	DatabaseURL         string
	SQLitePath          string
	FirebaseConfig      string
	FirestoreCollection string

	OpenAIAPIKey  string
	LocalTimezone *time.Location

	LogLevel  string
	LogFormat string
}

// fileConfig mirrors the environment variables for the optional YAML file.
type fileConfig struct {
	Port                    string  `yaml:"port"`
	TwilioAccountSID        string  `yaml:"twilio_account_sid"`
	TwilioAuthToken         string  `yaml:"twilio_auth_token"`
	TwilioWhatsAppNumber    string  `yaml:"twilio_whatsapp_number"`
	TwilioValidateSignature *bool   `yaml:"twilio_validate_signature"`
	WebhookPublicURL        string  `yaml:"webhook_public_url"`
	SendRatePerSec          float64 `yaml:"send_rate_per_sec"`
	SendTimeout             string  `yaml:"send_timeout"`
	PollInterval            string  `yaml:"poll_interval"`
	StoreDriver             string  `yaml:"store_driver"`
	DatabaseURL             string  `yaml:"database_url"`
	SQLitePath              string  `yaml:"sqlite_path"`
	FirebaseConfig          string  `yaml:"firebase_config"`
	FirestoreCollection     string  `yaml:"firestore_collection"`
	OpenAIAPIKey            string  `yaml:"openai_api_key"`
	LocalTimezone           string  `yaml:"local_timezone"`
	LogLevel                string  `yaml:"log_level"`
	LogFormat               string  `yaml:"log_format"`
}

// Load reads configuration values and prepares defaults where applicable.
// Values come from a .env file, then an optional YAML file named by
// CONFIG_FILE, with environment variables taking precedence over both.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var file fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	validateDefault := false
	if file.TwilioValidateSignature != nil {
		validateDefault = *file.TwilioValidateSignature
	}

	cfg := &Config{
		Port:                    getenvDefault("PORT", orDefault(file.Port, "8080")),
		TwilioAccountSID:        getenvDefault("TWILIO_ACCOUNT_SID", file.TwilioAccountSID),
		TwilioAuthToken:         getenvDefault("TWILIO_AUTH_TOKEN", file.TwilioAuthToken),
		TwilioWhatsAppNumber:    getenvDefault("TWILIO_WHATSAPP_NUMBER", file.TwilioWhatsAppNumber),
		TwilioValidateSignature: ParseBoolEnv("TWILIO_VALIDATE_SIGNATURE", validateDefault),
		WebhookPublicURL:        getenvDefault("WEBHOOK_PUBLIC_URL", file.WebhookPublicURL),
		SendRatePerSec:          ParseFloatEnv("SEND_RATE_PER_SEC", orDefaultFloat(file.SendRatePerSec, 1)),
		SendTimeout:             ParseDurationEnv("SEND_TIMEOUT", parseDurationDefault(file.SendTimeout, 15*time.Second)),
		PollInterval:            ParseDurationEnv("POLL_INTERVAL", parseDurationDefault(file.PollInterval, 60*time.Second)),
		StoreDriver:             strings.ToLower(getenvDefault("STORE_DRIVER", file.StoreDriver)),
		DatabaseURL:             getenvDefault("DATABASE_URL", file.DatabaseURL),
		SQLitePath:              getenvDefault("SQLITE_PATH", orDefault(file.SQLitePath, "reminders.db")),
		FirebaseConfig:          getenvDefault("FIREBASE_CONFIG", file.FirebaseConfig),
		FirestoreCollection:     getenvDefault("FIRESTORE_COLLECTION", orDefault(file.FirestoreCollection, "reminders")),
		OpenAIAPIKey:            getenvDefault("OPENAI_API_KEY", file.OpenAIAPIKey),
		LogLevel:                getenvDefault("LOG_LEVEL", orDefault(file.LogLevel, "info")),
		LogFormat:               getenvDefault("LOG_FORMAT", orDefault(file.LogFormat, "console")),
	}

	timezoneName := getenvDefault("LOCAL_TIMEZONE", orDefault(file.LocalTimezone, "Local"))
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		return nil, fmt.Errorf("config: invalid LOCAL_TIMEZONE %q: %w", timezoneName, err)
	}
	cfg.LocalTimezone = location

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = deriveStoreDriver(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func deriveStoreDriver(cfg *Config) string {
	switch {
	case cfg.FirebaseConfig != "":
		return "firestore"
	case cfg.DatabaseURL != "":
		return "postgres"
	default:
		return "sqlite"
	}
}

// Validate reports missing credentials for the configured services.
func (c *Config) Validate() error {
	var missing []string
	if c.TwilioAccountSID == "" {
		missing = append(missing, "TWILIO_ACCOUNT_SID")
	}
	if c.TwilioAuthToken == "" {
		missing = append(missing, "TWILIO_AUTH_TOKEN")
	}
	if c.TwilioWhatsAppNumber == "" {
		missing = append(missing, "TWILIO_WHATSAPP_NUMBER")
	}
	switch c.StoreDriver {
	case "postgres", "postgresql":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case "firestore":
		if c.FirebaseConfig == "" {
			missing = append(missing, "FIREBASE_CONFIG")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("config: POLL_INTERVAL must be at least 1s, got %s", c.PollInterval)
	}
	return nil
}

func getenvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func orDefaultFloat(value, def float64) float64 {
	if value <= 0 {
		return def
	}
	return value
}

func parseDurationDefault(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// ParseFloatEnv returns the positive float value for an environment variable or def.
func ParseFloatEnv(key string, def float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// ParseBoolEnv returns the boolean value for an environment variable or def.
func ParseBoolEnv(key string, def bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

// ParseDurationEnv accepts Go durations ("90s") or plain seconds ("90").
func ParseDurationEnv(key string, def time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return def
		}
		return time.Duration(secs) * time.Second
	}
	return parseDurationDefault(value, def)
}
