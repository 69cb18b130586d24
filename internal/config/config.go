package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config/config.yaml"

type ServerConfig struct {
	Port           int           `yaml:"port" env:"SERVER_PORT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT"`
	GinMode        string        `yaml:"gin_mode" env:"GIN_MODE"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN    string `yaml:"url" env:"DATABASE_URL"`
}

type PasswordPolicy struct {
	MinLength     int  `yaml:"min_length" env:"PASSWORD_MIN_LENGTH"`
	RequireLower  bool `yaml:"require_lower" env:"PASSWORD_REQUIRE_LOWER"`
	RequireUpper  bool `yaml:"require_upper" env:"PASSWORD_REQUIRE_UPPER"`
	RequireDigit  bool `yaml:"require_digit" env:"PASSWORD_REQUIRE_DIGIT"`
	RequireSymbol bool `yaml:"require_symbol" env:"PASSWORD_REQUIRE_SYMBOL"`
}

type AuthConfig struct {
	Issuer        string         `yaml:"issuer" env:"JWT_ISSUER"`
	AccessSecret  string         `yaml:"access_secret" env:"JWT_ACCESS_SECRET"`
	RefreshSecret string         `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET"`
	AccessTTL     time.Duration  `yaml:"access_ttl" env:"JWT_ACCESS_TTL"`
	RefreshTTL    time.Duration  `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL"`
	BcryptCost    int            `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	PhoneCodeTTL  time.Duration  `yaml:"phone_code_ttl" env:"PHONE_CODE_TTL"`
	ResetTokenTTL time.Duration  `yaml:"reset_token_ttl" env:"RESET_TOKEN_TTL"`
	TOTPIssuer    string         `yaml:"totp_issuer" env:"TOTP_ISSUER"`
	Password      PasswordPolicy `yaml:"password"`
}

type NotifierConfig struct {
	// log | direct | kafka
	Driver   string `yaml:"driver" env:"NOTIFIER_DRIVER"`
	ResetURL string `yaml:"reset_url" env:"NOTIFIER_RESET_URL"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host" env:"SMTP_HOST"`
	SMTPPort     int    `yaml:"smtp_port" env:"SMTP_PORT"`
	SMTPUser     string `yaml:"smtp_user" env:"SMTP_USER"`
	SMTPPassword string `yaml:"smtp_password" env:"SMTP_PASSWORD"`
	FromEmail    string `yaml:"from_email" env:"SMTP_FROM"`
}

type MobizonConfig struct {
	APIKey   string `yaml:"api_key" env:"MOBIZON_API_KEY"`
	SenderID string `yaml:"sender_id" env:"MOBIZON_SENDER_ID"`
	BaseURL  string `yaml:"base_url" env:"MOBIZON_BASE_URL"`
	DryRun   bool   `yaml:"dry_run" env:"MOBIZON_DRY_RUN"`
}

type KafkaConfig struct {
	Brokers  []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	Topic    string   `yaml:"topic" env:"KAFKA_TOPIC"`
	Username string   `yaml:"username" env:"KAFKA_USERNAME"`
	Password string   `yaml:"password" env:"KAFKA_PASSWORD"`
	TLS      bool     `yaml:"tls" env:"KAFKA_TLS"`
}

type LogConfig struct {
	Env    string `yaml:"env" env:"APP_ENV"`
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Notifier NotifierConfig `yaml:"notifier"`
	Email    EmailConfig    `yaml:"email"`
	Mobizon  MobizonConfig  `yaml:"mobizon"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the configuration used when a key is absent from both the
// YAML file and the environment.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			RequestTimeout: 10 * time.Second,
			GinMode:        "release",
		},
		Database: DatabaseConfig{Driver: "postgres"},
		Auth: AuthConfig{
			Issuer:        "authcore",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			BcryptCost:    12,
			PhoneCodeTTL:  10 * time.Minute,
			ResetTokenTTL: 30 * time.Minute,
			TOTPIssuer:    "authcore",
			Password: PasswordPolicy{
				MinLength:     8,
				RequireLower:  true,
				RequireUpper:  true,
				RequireDigit:  true,
				RequireSymbol: true,
			},
		},
		Notifier: NotifierConfig{Driver: "log"},
		Mobizon:  MobizonConfig{BaseURL: "https://api.mobizon.kz"},
		Log:      LogConfig{Env: "development", Level: "info", Format: "console"},
	}
}

// Load reads the YAML file (CONFIG_PATH or config/config.yaml), an optional
// .env file, then environment overrides, and validates the result.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployments are allowed
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be postgres or sqlite", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, "database.url is required")
	}
	if len(c.Auth.AccessSecret) < 32 {
		errs = append(errs, "auth.access_secret must be at least 32 chars")
	}
	if len(c.Auth.RefreshSecret) < 32 {
		errs = append(errs, "auth.refresh_secret must be at least 32 chars")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, "auth.access_secret and auth.refresh_secret must differ")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.AccessTTL > time.Hour {
		errs = append(errs, "auth.access_ttl must be between 1s and 1h")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL || c.Auth.RefreshTTL > 90*24*time.Hour {
		errs = append(errs, "auth.refresh_ttl must exceed access_ttl and be at most 90d")
	}
	if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 14 {
		errs = append(errs, "auth.bcrypt_cost must be between 10 and 14")
	}
	if c.Auth.PhoneCodeTTL <= 0 {
		errs = append(errs, "auth.phone_code_ttl must be > 0")
	}
	if c.Auth.ResetTokenTTL <= 0 {
		errs = append(errs, "auth.reset_token_ttl must be > 0")
	}
	if c.Auth.Password.MinLength < 6 {
		errs = append(errs, "auth.password.min_length must be at least 6")
	}
	switch c.Notifier.Driver {
	case "log":
		// codes and reset tokens end up in the log output
		if c.Log.Env == "production" {
			errs = append(errs, `notifier.driver "log" is not allowed when log.env is production`)
		}
	case "direct":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			errs = append(errs, "kafka.brokers and kafka.topic are required for the kafka notifier")
		}
	default:
		errs = append(errs, fmt.Sprintf("notifier.driver %q must be log, direct or kafka", c.Notifier.Driver))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
