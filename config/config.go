package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "LOCAL"
	EnvProd  = "PROD"

	StoreMemory = "memory"
	StoreDynamo = "dynamo"

	UploadsDisk = "disk"
	UploadsS3   = "s3"

	MailLog  = "log"
	MailSMTP = "smtp"
	MailSES  = "ses"
)

type Config struct {
	Environment   string `env:"ENVIRONMENT" envDefault:"LOCAL"`
	Host          string `env:"HOST" envDefault:"0.0.0.0"`
	Port          string `env:"PORT" envDefault:"3000"`
	AdminEmail    string `env:"ADMIN_EMAIL,required,notEmpty"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`

	// RequiredMembers does not count the team leader.
	RequiredMembers int `env:"REQUIRED_MEMBERS" envDefault:"4"`

	Store  string       `env:"STORE" envDefault:"memory"`
	Dynamo DynamoConfig `envPrefix:"DYNAMO_"`

	Uploads    string   `env:"UPLOADS" envDefault:"disk"`
	UploadsDir string   `env:"UPLOADS_DIR" envDefault:"uploads"`
	S3         S3Config `envPrefix:"S3_"`

	Mail MailConfig `envPrefix:"MAIL_"`
	SMTP SMTPConfig `envPrefix:"SMTP_"`

	EntryFee EntryFeeConfig `envPrefix:"ENTRY_FEE_"`
	Delivery DeliveryConfig `envPrefix:"DELIVERY_"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Tracing TracingConfig `envPrefix:"OTEL_"`
}

// TracingConfig turns on span export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"team-tickets"`
	APIKey      string `env:"API_KEY"`
	Insecure    bool   `env:"INSECURE"`
}

type DynamoConfig struct {
	TableName string `env:"TABLE_NAME" envDefault:"TeamTickets"`
	Endpoint  string `env:"ENDPOINT"`
}

type S3Config struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

type MailConfig struct {
	Provider string `env:"PROVIDER" envDefault:"log"`
	From     string `env:"FROM" envDefault:"tickets@localhost"`
}

type SMTPConfig struct {
	Host             string `env:"HOST"`
	Port             int    `env:"PORT" envDefault:"587"`
	Username         string `env:"USERNAME"`
	Password         string `env:"PASSWORD"`
	PasswordSSMParam string `env:"PASSWORD_SSM_PARAM"`
}

// EntryFeeConfig is in the currency's minor unit. Zero hides the fee.
type EntryFeeConfig struct {
	Amount   int64  `env:"AMOUNT" envDefault:"0"`
	Currency string `env:"CURRENCY" envDefault:"INR"`
}

type DeliveryConfig struct {
	RetryInterval time.Duration `env:"RETRY_INTERVAL" envDefault:"1m"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"5"`
}

// Load reads the config from the process environment. A .env file in the
// working directory is loaded first if present; it never overrides variables
// that are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return parse(env.Options{})
}

// LoadFrom reads the config from the given variables only.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config from env: %w", err)
	}

	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if !oneOf(c.Environment, EnvLocal, EnvProd) {
		errs = append(errs, fmt.Errorf("ENVIRONMENT must be %s or %s, got %q", EnvLocal, EnvProd, c.Environment))
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %q", c.Port))
	}

	if c.RequiredMembers < 1 {
		errs = append(errs, fmt.Errorf("REQUIRED_MEMBERS must be at least 1, got %d", c.RequiredMembers))
	}

	switch c.Store {
	case StoreMemory:
	case StoreDynamo:
		if c.Dynamo.TableName == "" {
			errs = append(errs, errors.New("DYNAMO_TABLE_NAME is required when STORE=dynamo"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE must be %s or %s, got %q", StoreMemory, StoreDynamo, c.Store))
	}

	switch c.Uploads {
	case UploadsDisk:
		if c.UploadsDir == "" {
			errs = append(errs, errors.New("UPLOADS_DIR is required when UPLOADS=disk"))
		}
	case UploadsS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when UPLOADS=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("UPLOADS must be %s or %s, got %q", UploadsDisk, UploadsS3, c.Uploads))
	}

	switch c.Mail.Provider {
	case MailLog, MailSES:
	case MailSMTP:
		if c.SMTP.Host == "" {
			errs = append(errs, errors.New("SMTP_HOST is required when MAIL_PROVIDER=smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_PROVIDER must be %s, %s or %s, got %q", MailLog, MailSMTP, MailSES, c.Mail.Provider))
	}

	if c.EntryFee.Amount < 0 {
		errs = append(errs, fmt.Errorf("ENTRY_FEE_AMOUNT must not be negative, got %d", c.EntryFee.Amount))
	}

	if c.Delivery.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("DELIVERY_MAX_ATTEMPTS must be at least 1, got %d", c.Delivery.MaxAttempts))
	}
	if c.Delivery.RetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("DELIVERY_RETRY_INTERVAL must be positive, got %s", c.Delivery.RetryInterval))
	}

	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
