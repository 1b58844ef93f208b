package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the backend.
type Config struct {
	Env         string        `yaml:"env"`
	Port        string        `yaml:"port"`
	DatabaseURL string        `yaml:"databaseUrl"`
	JWTSecret   string        `yaml:"jwtSecret"`
	JWTExpiry   time.Duration `yaml:"jwtExpiry"`
	CORSOrigins []string      `yaml:"corsOrigins"`
	LogLevel    string        `yaml:"logLevel"`
	SlowRequest time.Duration `yaml:"slowRequest"`

	Database DatabaseConfig `yaml:"database"`
	Uploads  UploadConfig   `yaml:"uploads"`
	S3       S3Config       `yaml:"s3"`
	PDF      PDFConfig      `yaml:"pdf"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	NATS     NATSConfig     `yaml:"nats"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Quotes   QuoteConfig    `yaml:"quotes"`
}

type DatabaseConfig struct {
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
}

type UploadConfig struct {
	Dir         string `yaml:"dir"`
	PublicPath  string `yaml:"publicPath"`
	MaxFileSize int64  `yaml:"maxFileSize"`
}

// S3Config switches uploads to an S3 compatible bucket when Bucket is set.
type S3Config struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"accessKey"`
	SecretKey     string `yaml:"secretKey"`
	PublicBaseURL string `yaml:"publicBaseUrl"`
	UsePathStyle  bool   `yaml:"usePathStyle"`
}

func (c S3Config) Enabled() bool { return c.Bucket != "" }

type PDFConfig struct {
	ChromeBin string        `yaml:"chromeBin"`
	ChromeURL string        `yaml:"chromeUrl"`
	Timeout   time.Duration `yaml:"timeout"`
}

type TwilioConfig struct {
	AccountSID   string `yaml:"accountSid"`
	AuthToken    string `yaml:"authToken"`
	FromNumber   string `yaml:"fromNumber"`
	WhatsAppFrom string `yaml:"whatsappFrom"`
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// JobsConfig holds cron specs for the background jobs.
type JobsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	OutboxSpec     string `yaml:"outboxSpec"`
	ExpirySpec     string `yaml:"expirySpec"`
	RemindersSpec  string `yaml:"remindersSpec"`
	OutboxMaxTries int    `yaml:"outboxMaxTries"`
}

type QuoteConfig struct {
	ValidityDays int    `yaml:"validityDays"`
	Currency     string `yaml:"currency"`
	NotifySMS    bool   `yaml:"notifySms"`
}

// Default returns a configuration usable for local development once a
// database URL and JWT secret are provided.
func Default() *Config {
	return &Config{
		Env:         "development",
		Port:        "8080",
		JWTExpiry:   time.Hour,
		CORSOrigins: []string{"http://localhost:3000"},
		LogLevel:    "info",
		SlowRequest: 200 * time.Millisecond,
		Database: DatabaseConfig{
			MaxIdleConns:    10,
			MaxOpenConns:    50,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: time.Minute,
		},
		Uploads: UploadConfig{
			Dir:         "uploads",
			PublicPath:  "/uploads",
			MaxFileSize: 5 << 20,
		},
		S3:   S3Config{Region: "us-east-1"},
		PDF:  PDFConfig{Timeout: 30 * time.Second},
		NATS: NATSConfig{SubjectPrefix: "inkdesk"},
		Jobs: JobsConfig{
			Enabled:        true,
			OutboxSpec:     "@every 1m",
			ExpirySpec:     "@every 10m",
			RemindersSpec:  "@every 5m",
			OutboxMaxTries: 10,
		},
		Quotes: QuoteConfig{
			ValidityDays: 30,
			Currency:     "EUR",
			NotifySMS:    true,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// $INKDESK_CONFIG), then environment variables. A .env file in the working
// directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("INKDESK_CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file onto cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings with the environment variables that are set.
func (c *Config) ApplyEnv() {
	setString(&c.Env, "APP_ENV")
	setString(&c.Port, "PORT")
	setString(&c.DatabaseURL, "DB_URL")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.LogLevel, "LOG_LEVEL")
	if v := os.Getenv("JWT_EXPIRY_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			c.JWTExpiry = time.Duration(m) * time.Minute
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	setString(&c.Uploads.Dir, "UPLOAD_DIR")
	setString(&c.S3.Bucket, "S3_BUCKET")
	setString(&c.S3.Region, "S3_REGION")
	setString(&c.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.S3.PublicBaseURL, "S3_PUBLIC_URL")
	if v := os.Getenv("S3_PATH_STYLE"); v != "" {
		c.S3.UsePathStyle, _ = strconv.ParseBool(v)
	}

	setString(&c.PDF.ChromeBin, "CHROME_BIN")
	setString(&c.PDF.ChromeURL, "CHROME_URL")

	setString(&c.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	setString(&c.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	setString(&c.Twilio.FromNumber, "TWILIO_FROM_NUMBER")
	setString(&c.Twilio.WhatsAppFrom, "TWILIO_WHATSAPP_FROM")

	setString(&c.NATS.URL, "NATS_URL")
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database url is required (DB_URL)"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required (JWT_SECRET)"))
	}
	if c.JWTExpiry <= 0 {
		errs = append(errs, errors.New("jwt expiry must be positive"))
	}
	if c.Uploads.MaxFileSize <= 0 {
		errs = append(errs, errors.New("uploads.maxFileSize must be positive"))
	}
	if c.Quotes.ValidityDays <= 0 {
		errs = append(errs, errors.New("quotes.validityDays must be positive"))
	}
	if len(c.Quotes.Currency) != 3 {
		errs = append(errs, fmt.Errorf("quotes.currency %q is not an ISO code", c.Quotes.Currency))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
