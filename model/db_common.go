package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config is read from config.toml. Secrets can be overridden from the
// environment or a .env file.
type Config struct {
	Basedir                  string
	CookieDomain             string // parent domain when the session is shared across subdomains
	CookieSecret             string
	Currency                 string
	ImageBucket              string
	ImageCredentials         string // service account JSON, empty for default credentials
	InvoiceNumberPattern     string
	MailAPIKey               string
	MailFrom                 string
	MailSecret               string
	Mode                     string
	PaymentKeyID             string
	PaymentSecret            string
	Port                     int
	PremiumPrice             string
	PublishingServerAddress  string
	PublishingServerUsername string
	RegistrationAllowed      bool
	Renderer                 string
	SubscriptionDays         int
	Servers                  map[string]Server
}

// Server is the database section for one mode.
type Server struct {
	Database   string
	DBName     string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     int
	DBLogger   string
}

func (s Server) port() int {
	if s.DBPort == 0 {
		return 5432
	}
	return s.DBPort
}

// CurrentServer returns the database section of the active mode.
func (cfg *Config) CurrentServer() Server {
	return cfg.Servers[cfg.Mode]
}

// PremiumAmount is the subscription price as a decimal.
func (cfg *Config) PremiumAmount() decimal.Decimal {
	d, err := decimal.NewFromString(cfg.PremiumPrice)
	if err != nil {
		return decimal.Zero
	}
	return d
}

var envOverrides = []struct {
	name string
	set  func(*Config, string)
}{
	{"INVOICEDESK_COOKIE_SECRET", func(c *Config, v string) { c.CookieSecret = v }},
	{"INVOICEDESK_MAIL_API_KEY", func(c *Config, v string) { c.MailAPIKey = v }},
	{"INVOICEDESK_MAIL_SECRET", func(c *Config, v string) { c.MailSecret = v }},
	{"INVOICEDESK_PAYMENT_SECRET", func(c *Config, v string) { c.PaymentSecret = v }},
	{"INVOICEDESK_GCS_CREDENTIALS", func(c *Config, v string) { c.ImageCredentials = v }},
	{"INVOICEDESK_DB_PASSWORD", func(c *Config, v string) {
		svr := c.Servers[c.Mode]
		svr.DBPassword = v
		c.Servers[c.Mode] = svr
	}},
}

// LoadConfig reads the TOML file at path, then applies .env and environment
// overrides and fills defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err = toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if cfg.Servers == nil {
		cfg.Servers = map[string]Server{}
	}
	cfg.applyDefaults()
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			o.set(cfg, v)
		}
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Renderer == "" {
		cfg.Renderer = "local"
	}
	if cfg.SubscriptionDays == 0 {
		cfg.SubscriptionDays = 30
	}
	if cfg.InvoiceNumberPattern == "" {
		cfg.InvoiceNumberPattern = "INV-%YYYY%-%04C%"
	}
	if cfg.Mode == "" {
		cfg.Mode = "development"
	}
}

// shared helper for GORM logger
func gormLoggerFor(cfg *Config, svr Server) *gorm.Config {
	gormConfig := &gorm.Config{}
	switch svr.DBLogger {
	case "info":
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	case "silent":
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	default:
		if cfg.Mode == "development" {
			gormConfig.Logger = logger.Default.LogMode(logger.Info)
		} else {
			gormConfig.Logger = logger.Default.LogMode(logger.Silent)
		}
	}
	return gormConfig
}
