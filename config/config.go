// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/artpar/fleetbill/domain/money"
	"github.com/artpar/fleetbill/domain/plan"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Taxes    TaxConfig      `yaml:"taxes"`
	Plans    []PlanConfig   `yaml:"plans"`
	Report   ReportConfig   `yaml:"report"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite"
	DSN    string `yaml:"dsn"`
}

// TaxConfig holds the default tax components applied to new bills. Parsed
// invoices may override them per bill. Values are exact decimal strings.
type TaxConfig struct {
	Internal string `yaml:"internal"`
	Iva      string `yaml:"iva"`
	Other    string `yaml:"other"`
}

// Components parses the configured tax ratios.
func (t TaxConfig) Components() (internal, iva, other money.Tax, err error) {
	if internal, err = money.ParseTax(t.Internal); err != nil {
		return internal, iva, other, fmt.Errorf("taxes.internal: %w", err)
	}
	if iva, err = money.ParseTax(t.Iva); err != nil {
		return internal, iva, other, fmt.Errorf("taxes.iva: %w", err)
	}
	if other, err = money.ParseTax(t.Other); err != nil {
		return internal, iva, other, fmt.Errorf("taxes.other: %w", err)
	}
	return internal, iva, other, nil
}

// PlanConfig configures one phone-line pricing plan. Amounts are exact
// decimal strings.
type PlanConfig struct {
	Name            string `yaml:"name"`
	MonthlyPrice    string `yaml:"monthly_price"`
	PricePerMin     string `yaml:"price_per_min"`
	PricePerSMS     string `yaml:"price_per_sms"`
	IncludedMin     string `yaml:"included_min"`
	IncludedSMS     int64  `yaml:"included_sms"`
	WithMinClearing bool   `yaml:"with_min_clearing"`
	WithSMSClearing bool   `yaml:"with_sms_clearing"`
	Description     string `yaml:"description"`
}

// ToPlan parses the config entry into a domain plan.
func (pc PlanConfig) ToPlan() (plan.Plan, error) {
	p := plan.Plan{
		Name:            pc.Name,
		IncludedSMS:     pc.IncludedSMS,
		WithMinClearing: pc.WithMinClearing,
		WithSMSClearing: pc.WithSMSClearing,
		Description:     pc.Description,
	}
	var err error
	if p.MonthlyPrice, err = money.ParseMoney(orZero(pc.MonthlyPrice)); err != nil {
		return p, fmt.Errorf("plan %s monthly_price: %w", pc.Name, err)
	}
	if p.PricePerMin, err = money.ParseMoney(orZero(pc.PricePerMin)); err != nil {
		return p, fmt.Errorf("plan %s price_per_min: %w", pc.Name, err)
	}
	if p.PricePerSMS, err = money.ParseMoney(orZero(pc.PricePerSMS)); err != nil {
		return p, fmt.Errorf("plan %s price_per_sms: %w", pc.Name, err)
	}
	if p.IncludedMin, err = money.ParseMinutes(orZero(pc.IncludedMin)); err != nil {
		return p, fmt.Errorf("plan %s included_min: %w", pc.Name, err)
	}
	return p, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// ReportConfig configures leader report delivery.
type ReportConfig struct {
	From          string `yaml:"from"`
	FromName      string `yaml:"from_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
	DryRun        bool   `yaml:"dry_run"` // render but do not deliver
}

// SMTPConfig configures the SMTP notifier.
type SMTPConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	UseTLS     bool          `yaml:"use_tls"`
	SkipVerify bool          `yaml:"skip_verify"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	FLEETBILL_DATABASE_DSN    - Database path (default: fleetbill.db)
//	FLEETBILL_SERVER_HOST     - Server host (default: 0.0.0.0)
//	FLEETBILL_SERVER_PORT     - Server port (default: 8080)
//	FLEETBILL_TAX_INTERNAL    - Internal tax ratio (default: 0.0417)
//	FLEETBILL_TAX_IVA         - IVA ratio (default: 0.27)
//	FLEETBILL_TAX_OTHER       - Other taxes ratio (default: 0.01)
//	FLEETBILL_LOG_LEVEL       - Log level: debug, info, warn, error (default: info)
//	FLEETBILL_LOG_FORMAT      - Log format: json or console (default: json)
//	FLEETBILL_METRICS_ENABLED - Enable /metrics endpoint (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables and built-in defaults.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies FLEETBILL_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLEETBILL_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FLEETBILL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FLEETBILL_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("FLEETBILL_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("FLEETBILL_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("FLEETBILL_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("FLEETBILL_TAX_INTERNAL"); v != "" {
		cfg.Taxes.Internal = v
	}
	if v := os.Getenv("FLEETBILL_TAX_IVA"); v != "" {
		cfg.Taxes.Iva = v
	}
	if v := os.Getenv("FLEETBILL_TAX_OTHER"); v != "" {
		cfg.Taxes.Other = v
	}

	if v := os.Getenv("FLEETBILL_SMTP_HOST"); v != "" {
		cfg.SMTP.Host = v
	}
	if v := os.Getenv("FLEETBILL_SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.SMTP.Port = port
		}
	}
	if v := os.Getenv("FLEETBILL_SMTP_USERNAME"); v != "" {
		cfg.SMTP.Username = v
	}
	if v := os.Getenv("FLEETBILL_SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}

	if v := os.Getenv("FLEETBILL_REPORT_FROM"); v != "" {
		cfg.Report.From = v
	}
	if v := os.Getenv("FLEETBILL_REPORT_DRY_RUN"); v != "" {
		cfg.Report.DryRun = parseBool(v)
	}

	if v := os.Getenv("FLEETBILL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FLEETBILL_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("FLEETBILL_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("FLEETBILL_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "fleetbill.db"
	}

	if cfg.Taxes.Internal == "" {
		cfg.Taxes.Internal = "0.0417"
	}
	if cfg.Taxes.Iva == "" {
		cfg.Taxes.Iva = "0.27"
	}
	if cfg.Taxes.Other == "" {
		cfg.Taxes.Other = "0.01"
	}

	if cfg.Report.FromName == "" {
		cfg.Report.FromName = "FleetBill"
	}
	if cfg.Report.SubjectPrefix == "" {
		cfg.Report.SubjectPrefix = "Consumos"
	}

	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.Timeout == 0 {
		cfg.SMTP.Timeout = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be 'sqlite', got %q", cfg.Database.Driver)
	}

	if _, _, _, err := cfg.Taxes.Components(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(cfg.Plans))
	for i, pc := range cfg.Plans {
		if pc.Name == "" {
			return fmt.Errorf("plans[%d].name is required", i)
		}
		if seen[pc.Name] {
			return fmt.Errorf("plans[%d]: duplicate plan %q", i, pc.Name)
		}
		seen[pc.Name] = true
		if _, err := pc.ToPlan(); err != nil {
			return err
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}
