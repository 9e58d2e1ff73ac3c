package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	ERP        ERPConfig
	Storefront StorefrontConfig
	Sync       SyncConfig
	Retry      RetryConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// ERPConfig holds the ERP account, credentials and item settings
type ERPConfig struct {
	AccountID       string
	ConsumerKey     string
	ConsumerSecret  string
	TokenID         string
	TokenSecret     string
	SignatureMethod string // HMAC-SHA1 or HMAC-SHA256
	BaseURL         string // derived from AccountID when empty
	Timeout         time.Duration
	// Outbound throttling
	RequestsPerSecond float64
	Burst             int
	QueryPageSize     int
	StatusChunkSize   int
	SubsidiaryID      string
	// Custom body fields receiving folded tax and discount amounts
	TaxTotalField      string
	DiscountTotalField string
	Items              ItemsConfig
}

// ItemsConfig holds the ERP item ids referenced by generated lines
type ItemsConfig struct {
	FallbackItemID string
	TaxItemID      string
	ShippingItemID string
	DiscountItemID string
	TaxAsLine      bool
	ShippingAsLine bool
	DiscountAsLine bool
}

// StorefrontConfig holds the storefront API settings
type StorefrontConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MarkProcessing bool // set storefront status to "processing" after a create
}

// SyncConfig holds reconciliation policy
type SyncConfig struct {
	SourcePrefix              string
	TotalTolerance            decimal.Decimal
	ContactEmailQuestionIndex int
	DropshipPaymentMethods    []string
	ClaimEnabled              bool
	ClaimBackend              string // memory or redis
	ClaimTTL                  time.Duration
}

// RetryConfig holds the linear retry policy
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// DatabaseConfig holds database connection settings for the attempt log
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
}

// Load loads configuration from config.toml in the default search paths
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from a TOML file and environment variables.
// When path is empty the default search paths are used and a missing file is
// not an error.
// Priority (highest to lowest):
// 1. Environment variables with ORDERSYNC_ prefix (e.g., ORDERSYNC_ERP_TOKEN_SECRET)
// 2. config file
// 3. Built-in defaults
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ordersync")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("ORDERSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// zero is a valid setting and means the totals must match exactly
	tolerance := decimal.New(1, -2)
	if raw := strings.TrimSpace(v.GetString("sync.total_tolerance")); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("sync.total_tolerance: %w", err)
		}
		tolerance = d
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		ERP: ERPConfig{
			AccountID:          v.GetString("erp.account_id"),
			ConsumerKey:        v.GetString("erp.consumer_key"),
			ConsumerSecret:     v.GetString("erp.consumer_secret"),
			TokenID:            v.GetString("erp.token_id"),
			TokenSecret:        v.GetString("erp.token_secret"),
			SignatureMethod:    v.GetString("erp.signature_method"),
			BaseURL:            v.GetString("erp.base_url"),
			Timeout:            v.GetDuration("erp.timeout"),
			RequestsPerSecond:  v.GetFloat64("erp.requests_per_second"),
			Burst:              v.GetInt("erp.burst"),
			QueryPageSize:      v.GetInt("erp.query_page_size"),
			StatusChunkSize:    v.GetInt("erp.status_chunk_size"),
			SubsidiaryID:       v.GetString("erp.subsidiary_id"),
			TaxTotalField:      v.GetString("erp.tax_total_field"),
			DiscountTotalField: v.GetString("erp.discount_total_field"),
			Items: ItemsConfig{
				FallbackItemID: v.GetString("erp.items.fallback_item_id"),
				TaxItemID:      v.GetString("erp.items.tax_item_id"),
				ShippingItemID: v.GetString("erp.items.shipping_item_id"),
				DiscountItemID: v.GetString("erp.items.discount_item_id"),
				TaxAsLine:      v.GetBool("erp.items.tax_as_line"),
				ShippingAsLine: v.GetBool("erp.items.shipping_as_line"),
				DiscountAsLine: v.GetBool("erp.items.discount_as_line"),
			},
		},
		Storefront: StorefrontConfig{
			BaseURL:        v.GetString("storefront.base_url"),
			APIKey:         v.GetString("storefront.api_key"),
			Timeout:        v.GetDuration("storefront.timeout"),
			MarkProcessing: v.GetBool("storefront.mark_processing"),
		},
		Sync: SyncConfig{
			SourcePrefix:              v.GetString("sync.source_prefix"),
			TotalTolerance:            tolerance,
			ContactEmailQuestionIndex: v.GetInt("sync.contact_email_question_index"),
			DropshipPaymentMethods:    v.GetStringSlice("sync.dropship_payment_methods"),
			ClaimEnabled:              v.GetBool("sync.claim_enabled"),
			ClaimBackend:              v.GetString("sync.claim_backend"),
			ClaimTTL:                  v.GetDuration("sync.claim_ttl"),
		},
		Retry: RetryConfig{
			MaxAttempts: v.GetInt("retry.max_attempts"),
			Delay:       v.GetDuration("retry.delay"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("database.enabled"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "ordersync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.ERP.SignatureMethod == "" {
		cfg.ERP.SignatureMethod = "HMAC-SHA256"
	}
	if cfg.ERP.Timeout == 0 {
		cfg.ERP.Timeout = 30 * time.Second
	}
	if cfg.ERP.RequestsPerSecond == 0 {
		cfg.ERP.RequestsPerSecond = 5
	}
	if cfg.ERP.Burst == 0 {
		cfg.ERP.Burst = 5
	}
	if cfg.ERP.QueryPageSize == 0 {
		cfg.ERP.QueryPageSize = 1000
	}
	if cfg.ERP.StatusChunkSize == 0 {
		cfg.ERP.StatusChunkSize = 500
	}
	if cfg.Storefront.Timeout == 0 {
		cfg.Storefront.Timeout = 15 * time.Second
	}
	if cfg.Sync.SourcePrefix == "" {
		cfg.Sync.SourcePrefix = "SHOP"
	}
	if len(cfg.Sync.DropshipPaymentMethods) == 0 {
		cfg.Sync.DropshipPaymentMethods = []string{"dropship"}
	}
	if cfg.Sync.ClaimBackend == "" {
		cfg.Sync.ClaimBackend = "memory"
	}
	if cfg.Sync.ClaimTTL == 0 {
		cfg.Sync.ClaimTTL = 10 * time.Minute
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.Delay == 0 {
		cfg.Retry.Delay = 5 * time.Second
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "ordersync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "ordersync"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.ERP.SignatureMethod {
	case "HMAC-SHA1", "HMAC-SHA256":
	default:
		return fmt.Errorf("erp.signature_method must be HMAC-SHA1 or HMAC-SHA256, got %q", c.ERP.SignatureMethod)
	}
	if c.ERP.QueryPageSize < 0 || c.ERP.QueryPageSize > 1000 {
		return fmt.Errorf("erp.query_page_size must be between 1 and 1000, got %d", c.ERP.QueryPageSize)
	}
	if c.Sync.TotalTolerance.IsNegative() {
		return fmt.Errorf("sync.total_tolerance cannot be negative")
	}
	if c.Sync.ContactEmailQuestionIndex < 0 {
		return fmt.Errorf("sync.contact_email_question_index cannot be negative")
	}
	if c.Sync.ClaimBackend != "memory" && c.Sync.ClaimBackend != "redis" {
		return fmt.Errorf("sync.claim_backend must be memory or redis, got %q", c.Sync.ClaimBackend)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay cannot be negative")
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Database.Enabled && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Storefront.BaseURL != "" && !strings.HasPrefix(c.Storefront.BaseURL, "https://") {
			return fmt.Errorf("storefront.base_url must use https in production")
		}
		if c.Telemetry.Enabled && c.Telemetry.Insecure {
			return fmt.Errorf("telemetry.insecure must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// RequireCredentials reports the first missing ERP credential
func (e *ERPConfig) RequireCredentials() error {
	missing := make([]string, 0, 5)
	for key, val := range map[string]string{
		"erp.account_id":      e.AccountID,
		"erp.consumer_key":    e.ConsumerKey,
		"erp.consumer_secret": e.ConsumerSecret,
		"erp.token_id":        e.TokenID,
		"erp.token_secret":    e.TokenSecret,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("missing ERP credentials: %s", strings.Join(missing, ", "))
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
