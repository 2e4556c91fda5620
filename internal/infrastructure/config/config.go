package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Log        LogConfig
	HTTP       HTTPConfig
	MSDynamics MSDynamicsConfig
	Vend       VendConfig
	Worker     WorkerConfig
	Telemetry  TelemetryConfig
}

// TelemetryConfig holds tracing instrumentation settings
type TelemetryConfig struct {
	// Enabled turns request and query tracing on
	Enabled bool
	// ServiceName labels the spans, defaults to the app name
	ServiceName string
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
	Port string
	// BaseURL is the externally reachable address used to build OAuth
	// redirect URIs and the status-push callback URL.
	BaseURL string
	// AdminURL is where OAuth callbacks redirect the browser afterwards.
	AdminURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
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

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// MSDynamicsConfig holds the ERP OAuth application settings.
// Client credentials identify this deployment against the identity
// provider; per-tenant tokens live in the credential store.
type MSDynamicsConfig struct {
	TokenURL     string
	AuthorizeURL string
	ClientID     string
	ClientSecret string
	RedirectPath string
	// RequestTimeout bounds every outbound OData call
	RequestTimeout time.Duration
}

// VendConfig holds the POS OAuth application settings
type VendConfig struct {
	AuthorizeURL   string
	ClientID       string
	ClientSecret   string
	RedirectPath   string
	RequestTimeout time.Duration
}

// WorkerConfig holds lifecycle worker tuning
type WorkerConfig struct {
	// BatchSize is the record count per ERP batch envelope
	BatchSize int
	// PushConcurrency bounds in-flight batch requests per push
	PushConcurrency int
	// ReceiveConcurrency bounds in-flight POS calls per receiving run
	ReceiveConcurrency int
	// RefreshLockTTL bounds how long a token refresh may hold the
	// per-tenant lock before it is considered abandoned.
	RefreshLockTTL time.Duration
	// StatusCallbackURL, when set, makes workers relay status events over
	// HTTP to the instance holding the live connections instead of the
	// in-process registry. Leave empty for single-process deployments.
	StatusCallbackURL string
	// StatusCallbackToken is the bearer token for the status callback
	StatusCallbackToken string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOCKUP_ prefix (e.g., STOCKUP_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("STOCKUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			BaseURL:  v.GetString("app.base_url"),
			AdminURL: v.GetString("app.admin_url"),
		},
		Database: DatabaseConfig{
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
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		MSDynamics: MSDynamicsConfig{
			TokenURL:       v.GetString("msdynamics.token_url"),
			AuthorizeURL:   v.GetString("msdynamics.authorize_url"),
			ClientID:       v.GetString("msdynamics.client_id"),
			ClientSecret:   v.GetString("msdynamics.client_secret"),
			RedirectPath:   v.GetString("msdynamics.redirect_path"),
			RequestTimeout: v.GetDuration("msdynamics.request_timeout"),
		},
		Vend: VendConfig{
			AuthorizeURL:   v.GetString("vend.authorize_url"),
			ClientID:       v.GetString("vend.client_id"),
			ClientSecret:   v.GetString("vend.client_secret"),
			RedirectPath:   v.GetString("vend.redirect_path"),
			RequestTimeout: v.GetDuration("vend.request_timeout"),
		},
		Worker: WorkerConfig{
			BatchSize:           v.GetInt("worker.batch_size"),
			PushConcurrency:     v.GetInt("worker.push_concurrency"),
			ReceiveConcurrency:  v.GetInt("worker.receive_concurrency"),
			RefreshLockTTL:      v.GetDuration("worker.refresh_lock_ttl"),
			StatusCallbackURL:   v.GetString("worker.status_callback_url"),
			StatusCallbackToken: v.GetString("worker.status_callback_token"),
		},
		Telemetry: TelemetryConfig{
			Enabled:     v.GetBool("telemetry.enabled"),
			ServiceName: v.GetString("telemetry.service_name"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "stockup-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}
	if cfg.App.AdminURL == "" {
		cfg.App.AdminURL = cfg.App.BaseURL
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
		cfg.Database.DBName = "stockup"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "stockup-backend"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"}
	}
	if cfg.MSDynamics.TokenURL == "" {
		cfg.MSDynamics.TokenURL = "https://login.windows.net/common/oauth2/token"
	}
	if cfg.MSDynamics.AuthorizeURL == "" {
		cfg.MSDynamics.AuthorizeURL = "https://login.windows.net/common/oauth2/authorize"
	}
	if cfg.MSDynamics.RedirectPath == "" {
		cfg.MSDynamics.RedirectPath = "/api/v1/connect/msdynamics/callback"
	}
	if cfg.MSDynamics.RequestTimeout == 0 {
		cfg.MSDynamics.RequestTimeout = 120 * time.Second
	}
	if cfg.Vend.AuthorizeURL == "" {
		cfg.Vend.AuthorizeURL = "https://secure.vendhq.com/connect"
	}
	if cfg.Vend.RedirectPath == "" {
		cfg.Vend.RedirectPath = "/api/v1/connect/vend/callback"
	}
	if cfg.Vend.RequestTimeout == 0 {
		cfg.Vend.RequestTimeout = 30 * time.Second
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = 100
	}
	if cfg.Worker.PushConcurrency == 0 {
		cfg.Worker.PushConcurrency = 5
	}
	if cfg.Worker.ReceiveConcurrency == 0 {
		cfg.Worker.ReceiveConcurrency = 5
	}
	if cfg.Worker.RefreshLockTTL == 0 {
		cfg.Worker.RefreshLockTTL = 30 * time.Second
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
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

	if c.Worker.BatchSize <= 0 {
		return fmt.Errorf("worker.batch_size must be positive")
	}
	if c.Worker.PushConcurrency <= 0 || c.Worker.ReceiveConcurrency <= 0 {
		return fmt.Errorf("worker concurrency limits must be positive")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.MSDynamics.ClientID == "" || c.MSDynamics.ClientSecret == "" {
			return fmt.Errorf("msdynamics.client_id and msdynamics.client_secret are required in production")
		}
		if c.Vend.ClientID == "" || c.Vend.ClientSecret == "" {
			return fmt.Errorf("vend.client_id and vend.client_secret are required in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
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

// RedirectURL returns the absolute ERP OAuth redirect URI
func (m *MSDynamicsConfig) RedirectURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + m.RedirectPath
}

// RedirectURL returns the absolute POS OAuth redirect URI
func (vc *VendConfig) RedirectURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + vc.RedirectPath
}
