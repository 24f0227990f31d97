package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabasesConfig    `mapstructure:"database"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Security     SecurityConfig     `mapstructure:"security"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Access       AccessConfig       `mapstructure:"access"`
	Consent      ConsentConfig      `mapstructure:"consent"`
	Notification NotificationConfig `mapstructure:"notification"`
	Session      SessionConfig      `mapstructure:"session"`
	Mail         MailConfig         `mapstructure:"mail"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname     string        `mapstructure:"hostname"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabasesConfig holds all database configurations
type DatabasesConfig struct {
	Consent DatabaseConfig `mapstructure:"consent"`
}

// DatabaseConfig holds individual database configuration
type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	Hostname        string        `mapstructure:"hostname"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds bearer token settings used to resolve staff identities
type SecurityConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig holds the shared secret and expected issuer of staff tokens
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// AccessConfig holds access gate settings
type AccessConfig struct {
	LinkTTL    time.Duration `mapstructure:"link_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// ConsentConfig holds consent recording settings
type ConsentConfig struct {
	DefaultMethod string `mapstructure:"default_method"`
	ExportMaxTake int    `mapstructure:"export_max_take"`
}

// NotificationConfig holds ready-for-review dispatch settings
type NotificationConfig struct {
	// Sink is "webhook", "kafka" or empty for no external delivery.
	Sink            string        `mapstructure:"sink"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	StaleAfter      time.Duration `mapstructure:"stale_after"`
	Webhook         WebhookConfig `mapstructure:"webhook"`
	Kafka           KafkaConfig   `mapstructure:"kafka"`
}

// WebhookConfig holds the HTTP sink target
type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// KafkaConfig holds the message sink target
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// SessionConfig holds client presence settings
type SessionConfig struct {
	PresenceTTL time.Duration `mapstructure:"presence_ttl"`
	Redis       RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds redis connection settings. An empty address selects the in-memory tracker.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MailConfig holds SMTP settings for supervisor alerts
type MailConfig struct {
	Host          string   `mapstructure:"host"`
	Port          int      `mapstructure:"port"`
	User          string   `mapstructure:"user"`
	Password      string   `mapstructure:"password"`
	From          string   `mapstructure:"from"`
	Supervisors   []string `mapstructure:"supervisors"`
	SkipTLSVerify bool     `mapstructure:"skip_tls_verify"`
}

// TracingConfig controls the OpenTelemetry tracer provider
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

var globalConfig *Config

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("deployment")
		v.SetConfigType("yaml")
		v.AddConfigPath("./repository/conf")
		v.AddConfigPath("./cmd/server/repository/conf")
		v.AddConfigPath("../repository/conf")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CONSENT_SVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	globalConfig = &config
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.hostname", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("database.consent.type", "mysql")
	v.SetDefault("database.consent.port", 3306)
	v.SetDefault("database.consent.max_open_conns", 25)
	v.SetDefault("database.consent.max_idle_conns", 5)
	v.SetDefault("database.consent.conn_max_lifetime", "5m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("access.link_ttl", "72h")
	v.SetDefault("access.bcrypt_cost", 10)
	v.SetDefault("consent.default_method", "ONLINE_FORM")
	v.SetDefault("consent.export_max_take", 500)
	v.SetDefault("notification.max_attempts", 3)
	v.SetDefault("notification.retry_backoff", "500ms")
	v.SetDefault("notification.delivery_timeout", "30s")
	v.SetDefault("notification.stale_after", "5m")
	v.SetDefault("notification.webhook.timeout", "5s")
	v.SetDefault("session.presence_ttl", "2m")
	v.SetDefault("mail.port", 587)
	v.SetDefault("tracing.service_name", "consent-service")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Consent.Hostname == "" {
		return fmt.Errorf("database hostname is required")
	}

	if config.Database.Consent.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if config.Security.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}

	if config.Access.LinkTTL <= 0 {
		return fmt.Errorf("access link ttl must be positive")
	}

	switch config.Consent.DefaultMethod {
	case "ONLINE_FORM", "PHONE_CALL", "PARTNER_SUBMISSION":
	default:
		return fmt.Errorf("invalid default consent method: %s", config.Consent.DefaultMethod)
	}

	if config.Notification.MaxAttempts < 1 {
		return fmt.Errorf("notification max attempts must be at least 1")
	}
	if n := config.Notification; n.StaleAfter > 0 && n.StaleAfter <= n.DeliveryTimeout {
		return fmt.Errorf("notification stale_after must exceed delivery_timeout")
	}

	switch config.Notification.Sink {
	case "":
	case "webhook":
		if config.Notification.Webhook.URL == "" {
			return fmt.Errorf("webhook url is required when the webhook sink is selected")
		}
	case "kafka":
		if len(config.Notification.Kafka.Brokers) == 0 || config.Notification.Kafka.Topic == "" {
			return fmt.Errorf("kafka brokers and topic are required when the kafka sink is selected")
		}
	default:
		return fmt.Errorf("unsupported notification sink: %s", config.Notification.Sink)
	}

	return nil
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// SetGlobal sets the global configuration (for testing purposes)
func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

// GetDSN returns the database connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		d.User,
		d.Password,
		d.Hostname,
		d.Port,
		d.Database,
	)
}

// GetServerAddress returns the server address in host:port format
func (s *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

// IsRedisEnabled reports whether a redis address is configured
func (s *SessionConfig) IsRedisEnabled() bool {
	return s.Redis.Address != ""
}

// IsMailEnabled reports whether supervisor alerts can be sent
func (m *MailConfig) IsMailEnabled() bool {
	return m.Host != "" && m.From != ""
}
