package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 9090
database:
  consent:
    hostname: db.local
    user: consent
    password: secret
    database: consent_db
security:
  jwt:
    secret: test-secret
notification:
  sink: webhook
  webhook:
    url: https://crm.example.com/hooks/consent
    token: hook-token
session:
  presence_ttl: 90s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deployment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesFileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.local", cfg.Database.Consent.Hostname)
	assert.Equal(t, 3306, cfg.Database.Consent.Port)
	assert.Equal(t, 72*time.Hour, cfg.Access.LinkTTL)
	assert.Equal(t, 90*time.Second, cfg.Session.PresenceTTL)
	assert.Equal(t, "ONLINE_FORM", cfg.Consent.DefaultMethod)
	assert.Equal(t, 3, cfg.Notification.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Notification.DeliveryTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Notification.StaleAfter)
	assert.Equal(t, "hook-token", cfg.Notification.Webhook.Token)
	assert.False(t, cfg.Session.IsRedisEnabled())
	assert.Same(t, cfg, Get())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("CONSENT_SVC_SERVER_PORT", "7070")
	t.Setenv("CONSENT_SVC_DATABASE_CONSENT_HOSTNAME", "db.override")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "db.override", cfg.Database.Consent.Hostname)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:       ServerConfig{Port: 8080},
			Database:     DatabasesConfig{Consent: DatabaseConfig{Hostname: "h", Database: "d"}},
			Security:     SecurityConfig{JWT: JWTConfig{Secret: "s"}},
			Access:       AccessConfig{LinkTTL: time.Hour},
			Consent:      ConsentConfig{DefaultMethod: "ONLINE_FORM"},
			Notification: NotificationConfig{MaxAttempts: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid server port"},
		{name: "missing host", mutate: func(c *Config) { c.Database.Consent.Hostname = "" }, wantErr: "hostname"},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Security.JWT.Secret = "" }, wantErr: "jwt secret"},
		{name: "unknown method", mutate: func(c *Config) { c.Consent.DefaultMethod = "FAX" }, wantErr: "consent method"},
		{name: "webhook without url", mutate: func(c *Config) { c.Notification.Sink = "webhook" }, wantErr: "webhook url"},
		{name: "kafka without topic", mutate: func(c *Config) {
			c.Notification.Sink = "kafka"
			c.Notification.Kafka.Brokers = []string{"localhost:9092"}
		}, wantErr: "kafka brokers and topic"},
		{name: "unknown sink", mutate: func(c *Config) { c.Notification.Sink = "sqs" }, wantErr: "unsupported notification sink"},
		{name: "stale window inside delivery timeout", mutate: func(c *Config) {
			c.Notification.DeliveryTimeout = time.Minute
			c.Notification.StaleAfter = 30 * time.Second
		}, wantErr: "stale_after must exceed delivery_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Hostname: "h", Port: 3306, Database: "db"}
	assert.Equal(t, "u:p@tcp(h:3306)/db?parseTime=true&multiStatements=true", d.GetDSN())
}
