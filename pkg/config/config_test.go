package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
)

func resetGlobal(t *testing.T) {
	t.Helper()
	configMu.Lock()
	globalConfig = nil
	configMu.Unlock()
	t.Cleanup(func() {
		configMu.Lock()
		globalConfig = nil
		configMu.Unlock()
	})
}

// isolate points the config path at an empty dir and clears the env layer.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TENANT_AUTHZ_CONFIG_PATH", dir)
	for _, env := range []string{
		"DATABASE_URL", "TENANT_AUTHZ_SIGNING_SECRET", "TENANT_AUTHZ_TENANT_HEADER",
		"TENANT_AUTHZ_EMAIL_CLAIM", "TENANT_AUTHZ_ROLE_CLAIM", "TENANT_AUTHZ_GLOBAL_ADMIN_ROLE",
		"TENANT_AUTHZ_ALLOWED_ORIGINS", "TENANT_AUTHZ_LOG_LEVEL", "TENANT_AUTHZ_LOG_FORMAT",
		"TENANT_AUTHZ_LOG_FILE", "TENANT_AUTHZ_STORE_TIMEOUT",
	} {
		t.Setenv(env, "")
	}
	return dir
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.ConfigFilePath())
	assert.Equal(t, "OrganizationId", cfg.TenantHeader)
	assert.Equal(t, identity.ClaimEmail, cfg.EmailClaim)
	assert.Equal(t, identity.ClaimRole, cfg.RoleClaim)
	assert.Equal(t, "GlobalAdmin", cfg.GlobalAdminRole)
	assert.Equal(t, DefaultStoreTimeout, cfg.StoreTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.AllowedOrigins)

	for _, attr := range cfg.Attributes() {
		assert.Equal(t, SourceDefault, attr.Source, attr.Name)
	}
	assert.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateServer(), "signing secret is required to serve")
}

func TestLoadFileThenEnvironment(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
database_url: postgres://authz:hunter2@db:5432/authz
tenant_header: X-Organization
allowed_origins:
  - https://admin.example.com
log_level: debug
store_timeout: 250ms
`)
	t.Setenv("TENANT_AUTHZ_LOG_LEVEL", "warn")
	t.Setenv("TENANT_AUTHZ_SIGNING_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "X-Organization", cfg.TenantHeader)
	assert.Equal(t, SourceFile, cfg.Source("tenant_header"))
	assert.Equal(t, []string{"https://admin.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, SourceFile, cfg.Source("store_timeout"))

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, SourceEnvironment, cfg.Source("log_level"))
	assert.Equal(t, "s3cret", cfg.SigningSecret)
	assert.Equal(t, SourceEnvironment, cfg.Source("signing_secret"))

	assert.Equal(t, SourceDefault, cfg.Source("email_claim"))
	assert.Equal(t, SourceDefault, cfg.Source("unknown"))
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoadEnvironmentLists(t *testing.T) {
	isolate(t)
	t.Setenv("TENANT_AUTHZ_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("TENANT_AUTHZ_STORE_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
}

func TestLoadErrors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		dir := isolate(t)
		writeConfig(t, dir, "tenant_header: [unterminated")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad duration in file", func(t *testing.T) {
		dir := isolate(t)
		writeConfig(t, dir, "store_timeout: soon")
		_, err := Load()
		assert.ErrorContains(t, err, "store_timeout")
	})

	t.Run("bad duration in env", func(t *testing.T) {
		isolate(t)
		t.Setenv("TENANT_AUTHZ_STORE_TIMEOUT", "forever")
		_, err := Load()
		assert.ErrorContains(t, err, "TENANT_AUTHZ_STORE_TIMEOUT")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "chatty" }, wantErr: "log_level"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "log_format"},
		{name: "negative timeout", mutate: func(c *Config) { c.StoreTimeout = -time.Second }, wantErr: "store_timeout"},
		{name: "blank tenant header", mutate: func(c *Config) { c.TenantHeader = "" }, wantErr: "tenant_header"},
		{name: "tenant header with space", mutate: func(c *Config) { c.TenantHeader = "Org Id" }, wantErr: "tenant_header"},
		{name: "blank email claim", mutate: func(c *Config) { c.EmailClaim = "" }, wantErr: "email_claim"},
		{name: "bad origin", mutate: func(c *Config) { c.AllowedOrigins = []string{"admin.example.com"} }, wantErr: "allowed_origins"},
		{name: "wildcard origin", mutate: func(c *Config) { c.AllowedOrigins = []string{"*"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFormatting(t *testing.T) {
	cfg := newDefault()
	cfg.configFilePath = "/etc/tenant-authz/tenant-authz.yml"
	cfg.DatabaseURL = "postgres://authz:hunter2@db:5432/authz"
	cfg.SigningSecret = "s3cret"

	text := cfg.FormatText()
	assert.Contains(t, text, "Config file: /etc/tenant-authz/tenant-authz.yml")
	assert.Contains(t, text, "postgres://authz:xxxxx@db:5432/authz")
	assert.Contains(t, text, "(not set)")
	assert.NotContains(t, text, "hunter2")
	assert.NotContains(t, text, "s3cret")

	out, err := cfg.FormatJSON()
	require.NoError(t, err)
	var decoded struct {
		ConfigFile string      `json:"config_file"`
		Attributes []Attribute `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, cfg.configFilePath, decoded.ConfigFile)
	assert.Len(t, decoded.Attributes, len(attributeNames()))
	assert.False(t, strings.Contains(out, "s3cret"))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "postgres://u:xxxxx@h/db", redactURL("postgres://u:p@h/db"))
	assert.Equal(t, "postgres://u@h/db", redactURL("postgres://u@h/db"))
	assert.Equal(t, "file::memory:", redactURL("file::memory:"))
	assert.Equal(t, "host=db user=u", redactURL("host=db user=u"))
}

func TestCanonicalTenantHeader(t *testing.T) {
	cfg := newDefault()
	assert.Equal(t, "Organizationid", cfg.CanonicalTenantHeader())
}

func TestGetAndReload(t *testing.T) {
	dir := isolate(t)
	resetGlobal(t)

	assert.Equal(t, "OrganizationId", Get().TenantHeader)

	writeConfig(t, dir, "tenant_header: X-Tenant\n")
	assert.Equal(t, "OrganizationId", Get().TenantHeader, "Get is cached")

	cfg, err := Reload()
	require.NoError(t, err)
	assert.Equal(t, "X-Tenant", cfg.TenantHeader)
	assert.Same(t, cfg, Get())
}

func TestWatch(t *testing.T) {
	dir := isolate(t)
	resetGlobal(t)
	writeConfig(t, dir, "log_level: info\n")
	Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, func(c *Config) { changes <- c })
	}()

	// keep writing until the watcher is registered and reports the change
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var changed *Config
	for changed == nil {
		select {
		case c := <-changes:
			if c.LogLevel == "debug" {
				changed = c
			}
		case <-ticker.C:
			writeConfig(t, dir, "log_level: debug\n")
		case <-deadline:
			t.Fatal("timed out waiting for config reload")
		}
	}

	assert.Equal(t, SourceFile, changed.Source("log_level"))
	assert.Equal(t, "debug", Get().LogLevel)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
