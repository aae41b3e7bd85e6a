package config

import (
	"encoding/json"
	"fmt"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/tenant-authz/pkg/identity"
)

const (
	DefaultConfigPath = "/etc/tenant-authz"
	ConfigFileName    = "tenant-authz.yml"
)

// Defaults for the request contract.
const (
	DefaultTenantHeader    = "OrganizationId"
	DefaultGlobalAdminRole = "GlobalAdmin"
	DefaultStoreTimeout    = 5 * time.Second
)

// Source values reported by Source.
const (
	SourceDefault     = "default"
	SourceFile        = "file"
	SourceEnvironment = "environment"
)

// Config holds all tenant-authz settings
type Config struct {
	// DatabaseURL is the membership store connection string
	DatabaseURL string `yaml:"database_url" json:"database_url"`

	// SigningSecret verifies HS256 bearer tokens
	SigningSecret string `yaml:"signing_secret" json:"-"`

	// TenantHeader carries the organization id on admin requests
	TenantHeader string `yaml:"tenant_header" json:"tenant_header"`

	// EmailClaim is the claim type holding the caller's email
	EmailClaim string `yaml:"email_claim" json:"email_claim"`

	// RoleClaim is the claim type holding the caller's roles
	RoleClaim string `yaml:"role_claim" json:"role_claim"`

	// GlobalAdminRole may provision groups in any organization
	GlobalAdminRole string `yaml:"global_admin_role" json:"global_admin_role"`

	// AllowedOrigins lists CORS origins; empty disables CORS headers
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	LogFile   string `yaml:"log_file" json:"log_file"`

	// StoreTimeout bounds each membership store session
	StoreTimeout time.Duration `yaml:"-" json:"store_timeout"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// fileConfig mirrors the yaml layout; durations are strings there.
type fileConfig struct {
	Config       `yaml:",inline"`
	StoreTimeout string `yaml:"store_timeout"`
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			log.WithError(err).Warn("using default configuration")
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return cfg, nil
}

// newDefault returns a config with default values
func newDefault() *Config {
	c := &Config{
		TenantHeader:    DefaultTenantHeader,
		EmailClaim:      identity.ClaimEmail,
		RoleClaim:       identity.ClaimRole,
		GlobalAdminRole: DefaultGlobalAdminRole,
		AllowedOrigins:  []string{},
		LogLevel:        "info",
		LogFormat:       "text",
		StoreTimeout:    DefaultStoreTimeout,
		sources:         make(map[string]string),
	}
	for _, name := range attributeNames() {
		c.sources[name] = SourceDefault
	}
	return c
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*Config, error) {
	config := newDefault()

	configPath := os.Getenv("TENANT_AUTHZ_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		if err := config.applyFileConfig(&file); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", config.configFilePath, err)
		}
	}

	if err := config.applyEnvConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func attributeNames() []string {
	return []string{
		"database_url", "signing_secret", "tenant_header", "email_claim",
		"role_claim", "global_admin_role", "allowed_origins",
		"log_level", "log_format", "log_file", "store_timeout",
	}
}

func (c *Config) applyFileConfig(file *fileConfig) error {
	set := func(name string, dst *string, val string) {
		if val != "" {
			*dst = val
			c.sources[name] = SourceFile
		}
	}
	set("database_url", &c.DatabaseURL, file.DatabaseURL)
	set("signing_secret", &c.SigningSecret, file.SigningSecret)
	set("tenant_header", &c.TenantHeader, file.TenantHeader)
	set("email_claim", &c.EmailClaim, file.EmailClaim)
	set("role_claim", &c.RoleClaim, file.RoleClaim)
	set("global_admin_role", &c.GlobalAdminRole, file.GlobalAdminRole)
	set("log_level", &c.LogLevel, file.LogLevel)
	set("log_format", &c.LogFormat, file.LogFormat)
	set("log_file", &c.LogFile, file.LogFile)

	if len(file.AllowedOrigins) > 0 {
		c.AllowedOrigins = file.AllowedOrigins
		c.sources["allowed_origins"] = SourceFile
	}
	if file.StoreTimeout != "" {
		d, err := time.ParseDuration(file.StoreTimeout)
		if err != nil {
			return fmt.Errorf("store_timeout: %w", err)
		}
		c.StoreTimeout = d
		c.sources["store_timeout"] = SourceFile
	}
	return nil
}

func (c *Config) applyEnvConfig() error {
	set := func(name, env string, dst *string) {
		if val := os.Getenv(env); val != "" {
			*dst = val
			c.sources[name] = SourceEnvironment
		}
	}
	set("database_url", "DATABASE_URL", &c.DatabaseURL)
	set("signing_secret", "TENANT_AUTHZ_SIGNING_SECRET", &c.SigningSecret)
	set("tenant_header", "TENANT_AUTHZ_TENANT_HEADER", &c.TenantHeader)
	set("email_claim", "TENANT_AUTHZ_EMAIL_CLAIM", &c.EmailClaim)
	set("role_claim", "TENANT_AUTHZ_ROLE_CLAIM", &c.RoleClaim)
	set("global_admin_role", "TENANT_AUTHZ_GLOBAL_ADMIN_ROLE", &c.GlobalAdminRole)
	set("log_level", "TENANT_AUTHZ_LOG_LEVEL", &c.LogLevel)
	set("log_format", "TENANT_AUTHZ_LOG_FORMAT", &c.LogFormat)
	set("log_file", "TENANT_AUTHZ_LOG_FILE", &c.LogFile)

	if val := os.Getenv("TENANT_AUTHZ_ALLOWED_ORIGINS"); val != "" {
		c.AllowedOrigins = splitAndTrim(val)
		c.sources["allowed_origins"] = SourceEnvironment
	}
	if val := os.Getenv("TENANT_AUTHZ_STORE_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("TENANT_AUTHZ_STORE_TIMEOUT: %w", err)
		}
		c.StoreTimeout = d
		c.sources["store_timeout"] = SourceEnvironment
	}
	return nil
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return SourceDefault
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return SourceDefault
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: must be text or json", c.LogFormat)
	}
	if c.StoreTimeout < 0 {
		return fmt.Errorf("invalid store_timeout %s: must not be negative", c.StoreTimeout)
	}
	if c.TenantHeader == "" || strings.ContainsAny(c.TenantHeader, " :\t") {
		return fmt.Errorf("invalid tenant_header %q", c.TenantHeader)
	}
	if c.EmailClaim == "" {
		return fmt.Errorf("email_claim must not be empty")
	}
	for _, origin := range c.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("invalid allowed_origins value: %s", origin)
		}
	}
	return nil
}

// ValidateServer additionally requires what the HTTP server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.SigningSecret == "" {
		return fmt.Errorf("signing_secret is required (TENANT_AUTHZ_SIGNING_SECRET)")
	}
	return nil
}

// CanonicalTenantHeader returns the tenant header in canonical MIME form.
func (c *Config) CanonicalTenantHeader() string {
	return textproto.CanonicalMIMEHeaderKey(c.TenantHeader)
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	secret := ""
	if c.SigningSecret != "" {
		secret = "********"
	}
	return []Attribute{
		{Name: "database_url", Value: redactURL(c.DatabaseURL), Source: c.Source("database_url")},
		{Name: "signing_secret", Value: secret, Source: c.Source("signing_secret")},
		{Name: "tenant_header", Value: c.TenantHeader, Source: c.Source("tenant_header")},
		{Name: "email_claim", Value: c.EmailClaim, Source: c.Source("email_claim")},
		{Name: "role_claim", Value: c.RoleClaim, Source: c.Source("role_claim")},
		{Name: "global_admin_role", Value: c.GlobalAdminRole, Source: c.Source("global_admin_role")},
		{Name: "allowed_origins", Value: strings.Join(c.AllowedOrigins, ","), Source: c.Source("allowed_origins")},
		{Name: "log_level", Value: c.LogLevel, Source: c.Source("log_level")},
		{Name: "log_format", Value: c.LogFormat, Source: c.Source("log_format")},
		{Name: "log_file", Value: c.LogFile, Source: c.Source("log_file")},
		{Name: "store_timeout", Value: c.StoreTimeout.String(), Source: c.Source("store_timeout")},
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-20s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-20s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-20s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// redactURL hides the password of a URL-style connection string.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}
	user, _, hasPassword := strings.Cut(userinfo, ":")
	if !hasPassword {
		return raw
	}
	return scheme + "://" + user + ":xxxxx@" + host
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
