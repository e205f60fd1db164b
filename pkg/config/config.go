package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/keyvault"
	ConfigFileName    = "keyvault.yml"
)

// Credential store backends.
const (
	CredentialStoreSSM      = "ssm"
	CredentialStoreDatabase = "database"
	CredentialStoreMemory   = "memory"
)

// ValidCredentialStores is the list of valid credential_store values
var ValidCredentialStores = []string{CredentialStoreSSM, CredentialStoreDatabase, CredentialStoreMemory}

// Environment-only settings. They are never read from the config file and
// never shown by Attributes.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvSessionSecret = "KEYVAULT_SESSION_SECRET"
	EnvDataKey       = "KEYVAULT_DATA_KEY"
)

// KeyvaultConfig holds all keyvault configuration settings
type KeyvaultConfig struct {
	// CredentialStore selects where authoritative secret values live
	CredentialStore string `yaml:"credential_store" json:"credential_store"`

	// SSMNamespace is the first segment of every credential path
	SSMNamespace string `yaml:"ssm_namespace" json:"ssm_namespace"`

	AWSRegion      string `yaml:"aws_region" json:"aws_region"`
	AWSProfile     string `yaml:"aws_profile" json:"aws_profile"`
	AWSEndpointURL string `yaml:"aws_endpoint_url" json:"aws_endpoint_url"`
	AWSKMSKeyID    string `yaml:"aws_kms_key_id" json:"aws_kms_key_id"`

	// SessionTokenTTL is the session lifetime in seconds
	SessionTokenTTL int `yaml:"session_token_ttl" json:"session_token_ttl"`

	// SessionCookieSecure sets the Secure flag on the session cookie
	SessionCookieSecure bool `yaml:"session_cookie_secure" json:"session_cookie_secure"`

	// ActivityLogLimitMax caps the limit query parameter of list endpoints
	ActivityLogLimitMax int `yaml:"activity_log_limit_max" json:"activity_log_limit_max"`

	// TrustedProxies is a list of CIDR ranges whose X-Forwarded-For is honored
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	MetricsEnabled     bool `yaml:"metrics_enabled" json:"metrics_enabled"`
	AuditSyslogEnabled bool `yaml:"audit_syslog_enabled" json:"audit_syslog_enabled"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// fileConfig mirrors KeyvaultConfig with pointer booleans so that an explicit
// false in the file can be told apart from an absent key.
type fileConfig struct {
	CredentialStore     string   `yaml:"credential_store"`
	SSMNamespace        string   `yaml:"ssm_namespace"`
	AWSRegion           string   `yaml:"aws_region"`
	AWSProfile          string   `yaml:"aws_profile"`
	AWSEndpointURL      string   `yaml:"aws_endpoint_url"`
	AWSKMSKeyID         string   `yaml:"aws_kms_key_id"`
	SessionTokenTTL     int      `yaml:"session_token_ttl"`
	SessionCookieSecure *bool    `yaml:"session_cookie_secure"`
	ActivityLogLimitMax int      `yaml:"activity_log_limit_max"`
	TrustedProxies      []string `yaml:"trusted_proxies"`
	MetricsEnabled      *bool    `yaml:"metrics_enabled"`
	AuditSyslogEnabled  *bool    `yaml:"audit_syslog_enabled"`
	LogLevel            string   `yaml:"log_level"`
	LogFormat           string   `yaml:"log_format"`
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *KeyvaultConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *KeyvaultConfig {
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
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// newDefault returns a config with default values
func newDefault() *KeyvaultConfig {
	return &KeyvaultConfig{
		CredentialStore:     CredentialStoreSSM,
		SSMNamespace:        "keyvault",
		SessionTokenTTL:     8 * 60 * 60,
		SessionCookieSecure: true,
		ActivityLogLimitMax: 1000,
		TrustedProxies:      []string{},
		MetricsEnabled:      true,
		AuditSyslogEnabled:  false,
		LogLevel:            "info",
		LogFormat:           "text",
		sources:             make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*KeyvaultConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("KEYVAULT_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&file)
	}

	if err := config.applyEnvConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func attributeNames() []string {
	return []string{
		"credential_store", "ssm_namespace",
		"aws_region", "aws_profile", "aws_endpoint_url", "aws_kms_key_id",
		"session_token_ttl", "session_cookie_secure", "activity_log_limit_max",
		"trusted_proxies", "metrics_enabled", "audit_syslog_enabled",
		"log_level", "log_format",
	}
}

func (c *KeyvaultConfig) applyFileConfig(file *fileConfig) {
	setString := func(name string, dst *string, val string) {
		if val != "" {
			*dst = val
			c.sources[name] = "file"
		}
	}
	setInt := func(name string, dst *int, val int) {
		if val != 0 {
			*dst = val
			c.sources[name] = "file"
		}
	}
	setBool := func(name string, dst *bool, val *bool) {
		if val != nil {
			*dst = *val
			c.sources[name] = "file"
		}
	}

	setString("credential_store", &c.CredentialStore, file.CredentialStore)
	setString("ssm_namespace", &c.SSMNamespace, file.SSMNamespace)
	setString("aws_region", &c.AWSRegion, file.AWSRegion)
	setString("aws_profile", &c.AWSProfile, file.AWSProfile)
	setString("aws_endpoint_url", &c.AWSEndpointURL, file.AWSEndpointURL)
	setString("aws_kms_key_id", &c.AWSKMSKeyID, file.AWSKMSKeyID)
	setInt("session_token_ttl", &c.SessionTokenTTL, file.SessionTokenTTL)
	setBool("session_cookie_secure", &c.SessionCookieSecure, file.SessionCookieSecure)
	setInt("activity_log_limit_max", &c.ActivityLogLimitMax, file.ActivityLogLimitMax)
	if len(file.TrustedProxies) > 0 {
		c.TrustedProxies = file.TrustedProxies
		c.sources["trusted_proxies"] = "file"
	}
	setBool("metrics_enabled", &c.MetricsEnabled, file.MetricsEnabled)
	setBool("audit_syslog_enabled", &c.AuditSyslogEnabled, file.AuditSyslogEnabled)
	setString("log_level", &c.LogLevel, file.LogLevel)
	setString("log_format", &c.LogFormat, file.LogFormat)
}

func (c *KeyvaultConfig) applyEnvConfig() error {
	for _, name := range []string{"credential_store", "ssm_namespace", "aws_region", "aws_profile", "aws_endpoint_url", "aws_kms_key_id", "log_level", "log_format"} {
		if val := os.Getenv(envName(name)); val != "" {
			*c.stringField(name) = val
			c.sources[name] = "environment"
		}
	}
	for _, name := range []string{"session_token_ttl", "activity_log_limit_max"} {
		if val := os.Getenv(envName(name)); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", envName(name), err)
			}
			*c.intField(name) = i
			c.sources[name] = "environment"
		}
	}
	for _, name := range []string{"session_cookie_secure", "metrics_enabled", "audit_syslog_enabled"} {
		if val := os.Getenv(envName(name)); val != "" {
			*c.boolField(name) = val == "true" || val == "1"
			c.sources[name] = "environment"
		}
	}
	if val := os.Getenv(envName("trusted_proxies")); val != "" {
		c.TrustedProxies = splitAndTrim(val)
		c.sources["trusted_proxies"] = "environment"
	}
	return nil
}

func envName(attribute string) string {
	return "KEYVAULT_" + strings.ToUpper(attribute)
}

func (c *KeyvaultConfig) stringField(name string) *string {
	switch name {
	case "credential_store":
		return &c.CredentialStore
	case "ssm_namespace":
		return &c.SSMNamespace
	case "aws_region":
		return &c.AWSRegion
	case "aws_profile":
		return &c.AWSProfile
	case "aws_endpoint_url":
		return &c.AWSEndpointURL
	case "aws_kms_key_id":
		return &c.AWSKMSKeyID
	case "log_level":
		return &c.LogLevel
	case "log_format":
		return &c.LogFormat
	}
	panic("config: unknown string attribute " + name)
}

func (c *KeyvaultConfig) intField(name string) *int {
	switch name {
	case "session_token_ttl":
		return &c.SessionTokenTTL
	case "activity_log_limit_max":
		return &c.ActivityLogLimitMax
	}
	panic("config: unknown int attribute " + name)
}

func (c *KeyvaultConfig) boolField(name string) *bool {
	switch name {
	case "session_cookie_secure":
		return &c.SessionCookieSecure
	case "metrics_enabled":
		return &c.MetricsEnabled
	case "audit_syslog_enabled":
		return &c.AuditSyslogEnabled
	}
	panic("config: unknown bool attribute " + name)
}

// ConfigFilePath returns the path to the config file
func (c *KeyvaultConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *KeyvaultConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// SessionTTL returns the session token TTL as a duration
func (c *KeyvaultConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTokenTTL) * time.Second
}

// ClampLimit applies the activity_log_limit_max cap. A non-positive requested
// limit means the maximum.
func (c *KeyvaultConfig) ClampLimit(requested int) int {
	if requested <= 0 || requested > c.ActivityLogLimitMax {
		return c.ActivityLogLimitMax
	}
	return requested
}

// IsTrustedProxy checks if an IP is from a trusted proxy
func (c *KeyvaultConfig) IsTrustedProxy(ip string) bool {
	if len(c.TrustedProxies) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Try as plain IP
			if other := net.ParseIP(cidr); other != nil && other.Equal(parsedIP) {
				return true
			}
			continue
		}
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *KeyvaultConfig) Validate() error {
	valid := false
	for _, s := range ValidCredentialStores {
		if c.CredentialStore == s {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid credential_store: %q (expected one of %s)", c.CredentialStore, strings.Join(ValidCredentialStores, ", "))
	}

	if strings.TrimSpace(c.SSMNamespace) == "" || strings.Contains(c.SSMNamespace, "/") {
		return fmt.Errorf("invalid ssm_namespace: %q", c.SSMNamespace)
	}
	if c.SessionTokenTTL <= 0 {
		return fmt.Errorf("invalid session_token_ttl: %d", c.SessionTokenTTL)
	}
	if c.ActivityLogLimitMax <= 0 {
		return fmt.Errorf("invalid activity_log_limit_max: %d", c.ActivityLogLimitMax)
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid trusted_proxies value: %s", cidr)
			}
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %q", c.LogFormat)
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *KeyvaultConfig) Attributes() []Attribute {
	attr := func(name, value string) Attribute {
		return Attribute{Name: name, Value: value, Source: c.Source(name)}
	}
	return []Attribute{
		attr("credential_store", c.CredentialStore),
		attr("ssm_namespace", c.SSMNamespace),
		attr("aws_region", c.AWSRegion),
		attr("aws_profile", c.AWSProfile),
		attr("aws_endpoint_url", c.AWSEndpointURL),
		attr("aws_kms_key_id", c.AWSKMSKeyID),
		attr("session_token_ttl", strconv.Itoa(c.SessionTokenTTL)),
		attr("session_cookie_secure", strconv.FormatBool(c.SessionCookieSecure)),
		attr("activity_log_limit_max", strconv.Itoa(c.ActivityLogLimitMax)),
		attr("trusted_proxies", strings.Join(c.TrustedProxies, ",")),
		attr("metrics_enabled", strconv.FormatBool(c.MetricsEnabled)),
		attr("audit_syslog_enabled", strconv.FormatBool(c.AuditSyslogEnabled)),
		attr("log_level", c.LogLevel),
		attr("log_format", c.LogFormat),
	}
}

// FormatText returns a text representation of the configuration
func (c *KeyvaultConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-30s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-30s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-30s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *KeyvaultConfig) FormatJSON() (string, error) {
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

// DatabaseURL returns the database connection string.
func DatabaseURL() string {
	return os.Getenv(EnvDatabaseURL)
}

// SessionSecret returns the HMAC key for session tokens.
func SessionSecret() []byte {
	return []byte(os.Getenv(EnvSessionSecret))
}

// DataKey returns the base64 data key for the database credential store.
func DataKey() string {
	return os.Getenv(EnvDataKey)
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
