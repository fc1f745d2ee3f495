package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Auth    AuthConfig    `toml:"auth"`
	FA      FAConfig      `toml:"fa"`
	Cache   CacheConfig   `toml:"cache"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// AuthConfig holds the HTTP basic credentials required on /report.
// Leaving both empty disables inbound authentication.
type AuthConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Enabled reports whether inbound basic auth is configured.
func (c *AuthConfig) Enabled() bool {
	return c.Username != "" || c.Password != ""
}

// FAConfig holds the upstream identity provider and GraphQL API settings.
type FAConfig struct {
	IssuerURL  string `toml:"issuer_url"`  // token endpoint is {issuer_url}/token
	GraphQLURL string `toml:"graphql_url"`
	ClientID   string `toml:"client_id"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	Timeout    string `toml:"timeout"`
}

// GetTimeout parses and returns the outbound request timeout.
func (c *FAConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// CacheConfig controls the transaction-set cache.
type CacheConfig struct {
	TTL        string `toml:"ttl"`
	MaxEntries int    `toml:"max_entries"`
}

// GetTTL parses the cache TTL. Zero disables caching.
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies FAREPORT_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("FAREPORT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FAREPORT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if v := os.Getenv("FAREPORT_AUTH_USERNAME"); v != "" {
		config.Auth.Username = v
	}
	if v := os.Getenv("FAREPORT_AUTH_PASSWORD"); v != "" {
		config.Auth.Password = v
	}
	if v := os.Getenv("FAREPORT_FA_ISSUER_URL"); v != "" {
		config.FA.IssuerURL = v
	}
	if v := os.Getenv("FAREPORT_FA_GRAPHQL_URL"); v != "" {
		config.FA.GraphQLURL = v
	}
	if v := os.Getenv("FAREPORT_FA_CLIENT_ID"); v != "" {
		config.FA.ClientID = v
	}
	if v := os.Getenv("FAREPORT_FA_USERNAME"); v != "" {
		config.FA.Username = v
	}
	if v := os.Getenv("FAREPORT_FA_PASSWORD"); v != "" {
		config.FA.Password = v
	}
	if v := os.Getenv("FAREPORT_FA_TIMEOUT"); v != "" {
		config.FA.Timeout = v
	}
	if v := os.Getenv("FAREPORT_CACHE_TTL"); v != "" {
		config.Cache.TTL = v
	}
	if level := os.Getenv("FAREPORT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if outputs := os.Getenv("FAREPORT_LOG_OUTPUTS"); outputs != "" {
		config.Logging.Outputs = strings.Split(outputs, ",")
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate returns a list of problems with mandatory settings.
// An empty result means the configuration is usable.
func (c *Config) Validate() []string {
	var issues []string
	if strings.TrimSpace(c.FA.IssuerURL) == "" {
		issues = append(issues, "fa.issuer_url is required (FAREPORT_FA_ISSUER_URL)")
	}
	if strings.TrimSpace(c.FA.GraphQLURL) == "" {
		issues = append(issues, "fa.graphql_url is required (FAREPORT_FA_GRAPHQL_URL)")
	}
	if c.FA.Username == "" {
		issues = append(issues, "fa.username is required (FAREPORT_FA_USERNAME)")
	}
	if c.FA.Password == "" {
		issues = append(issues, "fa.password is required (FAREPORT_FA_PASSWORD)")
	}
	if c.Auth.Enabled() && (c.Auth.Username == "" || c.Auth.Password == "") {
		issues = append(issues, "auth.username and auth.password must be set together")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	return issues
}
