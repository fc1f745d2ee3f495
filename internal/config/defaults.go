package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		FA: FAConfig{
			IssuerURL:  "https://tryme.fasolutions.com/auth/realms/fa/protocol/openid-connect",
			GraphQLURL: "https://tryme.fasolutions.com/graphql",
			ClientID:   "external-api",
			Timeout:    "30s",
		},
		Cache: CacheConfig{
			TTL:        "1m",
			MaxEntries: 64,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "logs/fa-report.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}
