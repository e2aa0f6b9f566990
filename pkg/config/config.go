// Package config handles application configuration.
//
// It provides:
//   - Flag parsing with CLI arguments
//   - Environment variable support (with CLI override)
//   - Configuration validation
//   - Precedence: CLI flags > environment variables > defaults
//
// Supported environment variables:
//   - CENTRAL_BASE_URL: API gateway URL
//   - CENTRAL_ACCESS_TOKEN: Bearer token for the API gateway
//   - CENTRAL_VERIFY_TLS: Verify TLS certificates (true/false)
//   - CENTRAL_TEMPLATE_GROUP: Group whose templates are listed
//   - CENTRAL_INVENTORY_PATH: YAML file listing the devices to watch
//   - CENTRAL_PORT: HTTP server port
//   - CENTRAL_SCRAPE_TIMEOUT: Timeout for a full scrape (seconds)
//   - CENTRAL_REQUEST_TIMEOUT: Timeout for a single API request (seconds)
//   - CENTRAL_BREAKER_FAILURES: Consecutive failures before the circuit opens
//   - CENTRAL_LOG_LEVEL: Logging level (debug, info, warn, error)
//   - CENTRAL_LOG_FORMAT: Logging format (json, text)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/andreweacott/central-client/pkg/central"
)

// Config holds the application configuration
type Config struct {
	// Management API connection
	BaseURL       string
	AccessToken   string
	VerifyTLS     bool
	TemplateGroup string

	// Devices to watch
	InventoryPath string

	// Server configuration
	Port int

	// Collection configuration
	ScrapeTimeout   int
	RequestTimeout  int
	BreakerFailures int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load parses environment variables and command-line flags and returns a Config
// Precedence: CLI flags > environment variables > defaults
func Load() *Config {
	return LoadWithArgs(os.Args[1:])
}

// LoadWithArgs loads configuration with explicit arguments (useful for testing)
func LoadWithArgs(args []string) *Config {
	cfg := FromEnv()

	// Create a new FlagSet for this invocation (allows multiple calls in tests)
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	RegisterFlags(fs, cfg)

	// FlagSet is configured with ContinueOnError, so parse errors are handled gracefully
	_ = fs.Parse(args)

	return cfg
}

// FromEnv returns a Config populated from environment variables and defaults
func FromEnv() *Config {
	return &Config{
		BaseURL:         os.Getenv("CENTRAL_BASE_URL"),
		AccessToken:     os.Getenv("CENTRAL_ACCESS_TOKEN"),
		VerifyTLS:       parseEnvBool(os.Getenv("CENTRAL_VERIFY_TLS"), true),
		TemplateGroup:   envOrDefault("CENTRAL_TEMPLATE_GROUP", central.DefaultTemplateGroup),
		InventoryPath:   os.Getenv("CENTRAL_INVENTORY_PATH"),
		Port:            parseEnvInt(os.Getenv("CENTRAL_PORT"), 9120),
		ScrapeTimeout:   parseEnvInt(os.Getenv("CENTRAL_SCRAPE_TIMEOUT"), 30),
		RequestTimeout:  parseEnvInt(os.Getenv("CENTRAL_REQUEST_TIMEOUT"), 10),
		BreakerFailures: parseEnvInt(os.Getenv("CENTRAL_BREAKER_FAILURES"), 5),
		LogLevel:        envOrDefault("CENTRAL_LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("CENTRAL_LOG_FORMAT", "text"),
	}
}

// RegisterFlags binds every setting to fs, using the current values of cfg as defaults
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "API gateway URL (env: CENTRAL_BASE_URL, required)")
	fs.StringVar(&cfg.AccessToken, "access-token", cfg.AccessToken, "API gateway access token (env: CENTRAL_ACCESS_TOKEN, required)")
	fs.BoolVar(&cfg.VerifyTLS, "verify-tls", cfg.VerifyTLS, "Verify TLS certificates (env: CENTRAL_VERIFY_TLS)")
	fs.StringVar(&cfg.TemplateGroup, "template-group", cfg.TemplateGroup, "Configuration group whose templates are listed (env: CENTRAL_TEMPLATE_GROUP)")
	fs.StringVar(&cfg.InventoryPath, "inventory", cfg.InventoryPath, "YAML file listing devices to watch (env: CENTRAL_INVENTORY_PATH)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server listen port (env: CENTRAL_PORT)")
	fs.IntVar(&cfg.ScrapeTimeout, "scrape-timeout", cfg.ScrapeTimeout, "Maximum time in seconds for a full scrape (env: CENTRAL_SCRAPE_TIMEOUT)")
	fs.IntVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Maximum time in seconds for one API request (env: CENTRAL_REQUEST_TIMEOUT)")
	fs.IntVar(&cfg.BreakerFailures, "breaker-failures", cfg.BreakerFailures, "Consecutive failures before the circuit opens (env: CENTRAL_BREAKER_FAILURES)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Logging verbosity: debug, info, warn, error (env: CENTRAL_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Logging format: json, text (env: CENTRAL_LOG_FORMAT)")
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// parseEnvInt parses an environment variable as an integer, returning default if invalid
func parseEnvInt(envValue string, defaultValue int) int {
	if envValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(envValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// parseEnvBool parses an environment variable as a boolean, returning default if invalid
func parseEnvBool(envValue string, defaultValue bool) bool {
	if envValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseBool(envValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// Validate checks the whole configuration, including the cloud connection
func (c *Config) Validate() error {
	if err := c.validateCloud(); err != nil {
		return err
	}
	return c.ValidateLocal()
}

func (c *Config) validateCloud() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base-url is required (use -base-url flag or CENTRAL_BASE_URL env var)")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("invalid base-url: %s (must be an absolute http(s) URL)", c.BaseURL)
	}

	if c.AccessToken == "" {
		return fmt.Errorf("access-token is required (use -access-token flag or CENTRAL_ACCESS_TOKEN env var)")
	}

	return nil
}

// ValidateLocal checks the settings that do not depend on the cloud connection.
// Callers that only talk to switches directly need nothing more.
func (c *Config) ValidateLocal() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be between 1 and 65535)", c.Port)
	}

	if c.ScrapeTimeout < 1 {
		return fmt.Errorf("invalid scrape-timeout: %d (must be at least 1 second)", c.ScrapeTimeout)
	}

	if c.RequestTimeout < 1 {
		return fmt.Errorf("invalid request-timeout: %d (must be at least 1 second)", c.RequestTimeout)
	}

	if c.BreakerFailures < 1 {
		return fmt.Errorf("invalid breaker-failures: %d (must be at least 1)", c.BreakerFailures)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log-level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid log-format: %s (must be one of: json, text)", c.LogFormat)
	}

	return nil
}

// ClientConfig returns the immutable settings handed to the API client
func (c *Config) ClientConfig() central.ClientConfig {
	return central.ClientConfig{
		BaseURL:       c.BaseURL,
		AccessToken:   c.AccessToken,
		VerifyTLS:     c.VerifyTLS,
		TemplateGroup: c.TemplateGroup,
	}
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf("Config{BaseURL: %s, VerifyTLS: %t, TemplateGroup: %s, Inventory: %s, Port: %d, ScrapeTimeout: %ds, RequestTimeout: %ds, LogLevel: %s}",
		c.BaseURL, c.VerifyTLS, c.TemplateGroup, c.InventoryPath, c.Port, c.ScrapeTimeout, c.RequestTimeout, c.LogLevel)
}
