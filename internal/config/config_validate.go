package config

import (
	"fmt"
	"strings"

	"github.com/christiancopeland/pulsewatch/internal/validation"
)

// Validate checks that required configuration is present and valid. It
// first runs the struct-tag pass (required/range/oneof/uuid shape checks
// declared on Config's fields, covering Database.Path, Server.Port,
// Server.OwnerID, Logging.Level/Format, and the Linker/Embedder/Queue/Trend
// tuning sections) through validation.ValidateStruct, then the hand-rolled
// checks below for rules a struct tag can't express: fields required only
// conditionally on AdapterConfig.Enabled/Type, duplicate adapter names, and
// endpoint URL reachability.
func (c *Config) Validate() error {
	if ve := validation.ValidateStruct(c); ve != nil {
		return fmt.Errorf("configuration validation failed: %w", ve)
	}
	return c.validateAdapters()
}

// validAdapterTypes enumerates the collector constructors an adapter entry
// may select.
var validAdapterTypes = map[string]bool{
	"rss":       true,
	"events":    true,
	"sanctions": true,
	"filings":   true,
	"forum":     true,
}

func (c *Config) validateAdapters() error {
	seen := make(map[string]bool, len(c.Adapters))
	for _, a := range c.Adapters {
		if !a.Enabled {
			continue
		}
		if a.Name == "" {
			return fmt.Errorf("adapters: name is required for every entry")
		}
		if seen[a.Name] {
			return fmt.Errorf("adapters: duplicate adapter name %q", a.Name)
		}
		seen[a.Name] = true

		if !validAdapterTypes[a.Type] {
			return fmt.Errorf("adapters[%s]: type must be one of rss, events, sanctions, filings, forum, got %q", a.Name, a.Type)
		}
		if a.Interval <= 0 {
			return fmt.Errorf("adapters[%s]: interval must be positive", a.Name)
		}

		if err := c.validateAdapterEndpoint(a); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateAdapterEndpoint(a AdapterConfig) error {
	switch a.Type {
	case "rss":
		if a.FeedURL == "" {
			return fmt.Errorf("adapters[%s]: feed_url is required for type rss", a.Name)
		}
		return validateHTTPURL(a.FeedURL, fmt.Sprintf("adapters[%s].feed_url", a.Name))
	case "events":
		if a.Template == "" {
			return fmt.Errorf("adapters[%s]: template is required for type events", a.Name)
		}
		fallthrough
	default:
		if a.BaseURL == "" {
			return fmt.Errorf("adapters[%s]: base_url is required for type %s", a.Name, a.Type)
		}
		return validateHTTPURL(a.BaseURL, fmt.Sprintf("adapters[%s].base_url", a.Name))
	}
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}
