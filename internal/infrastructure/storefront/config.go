package storefront

import (
	"errors"
	"strings"
	"time"
)

// ProcessingStatusID is the storefront order status for "Processing".
const ProcessingStatusID = 2

// Config holds the storefront REST API settings
type Config struct {
	// BaseURL is the API root, e.g. https://apirest.example.com/3dCartWebAPI/v1
	BaseURL string
	// APIKey is sent in the Token header
	APIKey string
	// Timeout bounds each HTTP request
	Timeout time.Duration
}

// Errors for storefront configuration
var (
	ErrConfigMissingBaseURL = errors.New("storefront: base url is required")
	ErrConfigMissingAPIKey  = errors.New("storefront: api key is required")
)

// Validate checks required fields and fills defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.APIKey == "" {
		return ErrConfigMissingAPIKey
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return nil
}
