package netsuite

import (
	"errors"
	"fmt"
	"strings"
)

// SignatureMethod is the OAuth 1.0 signature algorithm
type SignatureMethod string

const (
	// SignatureHMACSHA1 signs with HMAC-SHA1
	SignatureHMACSHA1 SignatureMethod = "HMAC-SHA1"
	// SignatureHMACSHA256 signs with HMAC-SHA256
	SignatureHMACSHA256 SignatureMethod = "HMAC-SHA256"
)

// IsValid returns true if the signature method is supported
func (m SignatureMethod) IsValid() bool {
	return m == SignatureHMACSHA1 || m == SignatureHMACSHA256
}

// String returns the string representation of SignatureMethod
func (m SignatureMethod) String() string {
	return string(m)
}

// Config holds configuration for the ERP REST and SuiteQL APIs
type Config struct {
	// AccountID is the ERP account id, e.g. "1234567_SB1"; it is also the OAuth realm
	AccountID string
	// ConsumerKey and ConsumerSecret identify the integration record
	ConsumerKey    string
	ConsumerSecret string
	// TokenID and TokenSecret identify the access token
	TokenID     string
	TokenSecret string
	// SignatureMethod selects HMAC-SHA1 or HMAC-SHA256
	SignatureMethod SignatureMethod
	// BaseURL overrides the URL derived from AccountID
	BaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RequestsPerSecond and Burst throttle outbound calls
	RequestsPerSecond float64
	Burst             int
	// QueryPageSize is the SuiteQL page size (max 1000)
	QueryPageSize int
	// StatusChunkSize bounds the number of external ids per sync-status query
	StatusChunkSize int
	// SubsidiaryID is set on created customers when non-empty
	SubsidiaryID string
	// TaxTotalField and DiscountTotalField are custom body fields that receive
	// folded tax and discount amounts
	TaxTotalField      string
	DiscountTotalField string
}

const (
	defaultTimeoutSeconds  = 30
	defaultRequestsPerSec  = 5
	defaultBurst           = 5
	defaultQueryPageSize   = 1000
	defaultStatusChunkSize = 500
	maxQueryPageSize       = 1000
)

// Errors for ERP configuration
var (
	ErrConfigMissingAccountID      = errors.New("netsuite: account id is required")
	ErrConfigMissingConsumerKey    = errors.New("netsuite: consumer key is required")
	ErrConfigMissingConsumerSecret = errors.New("netsuite: consumer secret is required")
	ErrConfigMissingTokenID        = errors.New("netsuite: token id is required")
	ErrConfigMissingTokenSecret    = errors.New("netsuite: token secret is required")
	ErrConfigInvalidSignature      = errors.New("netsuite: unsupported signature method")
)

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.AccountID == "" {
		return ErrConfigMissingAccountID
	}
	if c.ConsumerKey == "" {
		return ErrConfigMissingConsumerKey
	}
	if c.ConsumerSecret == "" {
		return ErrConfigMissingConsumerSecret
	}
	if c.TokenID == "" {
		return ErrConfigMissingTokenID
	}
	if c.TokenSecret == "" {
		return ErrConfigMissingTokenSecret
	}
	if c.SignatureMethod == "" {
		c.SignatureMethod = SignatureHMACSHA256
	}
	if !c.SignatureMethod.IsValid() {
		return fmt.Errorf("%w: %s", ErrConfigInvalidSignature, c.SignatureMethod)
	}
	if c.BaseURL == "" {
		c.BaseURL = BaseURLForAccount(c.AccountID)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultRequestsPerSec
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	if c.QueryPageSize <= 0 || c.QueryPageSize > maxQueryPageSize {
		c.QueryPageSize = defaultQueryPageSize
	}
	if c.StatusChunkSize <= 0 {
		c.StatusChunkSize = defaultStatusChunkSize
	}
	return nil
}

// Realm returns the OAuth realm, which is the upper-case account id
func (c *Config) Realm() string {
	return strings.ToUpper(c.AccountID)
}

// BaseURLForAccount derives the REST host for an account id.
// "1234567_SB1" becomes "https://1234567-sb1.suitetalk.api.netsuite.com".
func BaseURLForAccount(accountID string) string {
	host := strings.ReplaceAll(strings.ToLower(accountID), "_", "-")
	return "https://" + host + ".suitetalk.api.netsuite.com"
}
