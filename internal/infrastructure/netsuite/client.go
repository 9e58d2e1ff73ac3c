package netsuite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

// maxResponseSize is the maximum allowed response size from the ERP (10MB)
const maxResponseSize = 10 * 1024 * 1024

const suiteQLPath = "/services/rest/query/v1/suiteql"

// ErrRecordNotFound indicates the ERP returned 404 for a record
var ErrRecordNotFound = errors.New("netsuite: record not found")

// ErrDuplicateRecord indicates the ERP rejected a create because the record already exists
var ErrDuplicateRecord = errors.New("netsuite: duplicate record")

// duplicateErrorCodes are the o:errorCode values that signal a unique-key conflict
var duplicateErrorCodes = map[string]bool{
	"DUP_RCRD":             true,
	"DUP_ENTITY":           true,
	"DUPLICATE_KEY":        true,
	"UNIQUE_KEY_VIOLATION": true,
	"DUP_EXTERNAL_ID":      true,
}

// Response is a raw ERP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Querier runs SuiteQL queries
type Querier interface {
	RunQuery(ctx context.Context, query string) ([]Row, error)
}

// Executor performs authenticated REST calls
type Executor interface {
	Execute(ctx context.Context, method, path string, query url.Values, body any) (*Response, error)
}

// Client is the authenticated transport for the ERP REST and SuiteQL APIs.
// It does not retry; retry decisions belong to the caller.
type Client struct {
	config     *Config
	signer     *Signer
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithSigner replaces the default signer
func WithSigner(s *Signer) ClientOption {
	return func(c *Client) {
		c.signer = s
	}
}

// WithLimiter replaces the rate limiter derived from the config
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// NewClient creates a new ERP client. The config is validated and defaulted.
func NewClient(config *Config, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		config: config,
		signer: NewSigner(config),
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		logger:  logger.Named("netsuite"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the validated client configuration
func (c *Client) Config() *Config {
	return c.config
}

// Execute sends a signed request. body, when non-nil, is JSON encoded.
// Non-2xx responses are returned as classified errors.
func (c *Client) Execute(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	return c.do(ctx, method, path, query, body, nil)
}

// RunQuery executes a SuiteQL query and follows hasMore until every page is read
func (c *Client) RunQuery(ctx context.Context, query string) ([]Row, error) {
	headers := http.Header{}
	headers.Set("Prefer", "transient")

	var rows []Row
	offset, pages := 0, 0
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.config.QueryPageSize))
		params.Set("offset", strconv.Itoa(offset))

		resp, err := c.do(ctx, http.MethodPost, suiteQLPath, params, suiteQLRequest{Q: query}, headers)
		if err != nil {
			return nil, err
		}

		var page suiteQLResponse
		dec := json.NewDecoder(bytes.NewReader(resp.Body))
		dec.UseNumber()
		if err := dec.Decode(&page); err != nil {
			return nil, fmt.Errorf("%w: malformed SuiteQL response: %v", integration.ErrTransport, err)
		}
		rows = append(rows, page.Items...)
		pages++

		if !page.HasMore || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	c.logger.Debug("SuiteQL query completed",
		zap.Int("rows", len(rows)),
		zap.Int("pages", pages),
	)
	return rows, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, headers http.Header) (resp *Response, err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "netsuite", method, path)
	defer func() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		telemetry.EndClientSpan(span, status, err)
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", integration.ErrTransport, err)
	}

	endpoint := c.config.BaseURL + path
	auth, err := c.signer.Sign(method, endpoint, query)
	if err != nil {
		return nil, fmt.Errorf("netsuite: failed to sign request: %w", err)
	}

	target := endpoint
	if len(query) > 0 {
		target += "?" + encodeQuery(query)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("netsuite: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("netsuite: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrTransport, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrTransport, err)
	}

	c.logger.Debug("ERP request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}, nil
	}
	return nil, classifyError(httpResp.StatusCode, respBody)
}

// classifyError maps a non-2xx response to the integration error taxonomy
func classifyError(status int, body []byte) error {
	var parsed errorResponse
	_ = json.Unmarshal(body, &parsed)

	detail := parsed.Title
	code := ""
	var paths []string
	for i, d := range parsed.ErrorDetails {
		if i == 0 {
			detail = d.Detail
			code = d.ErrorCode
		}
		if d.ErrorPath != "" {
			paths = append(paths, d.ErrorPath)
		}
	}
	if detail == "" {
		detail = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", integration.ErrAuthentication, status, detail)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d: %s", integration.ErrRateLimited, status, detail)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrRecordNotFound, detail)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", integration.ErrTransport, status, detail)
	case isDuplicate(parsed.ErrorDetails):
		return fmt.Errorf("%w: %s (%s)", ErrDuplicateRecord, detail, code)
	default:
		return &integration.ValidationError{Message: detail, Fields: paths, ERPCode: code}
	}
}

func isDuplicate(details []ErrorDetail) bool {
	for _, d := range details {
		if duplicateErrorCodes[strings.ToUpper(d.ErrorCode)] {
			return true
		}
		msg := strings.ToLower(d.Detail)
		if strings.Contains(msg, "already exists") && strings.Contains(msg, "external id") {
			return true
		}
	}
	return false
}

// encodeQuery encodes query parameters with RFC 3986 escaping so the wire
// query matches the signed parameters byte for byte.
func encodeQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(query))
	for _, k := range keys {
		for _, v := range query[k] {
			parts = append(parts, PercentEncode(k)+"="+PercentEncode(v))
		}
	}
	return strings.Join(parts, "&")
}

// recordIDFromLocation extracts the internal id from a Location header such as
// ".../services/rest/record/v1/salesOrder/1234"
func recordIDFromLocation(location string) string {
	location = strings.TrimRight(location, "/")
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return location[i+1:]
	}
	return location
}

var (
	_ Querier  = (*Client)(nil)
	_ Executor = (*Client)(nil)
)
