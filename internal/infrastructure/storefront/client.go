// Package storefront talks to the storefront REST API: it fetches order
// payloads and moves orders into the processing status once the ERP holds
// them.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

// maxResponseSize caps storefront response bodies (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client is the storefront API client.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

var _ integration.SourcePlatform = (*Client)(nil)

// NewClient creates a storefront client.
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.Named("storefront"),
	}, nil
}

// GetOrder fetches one order by its storefront id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/Orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}

	orders, err := DecodeOrders(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("storefront: order %s not found", orderID)
	}
	return &orders[0], nil
}

// MarkProcessing moves the order into the processing status.
func (c *Client) MarkProcessing(ctx context.Context, orderID string) error {
	payload, err := json.Marshal(map[string]int{"OrderStatusID": ProcessingStatusID})
	if err != nil {
		return fmt.Errorf("storefront: failed to encode status: %w", err)
	}

	if _, err := c.doRequest(ctx, http.MethodPut, "/Orders/"+url.PathEscape(orderID)+"/Status", payload); err != nil {
		return err
	}
	c.logger.Info("Order marked processing", zap.String("order_id", orderID))
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload []byte) (body []byte, err error) {
	status := 0
	ctx, span := telemetry.StartClientSpan(ctx, "storefront", method, path)
	defer func() { telemetry.EndClientSpan(span, status, err) }()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("storefront: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Token", c.config.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrSourcePlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("storefront: failed to read response: %w", err)
	}
	status = resp.StatusCode

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", integration.ErrSourcePlatformUnavailable, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
