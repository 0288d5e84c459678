// Package xeroclient reads invoices from the Xero accounting API.
package xeroclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the Xero accounting API root.
	DefaultBaseURL = "https://api.xero.com/api.xro/2.0"
	// PageSize is the number of invoices Xero returns per page.
	PageSize = 100
)

// ErrRateLimited is returned when Xero answers 429. The caller decides
// when to try again; the next poll tick is usually soon enough.
var ErrRateLimited = errors.New("xero rate limit exceeded")

// Client communicates with the Xero Invoices endpoint.
type Client struct {
	baseURL     string
	tenantID    string
	accessToken string
	httpClient  *http.Client
}

// New constructs a new Client.
func New(baseURL, tenantID, accessToken string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		tenantID:    tenantID,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type invoicesResponse struct {
	Invoices []json.RawMessage `json:"Invoices"`
}

type errorResponse struct {
	Message string `json:"Message"`
	Detail  string `json:"Detail"`
}

// modifiedSinceLayout is the timestamp form Xero accepts in If-Modified-Since.
const modifiedSinceLayout = "2006-01-02T15:04:05"

// Invoices fetches one page (1-based) of invoices matching where. A non-zero
// modifiedSince is sent as If-Modified-Since, which Xero applies to
// UpdatedDateUTC, so status changes to invoices issued long ago are still
// returned. Each invoice is returned as the raw JSON Xero sent.
func (c *Client) Invoices(ctx context.Context, where string, modifiedSince time.Time, page int) ([]json.RawMessage, error) {
	if c == nil {
		return nil, fmt.Errorf("xero client not configured")
	}

	query := url.Values{}
	if where != "" {
		query.Set("where", where)
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(PageSize))

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/Invoices?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if c.tenantID != "" {
		request.Header.Set("Xero-tenant-id", c.tenantID)
	}
	if !modifiedSince.IsZero() {
		request.Header.Set("If-Modified-Since", modifiedSince.UTC().Format(modifiedSinceLayout))
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("xero response status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		var errBody errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, fmt.Errorf("xero response status %d: %s", resp.StatusCode, errBody.Message)
	}

	var result invoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Invoices, nil
}
