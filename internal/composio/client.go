// Package composio is a minimal client for the Composio tool-execution
// API: executing toolkit tools on behalf of a user, listing connected
// accounts, and initiating new connections.
//
// The client never interprets tool payloads; callers receive the decoded
// response data and extract what they need (see extract.go for the
// ordered multi-key helpers, since the API returns several shapes for
// the same field depending on toolkit and version).
package composio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the hosted Composio backend.
	DefaultBaseURL = "https://backend.composio.dev"

	// DefaultUserID is used when no user id is configured.
	DefaultUserID = "default"

	defaultTimeout    = 30 * time.Second
	maxRetries        = 3
	initialRetryDelay = 500 * time.Millisecond
)

// ErrNoAPIKey is returned by every remote call when the client was built
// without an API key. Callers map it to their configuration error.
var ErrNoAPIKey = errors.New("composio API key is not configured")

// ToolError is a tool execution that reached the API but was rejected
// (successful=false). The message is the remote failure text; callers
// classify conditions like "already exists" or "not found" from it.
type ToolError struct {
	Slug    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Slug, e.Message)
}

// Config configures a Client.
type Config struct {
	// APIKey authenticates every request (x-api-key header).
	APIKey string

	// UserID is the entity the tools act on behalf of. Default "default".
	UserID string

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string

	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client

	// Logger for request/retry logging. nil uses a default stderr logger.
	Logger *log.Logger
}

// Client calls the Composio HTTP API.
type Client struct {
	apiKey  string
	userID  string
	baseURL string
	httpc   *http.Client
	logger  *log.Logger
}

// New creates a Client. An empty API key is allowed at construction so
// status commands can report the missing configuration; remote calls
// will fail with ErrNoAPIKey.
func New(cfg Config) *Client {
	userID := cfg.UserID
	if userID == "" {
		userID = DefaultUserID
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[composio] ", log.LstdFlags)
	}

	return &Client{
		apiKey:  cfg.APIKey,
		userID:  userID,
		baseURL: baseURL,
		httpc:   httpc,
		logger:  logger,
	}
}

// UserID returns the configured user id.
func (c *Client) UserID() string {
	return c.userID
}

// ToolResult is a successful tool execution. Data is the decoded
// response payload, shape depending on the tool.
type ToolResult struct {
	Data map[string]any
}

// Execute runs a toolkit tool for the configured user.
//
// A response with successful=false returns a *ToolError carrying the
// remote failure message; transport and HTTP-level failures return
// wrapped errors after the bounded retry policy is exhausted.
func (c *Client) Execute(ctx context.Context, slug string, args map[string]any) (*ToolResult, error) {
	if args == nil {
		args = map[string]any{}
	}
	body := map[string]any{
		"user_id":   c.userID,
		"arguments": args,
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v3/tools/execute/"+url.PathEscape(slug), nil, body)
	if err != nil {
		return nil, fmt.Errorf("failed to execute tool %s: %w", slug, err)
	}

	// Older API revisions spelled the flag "successfull" and newer ones
	// omit it on success, so absence of an error counts as success.
	ok, found := FirstBool(resp, "successful", "successfull")
	if !found {
		_, hasErr := FirstString(resp, "error", "error.message")
		ok = !hasErr
	}
	if !ok {
		msg, _ := FirstString(resp, "error", "error.message", "message")
		if msg == "" {
			msg = "unknown tool error"
		}
		return nil, &ToolError{Slug: slug, Message: msg}
	}

	data := FirstMap(resp, "data", "response_data")
	if data == nil {
		data = map[string]any{}
	}
	return &ToolResult{Data: data}, nil
}

// ConnectedAccount is one account linked for a user.
type ConnectedAccount struct {
	ID          string
	Status      string
	ToolkitSlug string
}

// Active reports whether the account is usable. Revoked accounts stay
// listed with EXPIRED or FAILED statuses.
func (a ConnectedAccount) Active() bool {
	return strings.EqualFold(a.Status, "ACTIVE")
}

// ConnectedAccounts lists the accounts linked for the configured user.
func (c *Client) ConnectedAccounts(ctx context.Context) ([]ConnectedAccount, error) {
	query := url.Values{"user_ids": {c.userID}}
	resp, err := c.do(ctx, http.MethodGet, "/api/v3/connected_accounts", query, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list connected accounts: %w", err)
	}

	items, _ := resp["items"].([]any)
	accounts := make([]ConnectedAccount, 0, len(items))
	for _, raw := range items {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		slug, _ := FirstString(m, "toolkit.slug", "toolkit_slug", "app_unique_id", "appName")
		id, _ := FirstString(m, "id", "connected_account_id", "connectedAccountId")
		status, _ := FirstString(m, "status", "connectionStatus")
		accounts = append(accounts, ConnectedAccount{
			ID:          id,
			Status:      status,
			ToolkitSlug: strings.ToLower(slug),
		})
	}
	return accounts, nil
}

// InitiateConnection starts the account-linking flow for the given auth
// config and returns the URL the user must open to authorize access.
func (c *Client) InitiateConnection(ctx context.Context, authConfigID string) (string, error) {
	if authConfigID == "" {
		return "", fmt.Errorf("auth config id is required to initiate a connection")
	}

	body := map[string]any{
		"user_id":        c.userID,
		"auth_config_id": authConfigID,
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/v3/connected_accounts/link", nil, body)
	if err != nil {
		return "", fmt.Errorf("failed to initiate connection: %w", err)
	}

	if redirect, ok := FirstString(resp, RedirectKeys...); ok {
		return redirect, nil
	}
	return "", fmt.Errorf("connection response contained no redirect URL")
}

// do performs one API request with the bounded retry policy: up to
// maxRetries attempts, exponential backoff, retrying only transport
// errors, 429 and 5xx responses.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * initialRetryDelay
			c.logger.Printf("retrying %s %s in %v (attempt %d/%d): %v", method, path, delay, attempt+1, maxRetries, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("x-api-key", c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = apiError(resp.StatusCode, respBody)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, apiError(resp.StatusCode, respBody)
		}

		decoded := map[string]any{}
		if len(respBody) > 0 {
			if err := json.Unmarshal(respBody, &decoded); err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return decoded, nil
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr)
}

// apiError turns a non-2xx response into an error, using the message
// field when the body parses as the standard error envelope.
func apiError(status int, body []byte) error {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err == nil {
		if msg, ok := FirstString(envelope, "error.message", "error", "message"); ok {
			return fmt.Errorf("composio API error (status %d): %s", status, msg)
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return fmt.Errorf("composio API error (status %d): %s", status, text)
}
