package empire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// metadataTTL is how long a fetched socket credential set stays reusable.
// Reconnect storms must not hammer the metadata endpoint.
const metadataTTL = 15 * time.Second

// Client is the REST client for the marketplace API. Its only job in the
// scanner is fetching the socket credentials used to open the trade stream.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu        sync.Mutex
	cached    socketMetadata
	fetchedAt time.Time
}

// NewClient creates a new marketplace REST client.
//
// baseURL is the API root, e.g. "https://csgoempire.com/api/v2".
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SocketMetadata returns the credential set for opening a trade socket,
// reusing a recently fetched one when available.
func (c *Client) SocketMetadata(ctx context.Context) (socketMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.fetchedAt) < metadataTTL && c.cached.SocketToken != "" {
		return c.cached, nil
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/metadata/socket")
	if err != nil {
		return socketMetadata{}, fmt.Errorf("empire: socket metadata: %w", err)
	}

	var meta socketMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return socketMetadata{}, fmt.Errorf("empire: decode socket metadata: %w", err)
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(meta.User, &user); err != nil {
		return socketMetadata{}, fmt.Errorf("empire: decode user: %w", err)
	}
	meta.UserID = user.ID

	if meta.SocketToken == "" || meta.SocketSignature == "" {
		return socketMetadata{}, fmt.Errorf("empire: metadata response missing socket credentials")
	}

	c.cached = meta
	c.fetchedAt = time.Now()
	return meta, nil
}

// doRequest builds, sends, and reads an authenticated HTTP request against
// the marketplace API.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := c.checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkStatus maps non-2xx HTTP status codes to appropriate errors.
func (c *Client) checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("unauthorized: %s", apiErr.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited: %s", apiErr.Message)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, apiErr.Message)
	}
}
