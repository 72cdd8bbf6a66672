package headscale

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client talks to the headscale REST API rooted at BaseURL, which is either
// "<server>/api/v1" or the dashboard's "/api/proxy" mount.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	// OnTokenInvalid is called once the token has been cleared after a 401.
	OnTokenInvalid func()

	mu    sync.Mutex
	token string
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// APIError is returned for every failed call. Status is 0 for transport failures.
type APIError struct {
	Status  int
	Message string
	Data    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("headscale http %d: %s", e.Status, e.Message)
}

// ErrNoToken is the error raised before any I/O when no token is set.
var ErrNoToken = &APIError{Status: http.StatusUnauthorized, Message: "No authentication token provided"}

func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	return c.do(ctx, http.MethodGet, path, nil, v)
}

func (c *Client) PostJSON(ctx context.Context, path string, body any, v any) error {
	return c.do(ctx, http.MethodPost, path, body, v)
}

func (c *Client) PutJSON(ctx context.Context, path string, body any, v any) error {
	return c.do(ctx, http.MethodPut, path, body, v)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	token := c.Token()
	if token == "" {
		return ErrNoToken
	}

	var rd io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return &APIError{Message: "network error: " + err.Error()}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		if res.StatusCode == http.StatusUnauthorized {
			c.invalidateToken(token)
		}
		return newAPIError(res.StatusCode, b)
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// invalidateToken clears the token only if it is still the one that failed.
func (c *Client) invalidateToken(failed string) {
	c.mu.Lock()
	cleared := c.token == failed
	if cleared {
		c.token = ""
	}
	cb := c.OnTokenInvalid
	c.mu.Unlock()
	if cleared && cb != nil {
		cb()
	}
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	if json.Valid(body) {
		e.Data = json.RawMessage(body)
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &msg) == nil {
			e.Message = msg.Message
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed with status code %d", status)
	}
	return e
}

// TestToken reports whether token is accepted by the API at baseURL.
func TestToken(ctx context.Context, baseURL, token string) bool {
	if token == "" {
		return false
	}
	c := New(baseURL, token)
	var h Health
	return c.GetJSON(ctx, "/health", &h) == nil
}
