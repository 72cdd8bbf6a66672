package headscale

import (
	"context"
	"net/url"
	"time"
)

func (c *Client) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	var out struct {
		APIKeys []APIKey `json:"apiKeys"`
	}
	if err := c.GetJSON(ctx, "/apikey", &out); err != nil {
		return nil, err
	}
	if out.APIKeys == nil {
		out.APIKeys = []APIKey{}
	}
	return out.APIKeys, nil
}

// CreateAPIKey creates a key; expiration is omitted when nil.
func (c *Client) CreateAPIKey(ctx context.Context, expiration *time.Time) (*CreateAPIKeyResponse, error) {
	body := map[string]any{}
	if expiration != nil {
		body["expiration"] = expiration.UTC().Format(time.RFC3339)
	}
	var out CreateAPIKeyResponse
	if err := c.PostJSON(ctx, "/apikey", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExpireAPIKey(ctx context.Context, prefix string) error {
	return c.PostJSON(ctx, "/apikey/expire", map[string]any{"prefix": prefix}, nil)
}

func (c *Client) DeleteAPIKey(ctx context.Context, prefix string) error {
	return c.Delete(ctx, "/apikey/"+url.PathEscape(prefix))
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.GetJSON(ctx, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}
