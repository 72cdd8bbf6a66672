package headscale

import (
	"context"
	"errors"
	"net/http"
)

// GetPolicy returns the raw policy document. headscale answers 500 when no
// policy file is configured; that case yields an empty document.
func (c *Client) GetPolicy(ctx context.Context) (string, error) {
	var out struct {
		Policy string `json:"policy"`
	}
	if err := c.GetJSON(ctx, "/policy", &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusInternalServerError {
			return "{}", nil
		}
		return "", err
	}
	if out.Policy == "" {
		return "{}", nil
	}
	return out.Policy, nil
}

// SetPolicy replaces the policy and returns the document headscale stored.
func (c *Client) SetPolicy(ctx context.Context, policy string) (string, error) {
	var out struct {
		Policy string `json:"policy"`
	}
	if err := c.PutJSON(ctx, "/policy", map[string]any{"policy": policy}, &out); err != nil {
		return "", err
	}
	if out.Policy == "" {
		return "{}", nil
	}
	return out.Policy, nil
}
