package headscale

import (
	"context"
	"net/url"
	"sort"
	"time"
)

// ListPreAuthKeys lists the keys of the named user.
func (c *Client) ListPreAuthKeys(ctx context.Context, userName string) ([]PreAuthKey, error) {
	u, err := c.GetUser(ctx, userName)
	if err != nil {
		return nil, err
	}
	return c.listPreAuthKeysByID(ctx, u.ID)
}

func (c *Client) listPreAuthKeysByID(ctx context.Context, userID string) ([]PreAuthKey, error) {
	var out struct {
		PreAuthKeys []PreAuthKey `json:"preAuthKeys"`
	}
	if err := c.GetJSON(ctx, "/preauthkey?user="+url.QueryEscape(userID), &out); err != nil {
		return nil, err
	}
	if out.PreAuthKeys == nil {
		out.PreAuthKeys = []PreAuthKey{}
	}
	return out.PreAuthKeys, nil
}

func (c *Client) CreatePreAuthKey(ctx context.Context, req CreatePreAuthKeyRequest) (*PreAuthKey, error) {
	u, err := c.GetUser(ctx, req.User)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"user":      u.ID,
		"reusable":  req.Reusable,
		"ephemeral": req.Ephemeral,
	}
	if req.Expiration != nil {
		body["expiration"] = req.Expiration.UTC().Format(time.RFC3339)
	}
	if len(req.ACLTags) > 0 {
		body["aclTags"] = req.ACLTags
	}
	var out struct {
		PreAuthKey PreAuthKey `json:"preAuthKey"`
	}
	if err := c.PostJSON(ctx, "/preauthkey", body, &out); err != nil {
		return nil, err
	}
	return &out.PreAuthKey, nil
}

// ExpirePreAuthKey expires key. The owner is resolved by name when given;
// without one only the key is sent.
func (c *Client) ExpirePreAuthKey(ctx context.Context, key, userName string) error {
	if userName == "" {
		return c.PostJSON(ctx, "/preauthkey/expire", map[string]any{"key": key}, nil)
	}
	u, err := c.GetUser(ctx, userName)
	if err != nil {
		return err
	}
	return c.PostJSON(ctx, "/preauthkey/expire", map[string]any{"user": u.ID, "key": key}, nil)
}

// PendingRegistrations returns every unused, unexpired key across all users,
// newest first.
func (c *Client) PendingRegistrations(ctx context.Context, now time.Time) ([]PreAuthKey, error) {
	users, err := c.ListUsers(ctx, UserFilter{})
	if err != nil {
		return nil, err
	}
	pending := []PreAuthKey{}
	for _, u := range users {
		keys, err := c.listPreAuthKeysByID(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			if k.Used || k.Expired(now) {
				continue
			}
			if k.User.Name == "" {
				k.User.User = u
			}
			pending = append(pending, k)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return unix(pending[i].CreatedAt) > unix(pending[j].CreatedAt)
	})
	return pending, nil
}

func unix(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}
