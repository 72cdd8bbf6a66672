package headscale

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

func (c *Client) ListMachines(ctx context.Context) ([]Machine, error) {
	var out struct {
		Nodes []Machine `json:"nodes"`
	}
	if err := c.GetJSON(ctx, "/node", &out); err != nil {
		return nil, err
	}
	if out.Nodes == nil {
		out.Nodes = []Machine{}
	}
	return out.Nodes, nil
}

func (c *Client) GetMachine(ctx context.Context, id string) (*Machine, error) {
	var out struct {
		Node Machine `json:"node"`
	}
	if err := c.GetJSON(ctx, "/node/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out.Node, nil
}

func (c *Client) DeleteMachine(ctx context.Context, id string) error {
	return c.Delete(ctx, "/node/"+url.PathEscape(id))
}

// RenameMachine sets the given name. The new name travels in the path.
func (c *Client) RenameMachine(ctx context.Context, id, name string) (*Machine, error) {
	return c.postNode(ctx, "/node/"+url.PathEscape(id)+"/rename/"+url.PathEscape(name), nil)
}

// ExpireMachine expires the node now, or at expiry when given.
func (c *Client) ExpireMachine(ctx context.Context, id string, expiry *time.Time) (*Machine, error) {
	path := "/node/" + url.PathEscape(id) + "/expire"
	if expiry != nil {
		q := url.Values{}
		q.Set("expiry", expiry.UTC().Format(time.RFC3339))
		path += "?" + q.Encode()
	}
	return c.postNode(ctx, path, nil)
}

func (c *Client) SetMachineTags(ctx context.Context, id string, tags []string) (*Machine, error) {
	if tags == nil {
		tags = []string{}
	}
	return c.postNode(ctx, "/node/"+url.PathEscape(id)+"/tags", map[string]any{"tags": tags})
}

// RegisterMachine completes a pending interactive registration.
func (c *Client) RegisterMachine(ctx context.Context, user, key string) (*Machine, error) {
	path := "/node/register"
	q := url.Values{}
	if user != "" {
		q.Set("user", user)
	}
	if key != "" {
		q.Set("key", key)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.postNode(ctx, path, nil)
}

// MoveMachine reassigns the node to the user with the given id.
func (c *Client) MoveMachine(ctx context.Context, id, userID string) (*Machine, error) {
	return c.postNode(ctx, "/node/"+url.PathEscape(id)+"/user", map[string]any{"user": userID})
}

func (c *Client) SetApprovedRoutes(ctx context.Context, id string, routes []string) (*Machine, error) {
	if routes == nil {
		routes = []string{}
	}
	return c.postNode(ctx, "/node/"+url.PathEscape(id)+"/approve_routes", map[string]any{"routes": routes})
}

func (c *Client) BackfillIPs(ctx context.Context, confirmed *bool) error {
	path := "/node/backfillips"
	if confirmed != nil {
		path += "?confirmed=" + strconv.FormatBool(*confirmed)
	}
	return c.PostJSON(ctx, path, nil, nil)
}

func (c *Client) DebugCreateNode(ctx context.Context, req DebugCreateNodeRequest) (*Machine, error) {
	return c.postNode(ctx, "/debug/node", req)
}

func (c *Client) postNode(ctx context.Context, path string, body any) (*Machine, error) {
	var out struct {
		Node Machine `json:"node"`
	}
	if err := c.PostJSON(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Node, nil
}
