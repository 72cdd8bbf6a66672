package headscale

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

var ErrUserNotFound = errors.New("user not found")

func (c *Client) ListUsers(ctx context.Context, f UserFilter) ([]User, error) {
	path := "/user"
	q := url.Values{}
	if f.ID != "" {
		q.Set("id", f.ID)
	}
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if f.Email != "" {
		q.Set("email", f.Email)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	if out.Users == nil {
		out.Users = []User{}
	}
	return out.Users, nil
}

// GetUser looks a user up by name. Not every headscale release serves
// GET /user/{name}, so the full list is searched instead.
func (c *Client) GetUser(ctx context.Context, name string) (*User, error) {
	users, err := c.ListUsers(ctx, UserFilter{})
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Name == name {
			return &users[i], nil
		}
	}
	return nil, fmt.Errorf("user '%s': %w", name, ErrUserNotFound)
}

func (c *Client) CreateUser(ctx context.Context, name string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.PostJSON(ctx, "/user", map[string]any{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.Delete(ctx, "/user/"+url.PathEscape(id))
}

func (c *Client) RenameUser(ctx context.Context, id, newName string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	path := "/user/" + url.PathEscape(id) + "/rename/" + url.PathEscape(newName)
	if err := c.PostJSON(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}
