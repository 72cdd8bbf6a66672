package headscale

import (
	"bytes"
	"encoding/json"
	"time"
)

// User is a headscale user (namespace).
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName,omitempty"`
	Email       string     `json:"email,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// Machine is a node enrolled in the tailnet. Key material is opaque.
type Machine struct {
	ID              string     `json:"id"`
	MachineKey      string     `json:"machineKey"`
	NodeKey         string     `json:"nodeKey"`
	DiscoKey        string     `json:"discoKey"`
	IPAddresses     []string   `json:"ipAddresses"`
	Name            string     `json:"name"`
	GivenName       string     `json:"givenName"`
	User            User       `json:"user"`
	LastSeen        *time.Time `json:"lastSeen,omitempty"`
	Expiry          *time.Time `json:"expiry,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	RegisterMethod  string     `json:"registerMethod"`
	ForcedTags      []string   `json:"forcedTags"`
	InvalidTags     []string   `json:"invalidTags"`
	ValidTags       []string   `json:"validTags"`
	Online          bool       `json:"online"`
	ApprovedRoutes  []string   `json:"approvedRoutes,omitempty"`
	AvailableRoutes []string   `json:"availableRoutes,omitempty"`
	SubnetRoutes    []string   `json:"subnetRoutes,omitempty"`
}

// DisplayName returns the name shown in lists: name, else the given name.
func (m Machine) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.GivenName
}

// Route is not an upstream resource. It is derived from a machine's route lists.
type Route struct {
	ID         string     `json:"id"`
	Machine    Machine    `json:"machine"`
	Prefix     string     `json:"prefix"`
	Advertised bool       `json:"advertised"`
	Enabled    bool       `json:"enabled"`
	IsPrimary  bool       `json:"isPrimary"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// KeyOwner is the user of a pre-auth key. Older headscale releases send the
// bare user id, newer ones the full user object.
type KeyOwner struct {
	User
}

func (o *KeyOwner) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		o.User = User{ID: id}
		return nil
	}
	return json.Unmarshal(b, &o.User)
}

// Label is the user name when known, else the id.
func (o KeyOwner) Label() string {
	if o.Name != "" {
		return o.Name
	}
	return o.ID
}

type PreAuthKey struct {
	ID         string     `json:"id"`
	User       KeyOwner   `json:"user"`
	Key        string     `json:"key"`
	Reusable   bool       `json:"reusable"`
	Ephemeral  bool       `json:"ephemeral"`
	Used       bool       `json:"used"`
	Expiration *time.Time `json:"expiration,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	ACLTags    []string   `json:"aclTags"`
}

// Expired reports whether the key expiration is at or before now.
func (k PreAuthKey) Expired(now time.Time) bool {
	return k.Expiration != nil && !k.Expiration.IsZero() && !k.Expiration.After(now)
}

// CreatePreAuthKeyRequest takes the user by name; the client resolves the id.
type CreatePreAuthKeyRequest struct {
	User       string
	Reusable   bool
	Ephemeral  bool
	Expiration *time.Time
	ACLTags    []string
}

type APIKey struct {
	ID         string     `json:"id"`
	Prefix     string     `json:"prefix"`
	Expiration *time.Time `json:"expiration,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	LastSeen   *time.Time `json:"lastSeen,omitempty"`
}

// CreateAPIKeyResponse carries the full key. Upstream only returns it once.
type CreateAPIKeyResponse struct {
	APIKey string `json:"apiKey"`
	Prefix string `json:"prefix,omitempty"`
}

type Health struct {
	DatabaseConnectivity bool `json:"databaseConnectivity"`
}

type DebugCreateNodeRequest struct {
	User   string   `json:"user,omitempty"`
	Key    string   `json:"key,omitempty"`
	Name   string   `json:"name,omitempty"`
	Routes []string `json:"routes,omitempty"`
}

// UserFilter narrows ListUsers. Empty fields are not sent.
type UserFilter struct {
	ID    string
	Name  string
	Email string
}
