package server

import (
	"context"
	"time"

	"github.com/QuocDuong16/headscale-dashboard/internal/cache"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

// queries wraps the session cache around the headscale reads the pages share.
type queries struct {
	c     *headscale.Client
	cache *cache.Cache
}

func (q queries) machines(ctx context.Context) ([]headscale.Machine, error) {
	return cache.Fetch(ctx, q.cache, keyMachines, q.c.ListMachines)
}

func (q queries) machine(ctx context.Context, id string) (*headscale.Machine, error) {
	return cache.Fetch(ctx, q.cache, machineKey(id), func(ctx context.Context) (*headscale.Machine, error) {
		return q.c.GetMachine(ctx, id)
	})
}

func (q queries) users(ctx context.Context) ([]headscale.User, error) {
	return cache.Fetch(ctx, q.cache, keyUsers, func(ctx context.Context) ([]headscale.User, error) {
		return q.c.ListUsers(ctx, headscale.UserFilter{})
	})
}

func (q queries) routes(ctx context.Context) ([]headscale.Route, error) {
	return cache.Fetch(ctx, q.cache, keyRoutes, q.c.ListRoutes)
}

func (q queries) health(ctx context.Context) (*headscale.Health, error) {
	return cache.Fetch(ctx, q.cache, keyHealth, q.c.Health)
}

func (q queries) apiKeys(ctx context.Context) ([]headscale.APIKey, error) {
	return cache.Fetch(ctx, q.cache, keyAPIKeys, q.c.ListAPIKeys)
}

func (q queries) policy(ctx context.Context) (string, error) {
	return cache.Fetch(ctx, q.cache, keyACL, q.c.GetPolicy)
}

func (q queries) preAuthKeys(ctx context.Context, user string) ([]headscale.PreAuthKey, error) {
	return cache.Fetch(ctx, q.cache, preAuthKey(user), func(ctx context.Context) ([]headscale.PreAuthKey, error) {
		return q.c.ListPreAuthKeys(ctx, user)
	})
}

func (q queries) pending(ctx context.Context) ([]headscale.PreAuthKey, error) {
	return cache.Fetch(ctx, q.cache, keyPending, func(ctx context.Context) ([]headscale.PreAuthKey, error) {
		return q.c.PendingRegistrations(ctx, time.Now())
	})
}
