package listing

import (
	"strings"
	"time"

	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

type RouteQuery struct {
	Search string
	Status string // all | enabled | disabled
}

func FilterRoutes(routes []headscale.Route, q RouteQuery) []headscale.Route {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]headscale.Route, 0, len(routes))
	for _, r := range routes {
		if term != "" && !containsFold(r.Prefix, term) &&
			!containsFold(r.Machine.DisplayName(), term) &&
			!containsFold(r.Machine.User.Name, term) {
			continue
		}
		switch q.Status {
		case "enabled":
			if !r.Enabled {
				continue
			}
		case "disabled":
			if r.Enabled {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func FilterAPIKeys(keys []headscale.APIKey, search string) []headscale.APIKey {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]headscale.APIKey, 0, len(keys))
	for _, k := range keys {
		if term != "" && !containsFold(k.Prefix, term) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// APIKeyExpired reports whether an api key expiration has passed.
func APIKeyExpired(k headscale.APIKey, now time.Time) bool {
	return k.Expiration != nil && !k.Expiration.IsZero() && !k.Expiration.After(now)
}

// FilterPreAuthKeys keeps keys in the given state: all | active | used | expired.
// Active keys are unused and unexpired.
func FilterPreAuthKeys(keys []headscale.PreAuthKey, state string, now time.Time) []headscale.PreAuthKey {
	out := make([]headscale.PreAuthKey, 0, len(keys))
	for _, k := range keys {
		expired := k.Expired(now)
		switch state {
		case "active":
			if k.Used || expired {
				continue
			}
		case "used":
			if !k.Used {
				continue
			}
		case "expired":
			if !expired {
				continue
			}
		}
		out = append(out, k)
	}
	return out
}
