package listing

import "github.com/QuocDuong16/headscale-dashboard/pkg/headscale"

// Stats are the dashboard cards.
type Stats struct {
	Machines      int `json:"machines"`
	Online        int `json:"online"`
	Users         int `json:"users"`
	Routes        int `json:"routes"`
	EnabledRoutes int `json:"enabledRoutes"`
}

func ComputeStats(machines []headscale.Machine, users []headscale.User, routes []headscale.Route) Stats {
	s := Stats{Machines: len(machines), Users: len(users), Routes: len(routes)}
	for _, m := range machines {
		if m.Online {
			s.Online++
		}
	}
	for _, r := range routes {
		if r.Enabled {
			s.EnabledRoutes++
		}
	}
	return s
}

// OnlinePercent is rounded down; zero machines is 0%.
func (s Stats) OnlinePercent() int {
	if s.Machines == 0 {
		return 0
	}
	return s.Online * 100 / s.Machines
}
