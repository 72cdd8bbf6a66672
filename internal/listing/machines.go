// Package listing filters and sorts fetched headscale collections for the
// list views. Every function is pure and every sort is stable.
package listing

import (
	"sort"
	"strings"
	"time"

	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder accepts "asc" or "desc"; anything else is def.
func ParseOrder(s string, def Order) Order {
	switch Order(strings.ToLower(s)) {
	case Asc:
		return Asc
	case Desc:
		return Desc
	}
	return def
}

// MachineQuery is the machines view state.
type MachineQuery struct {
	Search string
	Status string // all | online | offline
	User   string // all | <user name>
	SortBy string // name | lastSeen | createdAt | user
	Order  Order
}

// SortKey splits "field-order" as used by the sort dropdowns.
func SortKey(v, defField string, defOrder Order) (string, Order) {
	field, order, ok := strings.Cut(v, "-")
	if field == "" {
		return defField, defOrder
	}
	if !ok {
		return field, defOrder
	}
	return field, ParseOrder(order, defOrder)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}

func matchesMachine(m headscale.Machine, term string) bool {
	if containsFold(m.Name, term) || containsFold(m.GivenName, term) || containsFold(m.User.Name, term) {
		return true
	}
	for _, ip := range m.IPAddresses {
		if containsFold(ip, term) {
			return true
		}
	}
	return false
}

// FilterMachines applies search, status and user filters, then sorts.
// The input slice is not modified.
func FilterMachines(machines []headscale.Machine, q MachineQuery) []headscale.Machine {
	term := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]headscale.Machine, 0, len(machines))
	for _, m := range machines {
		if term != "" && !matchesMachine(m, term) {
			continue
		}
		switch q.Status {
		case "online":
			if !m.Online {
				continue
			}
		case "offline":
			if m.Online {
				continue
			}
		}
		if q.User != "" && q.User != "all" && m.User.Name != q.User {
			continue
		}
		out = append(out, m)
	}
	SortMachines(out, q.SortBy, q.Order)
	return out
}

func unix(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

// SortMachines sorts in place. Unknown fields sort by name.
func SortMachines(ms []headscale.Machine, field string, order Order) {
	var less func(a, b headscale.Machine) int
	switch field {
	case "lastSeen":
		less = func(a, b headscale.Machine) int { return cmpInt(unix(a.LastSeen), unix(b.LastSeen)) }
	case "createdAt":
		less = func(a, b headscale.Machine) int { return cmpInt(unix(a.CreatedAt), unix(b.CreatedAt)) }
	case "user":
		less = func(a, b headscale.Machine) int { return strings.Compare(a.User.Name, b.User.Name) }
	default:
		less = func(a, b headscale.Machine) int { return strings.Compare(a.DisplayName(), b.DisplayName()) }
	}
	sort.SliceStable(ms, func(i, j int) bool {
		c := less(ms[i], ms[j])
		if order == Desc {
			return c > 0
		}
		return c < 0
	})
}

// MachineUsers returns the sorted distinct owner names.
func MachineUsers(machines []headscale.Machine) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range machines {
		if m.User.Name == "" {
			continue
		}
		if _, ok := seen[m.User.Name]; ok {
			continue
		}
		seen[m.User.Name] = struct{}{}
		out = append(out, m.User.Name)
	}
	sort.Strings(out)
	return out
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
