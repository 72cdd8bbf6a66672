package listing

import (
	"sort"
	"strings"

	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

type UserQuery struct {
	Search string
	SortBy string // name | createdAt | machineCount
	Order  Order
}

// UserRow is a user with the number of machines it owns.
type UserRow struct {
	headscale.User
	Machines int
}

// MachineCount counts machines per owner name.
func MachineCount(machines []headscale.Machine) map[string]int {
	counts := map[string]int{}
	for _, m := range machines {
		counts[m.User.Name]++
	}
	return counts
}

func FilterUsers(users []headscale.User, machines []headscale.Machine, q UserQuery) []UserRow {
	counts := MachineCount(machines)
	term := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]UserRow, 0, len(users))
	for _, u := range users {
		if term != "" && !containsFold(u.Name, term) {
			continue
		}
		out = append(out, UserRow{User: u, Machines: counts[u.Name]})
	}
	var cmp func(a, b UserRow) int
	switch q.SortBy {
	case "createdAt":
		cmp = func(a, b UserRow) int { return cmpInt(unix(a.CreatedAt), unix(b.CreatedAt)) }
	case "machineCount":
		cmp = func(a, b UserRow) int { return cmpInt(int64(a.Machines), int64(b.Machines)) }
	default:
		cmp = func(a, b UserRow) int { return strings.Compare(a.Name, b.Name) }
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if q.Order == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}
