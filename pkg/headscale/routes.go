package headscale

import (
	"context"
	"fmt"
	"strings"
)

// RouteID builds the composite id of a machine route.
func RouteID(machineID, prefix string) string {
	return machineID + "-" + prefix
}

// ParseRouteID splits a route id at the first '-'. Machine ids are numeric,
// so everything after the first dash is the prefix.
func ParseRouteID(id string) (machineID, prefix string, err error) {
	machineID, prefix, ok := strings.Cut(id, "-")
	if !ok || machineID == "" || prefix == "" {
		return "", "", fmt.Errorf("invalid route id %q", id)
	}
	return machineID, prefix, nil
}

// RoutesFromMachines derives one route per prefix a machine advertises or has
// approved. Approved prefixes come first in upstream order, then advertised
// ones that are still waiting for approval.
func RoutesFromMachines(machines []Machine) []Route {
	routes := []Route{}
	for _, m := range machines {
		seen := map[string]bool{}
		add := func(prefix string) {
			if seen[prefix] {
				return
			}
			seen[prefix] = true
			routes = append(routes, Route{
				ID:         RouteID(m.ID, prefix),
				Machine:    m,
				Prefix:     prefix,
				Advertised: contains(m.AvailableRoutes, prefix),
				Enabled:    contains(m.ApprovedRoutes, prefix),
				IsPrimary:  contains(m.SubnetRoutes, prefix),
				CreatedAt:  m.CreatedAt,
				UpdatedAt:  m.CreatedAt,
			})
		}
		for _, p := range m.ApprovedRoutes {
			add(p)
		}
		for _, p := range m.AvailableRoutes {
			add(p)
		}
	}
	return routes
}

func (c *Client) ListRoutes(ctx context.Context) ([]Route, error) {
	machines, err := c.ListMachines(ctx)
	if err != nil {
		return nil, err
	}
	return RoutesFromMachines(machines), nil
}

// EnableRoute adds the prefix to the machine's approved routes.
func (c *Client) EnableRoute(ctx context.Context, routeID string) error {
	machineID, prefix, err := ParseRouteID(routeID)
	if err != nil {
		return err
	}
	m, err := c.GetMachine(ctx, machineID)
	if err != nil {
		return err
	}
	if contains(m.ApprovedRoutes, prefix) {
		return nil
	}
	approved := append(append([]string{}, m.ApprovedRoutes...), prefix)
	_, err = c.SetApprovedRoutes(ctx, machineID, approved)
	return err
}

// DisableRoute removes the prefix from the machine's approved routes.
func (c *Client) DisableRoute(ctx context.Context, routeID string) error {
	machineID, prefix, err := ParseRouteID(routeID)
	if err != nil {
		return err
	}
	m, err := c.GetMachine(ctx, machineID)
	if err != nil {
		return err
	}
	approved := []string{}
	for _, r := range m.ApprovedRoutes {
		if r != prefix {
			approved = append(approved, r)
		}
	}
	_, err = c.SetApprovedRoutes(ctx, machineID, approved)
	return err
}

// DeleteRoute is DisableRoute: advertised prefixes can only be un-approved.
func (c *Client) DeleteRoute(ctx context.Context, routeID string) error {
	return c.DisableRoute(ctx, routeID)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
