package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/QuocDuong16/headscale-dashboard/internal/acl"
	"github.com/QuocDuong16/headscale-dashboard/internal/listing"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
	"github.com/QuocDuong16/headscale-dashboard/pkg/validate"
)

// newLoginCmd creates the login command
func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for later commands",
		Long:  `Checks a headscale API key against the server and saves it with the URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputToken := token
			if inputToken == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Enter API key: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return err
				}
				inputToken = strings.TrimSpace(line)
			}
			if inputToken == "" {
				return fmt.Errorf("token cannot be empty")
			}

			base, err := apiBase(baseURL, direct)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			if !headscale.TestToken(ctx, base, inputToken) {
				return fmt.Errorf("authentication failed: key rejected by %s", base)
			}

			viper.Set("token", inputToken)
			viper.Set("url", baseURL)
			viper.Set("direct", direct)

			configPath := cfgFile
			if configPath == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				configPath = filepath.Join(home, ".config", "hsctl", "cli.yaml")
			}
			if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
				return err
			}
			if err := viper.WriteConfigAs(configPath); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Authentication successful")
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration saved to %s\n", configPath)
			return nil
		},
	}
	return cmd
}

type statusReport struct {
	URL                  string        `json:"url"`
	DatabaseConnectivity bool          `json:"databaseConnectivity"`
	Stats                listing.Stats `json:"stats"`
}

// newStatusCmd creates the status command
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tailnet status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()

			health, err := c.Health(ctx)
			if err != nil {
				return err
			}
			machines, err := c.ListMachines(ctx)
			if err != nil {
				return err
			}
			users, err := c.ListUsers(ctx, headscale.UserFilter{})
			if err != nil {
				return err
			}
			report := statusReport{
				URL:                  c.BaseURL,
				DatabaseConnectivity: health.DatabaseConnectivity,
				Stats:                listing.ComputeStats(machines, users, headscale.RoutesFromMachines(machines)),
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return printJSON(out, report)
			}
			fmt.Fprintf(out, "Headscale Status\n")
			fmt.Fprintf(out, "================\n")
			fmt.Fprintf(out, "API:        %s\n", report.URL)
			fmt.Fprintf(out, "Database:   %s\n", map[bool]string{true: "connected", false: "unreachable"}[health.DatabaseConnectivity])
			fmt.Fprintf(out, "Machines:   %d online / %d (%d%%)\n", report.Stats.Online, report.Stats.Machines, report.Stats.OnlinePercent())
			fmt.Fprintf(out, "Users:      %d\n", report.Stats.Users)
			fmt.Fprintf(out, "Routes:     %d enabled / %d\n", report.Stats.EnabledRoutes, report.Stats.Routes)
			return nil
		},
	}
}

type nodeRow struct {
	ID       string `header:"ID"`
	Name     string `header:"NAME"`
	User     string `header:"USER"`
	IPs      string `header:"IP ADDRESSES"`
	Online   string `header:"ONLINE"`
	LastSeen string `header:"LAST SEEN"`
	Expiry   string `header:"EXPIRY"`
}

// newNodesCmd creates the nodes command group
func newNodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "nodes",
		Aliases: []string{"machines"},
		Short:   "Manage machines",
	}

	var search, status, user, sortBy string
	list := &cobra.Command{
		Use:   "list",
		Short: "List machines",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			machines, err := c.ListMachines(ctx)
			if err != nil {
				return err
			}
			field, order := listing.SortKey(sortBy, "name", listing.Asc)
			machines = listing.FilterMachines(machines, listing.MachineQuery{
				Search: search, Status: status, User: user, SortBy: field, Order: order,
			})

			if outputJSON {
				return printJSON(cmd.OutOrStdout(), machines)
			}
			rows := []nodeRow{}
			for _, m := range machines {
				rows = append(rows, nodeRow{
					ID:       m.ID,
					Name:     m.DisplayName(),
					User:     m.User.Name,
					IPs:      joinOrDash(m.IPAddresses),
					Online:   yesNo(m.Online),
					LastSeen: ago(m.LastSeen),
					Expiry:   date(m.Expiry),
				})
			}
			printTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	list.Flags().StringVar(&search, "search", "", "filter by name, user or IP")
	list.Flags().StringVar(&status, "status", "all", "all, online or offline")
	list.Flags().StringVar(&user, "user", "all", "only machines of this user")
	list.Flags().StringVar(&sortBy, "sort", "name-asc", "name|lastSeen|createdAt|user, suffixed -asc or -desc")

	var expiry string
	expire := &cobra.Command{
		Use:   "expire [id]",
		Short: "Expire a machine now or at --at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := validate.Expiration(expiry)
			if err != nil {
				return err
			}
			return withMachine(cmd, func(c *headscale.Client) (*headscale.Machine, error) {
				ctx, cancel := requestContext(cmd.Context())
				defer cancel()
				return c.ExpireMachine(ctx, args[0], at)
			})
		},
	}
	expire.Flags().StringVar(&expiry, "at", "", "expiry date (RFC 3339 or YYYY-MM-DD)")

	var confirmed bool
	backfill := &cobra.Command{
		Use:   "backfill-ips",
		Short: "Assign missing IP addresses to every machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			if err := c.BackfillIPs(ctx, &confirmed); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ IP addresses backfilled")
			return nil
		},
	}
	backfill.Flags().BoolVar(&confirmed, "confirm", false, "confirm the backfill")

	var registerUser string
	register := &cobra.Command{
		Use:   "register [key]",
		Short: "Register a machine waiting on the registration page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := validate.Name(registerUser); err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			return withMachine(cmd, func(c *headscale.Client) (*headscale.Machine, error) {
				ctx, cancel := requestContext(cmd.Context())
				defer cancel()
				return c.RegisterMachine(ctx, registerUser, args[0])
			})
		},
	}
	register.Flags().StringVar(&registerUser, "user", "", "owner of the machine")

	var debugReq headscale.DebugCreateNodeRequest
	var debugRoutes string
	debugCreate := &cobra.Command{
		Use:   "debug-create",
		Short: "Create a fake machine through the debug endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range validate.Tags(debugRoutes) {
				p, err := validate.Prefix(r)
				if err != nil {
					return fmt.Errorf("%s: %w", r, err)
				}
				debugReq.Routes = append(debugReq.Routes, p)
			}
			return withMachine(cmd, func(c *headscale.Client) (*headscale.Machine, error) {
				ctx, cancel := requestContext(cmd.Context())
				defer cancel()
				return c.DebugCreateNode(ctx, debugReq)
			})
		},
	}
	debugCreate.Flags().StringVar(&debugReq.User, "user", "", "owner of the machine")
	debugCreate.Flags().StringVar(&debugReq.Key, "key", "", "registration key")
	debugCreate.Flags().StringVar(&debugReq.Name, "name", "", "machine name")
	debugCreate.Flags().StringVar(&debugRoutes, "routes", "", "comma separated prefixes to advertise")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "get [id]",
			Short: "Show a machine",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMachine(cmd, func(c *headscale.Client) (*headscale.Machine, error) {
					ctx, cancel := requestContext(cmd.Context())
					defer cancel()
					return c.GetMachine(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "rename [id] [name]",
			Short: "Rename a machine",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				name, err := validate.Name(args[1])
				if err != nil {
					return err
				}
				return withMachine(cmd, func(c *headscale.Client) (*headscale.Machine, error) {
					ctx, cancel := requestContext(cmd.Context())
					defer cancel()
					return c.RenameMachine(ctx, args[0], name)
				})
			},
		},
		&cobra.Command{
			Use:   "tags [id] [tag,tag...]",
			Short: "Replace the forced tags of a machine",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				tags := []string{}
				if len(args) == 2 {
					tags = validate.Tags(args[1])
				}
				return withMachine(cmd, func(c *headscale.Client) (*headscale.Machine, error) {
					ctx, cancel := requestContext(cmd.Context())
					defer cancel()
					return c.SetMachineTags(ctx, args[0], tags)
				})
			},
		},
		&cobra.Command{
			Use:   "move [id] [user-id]",
			Short: "Move a machine to another user",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMachine(cmd, func(c *headscale.Client) (*headscale.Machine, error) {
					ctx, cancel := requestContext(cmd.Context())
					defer cancel()
					return c.MoveMachine(ctx, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "approve-routes [id] [prefix...]",
			Short: "Set the approved routes of a machine",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				routes := []string{}
				for _, a := range args[1:] {
					p, err := validate.Prefix(a)
					if err != nil {
						return fmt.Errorf("%s: %w", a, err)
					}
					routes = append(routes, p)
				}
				return withMachine(cmd, func(c *headscale.Client) (*headscale.Machine, error) {
					ctx, cancel := requestContext(cmd.Context())
					defer cancel()
					return c.SetApprovedRoutes(ctx, args[0], routes)
				})
			},
		},
		expire,
		register,
		backfill,
		debugCreate,
		&cobra.Command{
			Use:   "delete [id]",
			Short: "Delete a machine",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newClient()
				if err != nil {
					return err
				}
				ctx, cancel := requestContext(cmd.Context())
				defer cancel()
				if err := c.DeleteMachine(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Machine %s deleted\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

// withMachine runs a call that returns a machine and prints it.
func withMachine(cmd *cobra.Command, call func(*headscale.Client) (*headscale.Machine, error)) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	m, err := call(c)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(out, m)
	}
	fmt.Fprintf(out, "ID:        %s\n", m.ID)
	fmt.Fprintf(out, "Name:      %s\n", m.DisplayName())
	fmt.Fprintf(out, "User:      %s\n", m.User.Name)
	fmt.Fprintf(out, "IPs:       %s\n", joinOrDash(m.IPAddresses))
	fmt.Fprintf(out, "Online:    %s\n", yesNo(m.Online))
	fmt.Fprintf(out, "Last seen: %s\n", ago(m.LastSeen))
	fmt.Fprintf(out, "Expiry:    %s\n", date(m.Expiry))
	fmt.Fprintf(out, "Tags:      %s\n", joinOrDash(m.ForcedTags))
	fmt.Fprintf(out, "Routes:    %s\n", joinOrDash(m.ApprovedRoutes))
	return nil
}

type userRow struct {
	ID       string `header:"ID"`
	Name     string `header:"NAME"`
	Email    string `header:"EMAIL"`
	Machines int    `header:"MACHINES"`
	Created  string `header:"CREATED"`
}

// newUsersCmd creates the users command group
func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	var search, sortBy string
	list := &cobra.Command{
		Use:   "list",
		Short: "List users with their machine count",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			users, err := c.ListUsers(ctx, headscale.UserFilter{})
			if err != nil {
				return err
			}
			machines, err := c.ListMachines(ctx)
			if err != nil {
				return err
			}
			field, order := listing.SortKey(sortBy, "name", listing.Asc)
			result := listing.FilterUsers(users, machines, listing.UserQuery{Search: search, SortBy: field, Order: order})
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			rows := []userRow{}
			for _, u := range result {
				rows = append(rows, userRow{ID: u.ID, Name: u.Name, Email: u.Email, Machines: u.Machines, Created: date(u.CreatedAt)})
			}
			printTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	list.Flags().StringVar(&search, "search", "", "filter by name")
	list.Flags().StringVar(&sortBy, "sort", "name-asc", "name|createdAt|machineCount, suffixed -asc or -desc")

	cmd.AddCommand(
		list,
		&cobra.Command{
			Use:   "create [name]",
			Short: "Create a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				name, err := validate.Name(args[0])
				if err != nil {
					return err
				}
				c, err := newClient()
				if err != nil {
					return err
				}
				ctx, cancel := requestContext(cmd.Context())
				defer cancel()
				u, err := c.CreateUser(ctx, name)
				if err != nil {
					return err
				}
				if outputJSON {
					return printJSON(cmd.OutOrStdout(), u)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ User %s created (id %s)\n", u.Name, u.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename [id] [new-name]",
			Short: "Rename a user",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				name, err := validate.Name(args[1])
				if err != nil {
					return err
				}
				c, err := newClient()
				if err != nil {
					return err
				}
				ctx, cancel := requestContext(cmd.Context())
				defer cancel()
				if _, err := c.RenameUser(ctx, args[0], name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ User renamed to %s\n", name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete [id]",
			Short: "Delete a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newClient()
				if err != nil {
					return err
				}
				ctx, cancel := requestContext(cmd.Context())
				defer cancel()
				if err := c.DeleteUser(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ User %s deleted\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

type routeRow struct {
	ID      string `header:"ID"`
	Prefix  string `header:"PREFIX"`
	Machine string `header:"MACHINE"`
	Enabled string `header:"ENABLED"`
	Primary string `header:"PRIMARY"`
}

// newRoutesCmd creates the routes command group
func newRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Manage subnet routes",
	}

	var search, status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List advertised and approved routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			routes, err := c.ListRoutes(ctx)
			if err != nil {
				return err
			}
			routes = listing.FilterRoutes(routes, listing.RouteQuery{Search: search, Status: status})
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), routes)
			}
			rows := []routeRow{}
			for _, r := range routes {
				rows = append(rows, routeRow{
					ID:      r.ID,
					Prefix:  r.Prefix,
					Machine: r.Machine.DisplayName(),
					Enabled: yesNo(r.Enabled),
					Primary: yesNo(r.IsPrimary),
				})
			}
			printTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	list.Flags().StringVar(&search, "search", "", "filter by prefix, machine or user")
	list.Flags().StringVar(&status, "status", "all", "all, enabled or disabled")

	action := func(use, short, done string, call func(*headscale.Client, *cobra.Command, string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " [route-id]",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, _, err := headscale.ParseRouteID(args[0]); err != nil {
					return err
				}
				c, err := newClient()
				if err != nil {
					return err
				}
				if err := call(c, cmd, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Route %s %s\n", args[0], done)
				return nil
			},
		}
	}

	cmd.AddCommand(
		list,
		action("enable", "Approve a route", "enabled", func(c *headscale.Client, cmd *cobra.Command, id string) error {
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			return c.EnableRoute(ctx, id)
		}),
		action("disable", "Withdraw approval of a route", "disabled", func(c *headscale.Client, cmd *cobra.Command, id string) error {
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			return c.DisableRoute(ctx, id)
		}),
		action("delete", "Remove a route from the approved set", "removed", func(c *headscale.Client, cmd *cobra.Command, id string) error {
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			return c.DeleteRoute(ctx, id)
		}),
	)
	return cmd
}

type preAuthKeyRow struct {
	Key        string `header:"KEY"`
	User       string `header:"USER"`
	Reusable   string `header:"REUSABLE"`
	Ephemeral  string `header:"EPHEMERAL"`
	Used       string `header:"USED"`
	Expiration string `header:"EXPIRATION"`
	Tags       string `header:"TAGS"`
}

func preAuthKeyRows(keys []headscale.PreAuthKey) []preAuthKeyRow {
	rows := []preAuthKeyRow{}
	for _, k := range keys {
		rows = append(rows, preAuthKeyRow{
			Key:        k.Key,
			User:       k.User.Label(),
			Reusable:   yesNo(k.Reusable),
			Ephemeral:  yesNo(k.Ephemeral),
			Used:       yesNo(k.Used),
			Expiration: date(k.Expiration),
			Tags:       joinOrDash(k.ACLTags),
		})
	}
	return rows
}

// newPreAuthKeysCmd creates the preauthkeys command group
func newPreAuthKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "preauthkeys",
		Aliases: []string{"preauth"},
		Short:   "Manage pre-auth keys",
	}

	var user, state string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the keys of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := validate.Name(user); err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			keys, err := c.ListPreAuthKeys(ctx, user)
			if err != nil {
				return err
			}
			keys = listing.FilterPreAuthKeys(keys, state, time.Now())
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), keys)
			}
			printTable(cmd.OutOrStdout(), preAuthKeyRows(keys))
			return nil
		},
	}
	list.Flags().StringVar(&user, "user", "", "owner of the keys")
	list.Flags().StringVar(&state, "state", "all", "all, active, used or expired")

	var req headscale.CreatePreAuthKeyRequest
	var expiration, tags string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a pre-auth key",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := validate.Name(req.User)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			req.User = name
			if req.Expiration, err = validate.Expiration(expiration); err != nil {
				return err
			}
			req.ACLTags = validate.Tags(tags)
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			key, err := c.CreatePreAuthKey(ctx, req)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.Key)
			return nil
		},
	}
	create.Flags().StringVar(&req.User, "user", "", "owner of the key")
	create.Flags().BoolVar(&req.Reusable, "reusable", false, "allow the key to register several machines")
	create.Flags().BoolVar(&req.Ephemeral, "ephemeral", false, "machines registered with the key are ephemeral")
	create.Flags().StringVar(&expiration, "expiration", "", "expiry date (RFC 3339 or YYYY-MM-DD)")
	create.Flags().StringVar(&tags, "tags", "", "comma separated ACL tags")

	var expireUser string
	expire := &cobra.Command{
		Use:   "expire [key]",
		Short: "Expire a pre-auth key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			if err := c.ExpirePreAuthKey(ctx, args[0], expireUser); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Pre-auth key expired")
			return nil
		},
	}
	expire.Flags().StringVar(&expireUser, "user", "", "owner of the key")

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List unused, unexpired keys of every user",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			keys, err := c.PendingRegistrations(ctx, time.Now())
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), keys)
			}
			printTable(cmd.OutOrStdout(), preAuthKeyRows(keys))
			return nil
		},
	}

	cmd.AddCommand(list, create, expire, pending)
	return cmd
}

type apiKeyRow struct {
	Prefix     string `header:"PREFIX"`
	Expiration string `header:"EXPIRATION"`
	Created    string `header:"CREATED"`
	LastSeen   string `header:"LAST SEEN"`
}

// newAPIKeysCmd creates the apikeys command group
func newAPIKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikeys",
		Short: "Manage API keys",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			keys, err := c.ListAPIKeys(ctx)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), keys)
			}
			rows := []apiKeyRow{}
			for _, k := range keys {
				rows = append(rows, apiKeyRow{Prefix: k.Prefix, Expiration: date(k.Expiration), Created: date(k.CreatedAt), LastSeen: ago(k.LastSeen)})
			}
			printTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	var expiration string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key; the full key is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := validate.Expiration(expiration)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			created, err := c.CreateAPIKey(ctx, at)
			if err != nil {
				return err
			}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintln(cmd.OutOrStdout(), created.APIKey)
			return nil
		},
	}
	create.Flags().StringVar(&expiration, "expiration", "", "expiry date (RFC 3339 or YYYY-MM-DD)")

	byPrefix := func(use, short, done string, call func(*headscale.Client, *cobra.Command, string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " [prefix]",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newClient()
				if err != nil {
					return err
				}
				if err := call(c, cmd, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ API key %s %s\n", args[0], done)
				return nil
			},
		}
	}

	cmd.AddCommand(
		list,
		create,
		byPrefix("expire", "Expire an API key", "expired", func(c *headscale.Client, cmd *cobra.Command, prefix string) error {
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			return c.ExpireAPIKey(ctx, prefix)
		}),
		byPrefix("delete", "Delete an API key", "deleted", func(c *headscale.Client, cmd *cobra.Command, prefix string) error {
			ctx, cancel := requestContext(cmd.Context())
			defer cancel()
			return c.DeleteAPIKey(ctx, prefix)
		}),
	)
	return cmd
}

// newPolicyCmd creates the policy command group
func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "policy",
		Aliases: []string{"acl"},
		Short:   "Read and replace the ACL policy",
	}

	readInput := func(cmd *cobra.Command, args []string) (string, error) {
		if len(args) == 0 || args[0] == "-" {
			b, err := io.ReadAll(cmd.InOrStdin())
			return string(b), err
		}
		b, err := os.ReadFile(args[0])
		return string(b), err
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the policy, formatted",
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newClient()
				if err != nil {
					return err
				}
				ctx, cancel := requestContext(cmd.Context())
				defer cancel()
				policy, err := c.GetPolicy(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), acl.Present(policy))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set [file|-]",
			Short: "Validate and upload a policy",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				text, err := readInput(cmd, args)
				if err != nil {
					return err
				}
				compact, err := acl.Prepare(text)
				if err != nil {
					return err
				}
				c, err := newClient()
				if err != nil {
					return err
				}
				ctx, cancel := requestContext(cmd.Context())
				defer cancel()
				if _, err := c.SetPolicy(ctx, compact); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Policy saved")
				return nil
			},
		},
		&cobra.Command{
			Use:   "format [file|-]",
			Short: "Format a policy document locally",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				text, err := readInput(cmd, args)
				if err != nil {
					return err
				}
				formatted, err := acl.Format(text)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatted)
				return nil
			},
		},
	)
	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{"version": Version, "buildTime": BuildTime, "gitCommit": GitCommit}
			if outputJSON {
				return printJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hsctl %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
			return nil
		},
	}
}
