package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lensesio/tableprinter"

	"github.com/QuocDuong16/headscale-dashboard/internal/config"
	"github.com/QuocDuong16/headscale-dashboard/pkg/headscale"
)

const requestTimeout = 30 * time.Second

// apiBase maps the --url flag to the REST root the client talks to.
func apiBase(raw string, direct bool) (string, error) {
	u, err := config.NormalizeURL(raw)
	if err != nil {
		return "", err
	}
	if direct {
		return u + "/api/v1", nil
	}
	return u + "/api/proxy", nil
}

func newClient() (*headscale.Client, error) {
	base, err := apiBase(baseURL, direct)
	if err != nil {
		return nil, err
	}
	return headscale.New(base, token), nil
}

func requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, requestTimeout)
}

func printJSON(out io.Writer, data any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printTable(out io.Writer, data any) {
	table := tableprinter.New(out)

	table.HeaderAlignment = tableprinter.AlignLeft
	table.AutoWrapText = false
	table.DefaultAlignment = tableprinter.AlignLeft
	table.CenterSeparator = ""
	table.ColumnSeparator = ""
	table.RowSeparator = ""
	table.HeaderLine = false
	table.BorderBottom = false
	table.BorderLeft = false
	table.BorderRight = false
	table.BorderTop = false
	table.Print(data)
}

func ago(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return humanize.Time(*t)
}

func date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinOrDash(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ", ")
}
