package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAPIBase(t *testing.T) {
	cases := []struct {
		raw    string
		direct bool
		want   string
	}{
		{"http://localhost:3000", false, "http://localhost:3000/api/proxy"},
		{"hs.example.com/", true, "http://hs.example.com/api/v1"},
		{"https://hs.example.com", true, "https://hs.example.com/api/v1"},
	}
	for _, c := range cases {
		got, err := apiBase(c.raw, c.direct)
		if err != nil {
			t.Fatalf("%s: %v", c.raw, err)
		}
		if got != c.want {
			t.Fatalf("%s direct=%v: got %q want %q", c.raw, c.direct, got, c.want)
		}
	}
}

func fakeHeadscale(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/node", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer cli-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"nodes":[
			{"id":"1","name":"alpha-host","online":true,"user":{"id":"1","name":"alice"},"ipAddresses":["100.64.0.1"]},
			{"id":"2","name":"beta-host","online":false,"user":{"id":"2","name":"bob"},"ipAddresses":["100.64.0.2"]}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfgFile, baseURL, token, direct, outputJSON = "", "", "", false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNodesListTable(t *testing.T) {
	srv := fakeHeadscale(t)
	out, err := run(t, "nodes", "list", "--url", srv.URL, "--direct", "--token", "cli-key", "--json=false", "--status", "online")
	if err != nil {
		t.Fatalf("nodes list: %v", err)
	}
	if !strings.Contains(out, "alpha-host") || strings.Contains(out, "beta-host") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "NAME") {
		t.Fatalf("missing table header:\n%s", out)
	}
}

func TestNodesListJSON(t *testing.T) {
	srv := fakeHeadscale(t)
	out, err := run(t, "nodes", "list", "--url", srv.URL, "--direct", "--token", "cli-key", "--json", "--status", "all")
	if err != nil {
		t.Fatalf("nodes list: %v", err)
	}
	var nodes []map[string]any
	if err := json.Unmarshal([]byte(out), &nodes); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
}

func TestNodesListRejectedToken(t *testing.T) {
	srv := fakeHeadscale(t)
	_, err := run(t, "nodes", "list", "--url", srv.URL, "--direct", "--token", "wrong", "--json=false", "--status", "all")
	if err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestPolicyFormatReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	if err := os.WriteFile(path, []byte(`{"acls":[]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "policy", "format", path)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if out != "{\n  \"acls\": []\n}\n" {
		t.Fatalf("got %q", out)
	}
}
