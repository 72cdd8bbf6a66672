package main

import (
	"testing"

	"github.com/QuocDuong16/headscale-dashboard/internal/config"
)

func TestListenAddr(t *testing.T) {
	t.Setenv("DASH_CONFIG", "")
	t.Setenv("DASH_BIND", "127.0.0.1")
	t.Setenv("DASH_PORT", "3100")
	cfg := config.FromEnv()
	if got := listenAddr(cfg); got != "127.0.0.1:3100" {
		t.Fatalf("got %q", got)
	}

	cfg.Bind = ""
	if got := listenAddr(cfg); got != "0.0.0.0:3100" {
		t.Fatalf("empty bind: got %q", got)
	}
}
