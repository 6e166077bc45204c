package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func serverEnv(t *testing.T) {
	t.Helper()
	t.Setenv("KANBAN_CONFIG", "")
	t.Setenv("KANBAN_STORAGE", "memory")
	t.Setenv("REDIS_CONNECTION_STRING", "")
	t.Setenv("EVENTS_CHANNEL", "")
	t.Setenv("EVENTS_QUEUE", "")
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "")
	t.Setenv("LISTEN_ADDR", "127.0.0.1:0")
}

func TestConfigFlagDefaultsToEnv(t *testing.T) {
	t.Setenv("KANBAN_CONFIG", "/etc/kanban/api.yaml")

	flag := newRootCmd().PersistentFlags().Lookup("config")
	if flag == nil || flag.DefValue != "/etc/kanban/api.yaml" {
		t.Fatalf("unexpected config flag %+v", flag)
	}
}

func TestRootRejectsBadConfig(t *testing.T) {
	serverEnv(t)
	badYAML := filepath.Join(t.TempDir(), "api.yaml")
	if err := os.WriteFile(badYAML, []byte("storage: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cases := map[string]struct {
		backend string
		args    []string
	}{
		"unknown backend": {"bogus", []string{}},
		"bad yaml":        {"memory", []string{"--config", badYAML}},
		"extra argument":  {"memory", []string{"serve"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("KANBAN_STORAGE", tc.backend)
			root := newRootCmd()
			root.SetArgs(tc.args)
			root.SetOut(io.Discard)
			root.SetErr(io.Discard)
			if err := root.ExecuteContext(context.Background()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestServeStopsWithContext(t *testing.T) {
	serverEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, "") }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
