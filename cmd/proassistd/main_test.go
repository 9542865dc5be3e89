package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestResolveConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.yaml")
	body := "addr: \":9000\"\nlog_level: warn\nmax_new_tokens: 64\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	if err := cmd.Flags().Set("config", path); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := cmd.Flags().Set("addr", ":7000"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("flag must override file, got %q", cfg.Addr)
	}
	if cfg.LogLevel != "warn" || cfg.MaxNewTokens != 64 {
		t.Fatalf("file values must survive, got %+v", cfg)
	}
}

func TestBuildLoggerRejectsBadLevel(t *testing.T) {
	if _, err := buildLogger("loud", "json"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
