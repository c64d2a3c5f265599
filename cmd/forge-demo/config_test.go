package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forge.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"

[[component]]
name = "greeter"
version = "1.2.0"
module = "builtin:greeter"
provides = ["demo.greeting"]

[[component]]
name = "announcer"
module = "builtin:announcer"
requires = ["demo.greeting"]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected log level debug, got %q", cfg.Log.Level)
	}
	if len(cfg.Components) != 2 {
		t.Fatalf("expected two components, got %d", len(cfg.Components))
	}
	g := cfg.Components[0]
	if g.Name != "greeter" || g.Version != "1.2.0" || g.Module != "builtin:greeter" {
		t.Fatalf("unexpected greeter entry: %+v", g)
	}
	if len(g.Provides) != 1 || g.Provides[0] != "demo.greeting" {
		t.Fatalf("unexpected provides: %v", g.Provides)
	}
}

func TestLoadConfig_RejectsIncompleteEntries(t *testing.T) {
	path := writeConfig(t, `
[[component]]
version = "1.0.0"
module = "builtin:greeter"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected a nameless component to be rejected")
	}

	path = writeConfig(t, `
[[component]]
name = "greeter"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected a moduleless component to be rejected")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestDefaultConfig_Resolvable(t *testing.T) {
	r := builtinResolver()
	for _, c := range DefaultConfig().Components {
		if _, err := r.Resolve(context.Background(), c.Module); err != nil {
			t.Fatalf("default config references unknown module %q: %v", c.Module, err)
		}
	}
}
