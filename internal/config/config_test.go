package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("swarm: hive\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Store.Path != "waggle.db" {
		t.Errorf("Path = %q, want waggle.db", cfg.Store.Path)
	}
	if cfg.Store.User != "root" || cfg.Store.Host != "127.0.0.1" || cfg.Store.Port != 3306 {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Store.Database != "waggle_hive" {
		t.Errorf("Database = %q, want waggle_hive", cfg.Store.Database)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Sweep.Schedule != "*/5 * * * *" {
		t.Errorf("Schedule = %q", cfg.Sweep.Schedule)
	}
	if cfg.Sweep.StaleAfterS != 300 {
		t.Errorf("StaleAfterS = %d, want 300", cfg.Sweep.StaleAfterS)
	}
	if cfg.Sweep.TaskRetentionD != 30 || cfg.Sweep.MessageRetentionD != 7 || cfg.Sweep.MemoryRetentionD != 90 {
		t.Errorf("retention = %+v", cfg.Sweep)
	}
}

func TestParse_ExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte(`
swarm: hive
store:
  driver: mysql
  user: waggle
  host: db.internal
  port: 3307
  database: coordination
server:
  port: 9090
sweep:
  schedule: "0 * * * *"
  stale_after_s: 60
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Store.Driver != "mysql" || cfg.Store.Database != "coordination" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Store.Host != "db.internal" || cfg.Store.Port != 3307 {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Sweep.Schedule != "0 * * * *" || cfg.Sweep.StaleAfterS != 60 {
		t.Errorf("sweep = %+v", cfg.Sweep)
	}
}

func TestParse_SwarmRequired(t *testing.T) {
	_, err := Parse([]byte("server:\n  port: 8080\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "swarm is required") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_InvalidDriver(t *testing.T) {
	_, err := Parse([]byte("swarm: hive\nstore:\n  driver: postgres\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "not sqlite or mysql") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_MySQLNeedsDatabase(t *testing.T) {
	// No swarm name means no derived database name either.
	_, err := Parse([]byte("store:\n  driver: mysql\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "store.database is required") {
		t.Errorf("error = %q", err)
	}
}

func TestParse_BadYAML(t *testing.T) {
	if _, err := Parse([]byte("swarm: [unterminated")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waggle.yaml")
	if err := os.WriteFile(path, []byte("swarm: hive\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Swarm != "hive" {
		t.Errorf("Swarm = %q", cfg.Swarm)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
