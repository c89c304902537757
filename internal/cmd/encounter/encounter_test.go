package encounter

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("INITIATIVE_ENCOUNTER_PORT", "")
	t.Setenv("INITIATIVE_ENCOUNTER_DB_PATH", "")

	fs := flag.NewFlagSet("encounter", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.DBPath != "encounters.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.ContentDir != "" {
		t.Fatalf("expected empty content dir, got %q", cfg.ContentDir)
	}
}

func TestParseConfigEnvOverride(t *testing.T) {
	t.Setenv("INITIATIVE_ENCOUNTER_PORT", "9099")
	t.Setenv("INITIATIVE_ENCOUNTER_DB_PATH", "/data/enc.db")

	fs := flag.NewFlagSet("encounter", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9099 {
		t.Fatalf("expected env port 9099, got %d", cfg.Port)
	}
	if cfg.DBPath != "/data/enc.db" {
		t.Fatalf("expected env db path, got %q", cfg.DBPath)
	}
}

func TestParseConfigFlagOverridesEnv(t *testing.T) {
	t.Setenv("INITIATIVE_ENCOUNTER_PORT", "9099")

	fs := flag.NewFlagSet("encounter", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "7070", "-db", "flag.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 7070 {
		t.Fatalf("expected flag port 7070, got %d", cfg.Port)
	}
	if cfg.DBPath != "flag.db" {
		t.Fatalf("expected flag db path, got %q", cfg.DBPath)
	}
}
