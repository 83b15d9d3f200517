package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServerMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadServer(filepath.Join(t.TempDir(), "not_exists.yml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg != DefaultServer() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadServerReadsAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yml")
	content := []byte("port: 9090\nwatch_dir: ' /inbox '\ninitial_scan: true\noutput_dir: /out\nlog_level: DEBUG\nmax_width: \"1024\"\nquality: \"\"\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 || cfg.WatchDir != "/inbox" || !cfg.InitialScan || cfg.OutputDir != "/out" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	raw := cfg.RawOptions()
	if raw.MaxWidth != "1024" || raw.MaxHeight != "" || raw.Quality != "" {
		t.Fatalf("unexpected raw options: %+v", raw)
	}
}

func TestLoadServerRejectsInvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yml")
	if err := os.WriteFile(path, []byte("port: 70000\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadServer(path); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestLoadServerRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yml")
	if err := os.WriteFile(path, []byte("port: [1, 2\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadServer(path); err == nil {
		t.Fatal("expected parse error")
	}
}
