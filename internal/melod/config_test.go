package melod

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "melod.toml")
	data := []byte("" +
		"[server]\n" +
		"name = \"living-room\"\n" +
		"http_port = 9000\n" +
		"\n" +
		"[server.auth]\n" +
		"user = \"melo\"\n" +
		"pass = \"secret\"\n" +
		"\n" +
		"[modules.file]\n" +
		"enabled = true\n" +
		"\n" +
		"[modules.file.roots]\n" +
		"music = \"/srv/music\"\n" +
		"\n" +
		"[modules.radio]\n" +
		"enabled = true\n" +
		"\n" +
		"[modules.radio.feeds]\n" +
		"news = \"https://example.com/feed.xml\"\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.Name != "living-room" || cfg.Server.HTTPPort != 9000 {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Server.Auth.User != "melo" {
		t.Fatalf("auth not loaded")
	}
	if !cfg.Modules.File.Enabled || cfg.Modules.File.Roots["music"] != "/srv/music" {
		t.Fatalf("file module config lost: %+v", cfg.Modules.File)
	}
	if cfg.Modules.Radio.Feeds["news"] == "" {
		t.Fatalf("radio feeds lost: %+v", cfg.Modules.Radio)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "melod.toml")
	if err := os.WriteFile(path, []byte("[server]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.HTTPPort != 8080 {
		t.Fatalf("expected default port, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.Name == "" {
		t.Fatalf("expected hostname default")
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("empty path must fail")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("missing file must fail")
	}
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatalf("directory must fail")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()
	if err != nil {
		t.Fatalf("default config path: %v", err)
	}
	if path == "" {
		t.Fatalf("expected path")
	}
}

func TestSerial(t *testing.T) {
	s := Serial()
	if s == "" {
		t.Fatalf("expected a serial")
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("expected lowercase hex, got %q", s)
		}
	}
	if s != Serial() {
		t.Fatalf("serial must be stable")
	}
}
