package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"BRIDGE_ADDR", "BRIDGE_HOST", "BRIDGE_PORT", "BRIDGE_STORE", "BRIDGE_DATA_FILE", "BRIDGE_TEXT_TIMEOUT_SECONDS", "BRIDGE_IMAGE_TIMEOUT_SECONDS", "BRIDGE_REFRESH_SPEC", "BRIDGE_REMINDER_SPEC"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	if cfg.ListenAddr() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.ListenAddr())
	}
	if cfg.StoreEngine != "sqlite" || cfg.DataFile != "data/bridge.db" {
		t.Fatalf("unexpected store defaults %s %s", cfg.StoreEngine, cfg.DataFile)
	}
	if cfg.TextTimeout != 15*time.Second || cfg.ImageTimeout != 25*time.Second {
		t.Fatalf("unexpected timeouts %s %s", cfg.TextTimeout, cfg.ImageTimeout)
	}
	if cfg.RefreshSpec != "@every 60s" || cfg.ReminderSpec != "@every 1h" {
		t.Fatalf("unexpected schedules %s %s", cfg.RefreshSpec, cfg.ReminderSpec)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_ADDR", "127.0.0.1:9000")
	t.Setenv("BRIDGE_PORT", "")
	t.Setenv("BRIDGE_HOST", "")
	t.Setenv("BRIDGE_STORE", "JSON")
	t.Setenv("BRIDGE_DATA_FILE", "")
	t.Setenv("BRIDGE_STORE_QUOTA_BYTES", "5242880")

	cfg := FromEnv()
	if cfg.ListenAddr() != "127.0.0.1:9000" {
		t.Fatalf("unexpected listen addr %s", cfg.ListenAddr())
	}
	if cfg.StoreEngine != "json" || cfg.DataFile != "data/bridge.json" || cfg.StoreQuotaBytes != 5242880 {
		t.Fatalf("unexpected store config %+v", cfg)
	}
}

func TestLoadFilesDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.env")
	content := "BRIDGE_TEST_FROM_FILE=file\nBRIDGE_TEST_PRESET=file\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("BRIDGE_TEST_PRESET", "env")
	t.Setenv("BRIDGE_TEST_FROM_FILE", "")
	os.Unsetenv("BRIDGE_TEST_FROM_FILE")

	LoadFiles(filepath.Join(t.TempDir(), "missing.env"), path)
	t.Cleanup(func() { os.Unsetenv("BRIDGE_TEST_FROM_FILE") })

	if got := os.Getenv("BRIDGE_TEST_FROM_FILE"); got != "file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("BRIDGE_TEST_PRESET"); got != "env" {
		t.Fatalf("expected environment to win, got %q", got)
	}
}

func TestSafeKeyMetaHidesKey(t *testing.T) {
	if got := SafeKeyMeta(""); got != "empty=true" {
		t.Fatalf("unexpected meta %q", got)
	}
	if got := SafeKeyMeta("AIzaSECRET"); got != "empty=false,len=10,starts_with_aiza=true,has_quotes=false,has_whitespace=false" {
		t.Fatalf("unexpected meta %q", got)
	}
}
