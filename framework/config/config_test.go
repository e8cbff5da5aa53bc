package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/km-arc/go-container/framework/config"
)

// ── helpers ──────────────────────────────────────────────────────────────────

var keys = []string{
	"APP_NAME", "APP_ENV", "APP_DEBUG", "APP_PORT", "APP_KEY",
	"CONTAINER_DUMP_DIR", "CONTAINER_FILENAME", "CONTAINER_DEFINITIONS",
	"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_DATABASE", "DB_USERNAME", "DB_PASSWORD", "DB_CHARSET", "DB_COLLATION",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every key Load reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func writeEnv(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func load(t *testing.T, files ...string) *config.Config {
	t.Helper()
	cfg, err := config.Load(files...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

// ── Load ─────────────────────────────────────────────────────────────────────

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := load(t, filepath.Join(t.TempDir(), "missing.env"))

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"App.Name", cfg.App.Name, "GoContainer"},
		{"App.Env", cfg.App.Env, "local"},
		{"App.Port", cfg.App.Port, "8000"},
		{"Container.DumpDirectory", cfg.Container.DumpDirectory, "./storage/container"},
		{"Container.Filename", cfg.Container.Filename, "container"},
		{"Container.Definitions", cfg.Container.Definitions, ""},
		{"DB.Driver", cfg.DB.Driver, "mysql"},
		{"DB.Host", cfg.DB.Host, "127.0.0.1"},
		{"DB.Port", cfg.DB.Port, "3306"},
		{"DB.Username", cfg.DB.Username, "root"},
		{"Log.Level", cfg.Log.Level, "info"},
		{"Log.Format", cfg.Log.Format, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
	if !cfg.App.Debug {
		t.Error("expected App.Debug to default to true")
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_NAME", "MyApp")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CONTAINER_DUMP_DIR", "/var/cache/app")
	t.Setenv("DB_CHARSET", "utf8mb4")

	cfg := load(t, filepath.Join(t.TempDir(), "missing.env"))

	if cfg.App.Name != "MyApp" {
		t.Errorf("App.Name: got %q want %q", cfg.App.Name, "MyApp")
	}
	if cfg.App.Env != "production" {
		t.Errorf("App.Env: got %q want %q", cfg.App.Env, "production")
	}
	if cfg.Container.DumpDirectory != "/var/cache/app" {
		t.Errorf("Container.DumpDirectory: got %q", cfg.Container.DumpDirectory)
	}
	if cfg.DB.Charset != "utf8mb4" {
		t.Errorf("DB.Charset: got %q", cfg.DB.Charset)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_NAME", "FromProcess")
	path := writeEnv(t, "APP_NAME=FromFile\nAPP_DEBUG=false\nCONTAINER_FILENAME=app_container\n")

	cfg := load(t, path)

	if cfg.App.Name != "FromProcess" {
		t.Errorf("process env must win, got %q", cfg.App.Name)
	}
	if cfg.App.Debug {
		t.Error("expected App.Debug false from file")
	}
	if cfg.Container.Filename != "app_container" {
		t.Errorf("Container.Filename: got %q", cfg.Container.Filename)
	}
	if os.Getenv("CONTAINER_FILENAME") != "" {
		t.Error("Load must not mutate the process environment")
	}
}

func TestLoad_UnreadableFile(t *testing.T) {
	if _, err := config.Load(t.TempDir()); err == nil {
		t.Error("expected error when the env path is a directory")
	}
}

func TestLoad_AppDebugFalse(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_DEBUG", "false")
	if load(t, "none.env").App.Debug {
		t.Error("expected App.Debug to be false")
	}
}

// ── Parameters ───────────────────────────────────────────────────────────────

func TestParameters(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_DEBUG", "false")
	t.Setenv("DB_DATABASE", "shop")
	t.Setenv("DB_COLLATION", "utf8mb4_unicode_ci")

	p := load(t, "none.env").Parameters()

	if p["kernel.debug"] != false {
		t.Errorf("kernel.debug: got %v", p["kernel.debug"])
	}
	if p["kernel.environment"] != "production" {
		t.Errorf("kernel.environment: got %v", p["kernel.environment"])
	}
	if p["container.dump_directory"] != "./storage/container" || p["container.filename"] != "container" {
		t.Errorf("container params: got %v / %v", p["container.dump_directory"], p["container.filename"])
	}

	db, ok := p["database"].(map[string]any)
	if !ok {
		t.Fatalf("database: got %T", p["database"])
	}
	if db["dbname"] != "shop" || db["collation"] != "utf8mb4_unicode_ci" {
		t.Errorf("database: got %v", db)
	}
	if _, ok := db["charset"]; ok {
		t.Error("empty charset must be omitted")
	}
}

// ── Get / GetInt / GetBool ───────────────────────────────────────────────────

func TestGet_ReturnsValue(t *testing.T) {
	t.Setenv("CUSTOM_KEY", "hello")
	if got := config.Get("CUSTOM_KEY", "default"); got != "hello" {
		t.Errorf("got %q want %q", got, "hello")
	}
}

func TestGet_ReturnsFallback(t *testing.T) {
	t.Setenv("MISSING_KEY", "")
	if got := config.Get("MISSING_KEY", "fallback"); got != "fallback" {
		t.Errorf("got %q want %q", got, "fallback")
	}
}

func TestGetInt(t *testing.T) {
	t.Setenv("SOME_INT", "42")
	if got := config.GetInt("SOME_INT", 0); got != 42 {
		t.Errorf("got %d want %d", got, 42)
	}
	t.Setenv("SOME_INT", "notanint")
	if got := config.GetInt("SOME_INT", 99); got != 99 {
		t.Errorf("got %d want %d", got, 99)
	}
}

func TestGetBool(t *testing.T) {
	for _, val := range []string{"true", "1", "True", "TRUE"} {
		t.Setenv("BOOL_KEY", val)
		if !config.GetBool("BOOL_KEY", false) {
			t.Errorf("expected true for %q", val)
		}
	}
	t.Setenv("BOOL_KEY", "notabool")
	if !config.GetBool("BOOL_KEY", true) {
		t.Error("expected fallback true")
	}
}
