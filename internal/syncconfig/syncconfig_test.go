package syncconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// writeTestConfig creates a temp HOME with ~/.config/rbx-configs/config.json.
func writeTestConfig(t *testing.T, cfg *Config) {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	dir := filepath.Join(tmpDir, ".config", "rbx-configs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestJournalKeepDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_CONFIGS_JOURNAL_KEEP", "")

	if keep := JournalKeep(); keep != 1000 {
		t.Fatalf("default keep: got %d, want 1000", keep)
	}
}

func TestJournalKeepEnvVar(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_CONFIGS_JOURNAL_KEEP", "500")

	if keep := JournalKeep(); keep != 500 {
		t.Fatalf("env keep: got %d, want 500", keep)
	}
}

func TestJournalKeepEnvVarInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_CONFIGS_JOURNAL_KEEP", "not-a-number")

	// Invalid env should fall through to default
	if keep := JournalKeep(); keep != 1000 {
		t.Fatalf("invalid env keep: got %d, want 1000 (default)", keep)
	}
}

func TestJournalKeepEnvVarNegative(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_CONFIGS_JOURNAL_KEEP", "-5")

	// Negative should fall through to default
	if keep := JournalKeep(); keep != 1000 {
		t.Fatalf("negative env keep: got %d, want 1000 (default)", keep)
	}
}

func TestJournalKeepEnvOverridesConfig(t *testing.T) {
	writeTestConfig(t, &Config{Journal: JournalConfig{Keep: intPtr(50)}})
	t.Setenv("RBX_CONFIGS_JOURNAL_KEEP", "42")

	if keep := JournalKeep(); keep != 42 {
		t.Fatalf("env override: got %d, want 42", keep)
	}
}

func TestJournalKeepFromConfig(t *testing.T) {
	writeTestConfig(t, &Config{Journal: JournalConfig{Keep: intPtr(50)}})
	t.Setenv("RBX_CONFIGS_JOURNAL_KEEP", "")

	if keep := JournalKeep(); keep != 50 {
		t.Fatalf("config keep: got %d, want 50", keep)
	}
}

func TestJournalEnabledFromConfig(t *testing.T) {
	writeTestConfig(t, &Config{Journal: JournalConfig{Enabled: boolPtr(false)}})
	t.Setenv("RBX_CONFIGS_JOURNAL", "")

	if JournalEnabled() {
		t.Error("expected journal disabled from config")
	}
}

func TestJournalEnabledEnvOverridesConfig(t *testing.T) {
	writeTestConfig(t, &Config{Journal: JournalConfig{Enabled: boolPtr(false)}})
	t.Setenv("RBX_CONFIGS_JOURNAL", "true")

	if !JournalEnabled() {
		t.Error("env should override config for journal enabled")
	}
}

func TestJournalEnabledDefaultsTrue(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_CONFIGS_JOURNAL", "")

	if !JournalEnabled() {
		t.Error("journal should default to enabled")
	}
}

func TestAPIURLFromConfig(t *testing.T) {
	writeTestConfig(t, &Config{API: APIConfig{URL: "http://localhost:9999"}})
	t.Setenv("RBX_CONFIGS_API_URL", "")

	if url := GetAPIURL(); url != "http://localhost:9999" {
		t.Fatalf("config url: got %q", url)
	}
}

func TestAPIURLEnvOverridesConfig(t *testing.T) {
	writeTestConfig(t, &Config{API: APIConfig{URL: "http://localhost:9999"}})
	t.Setenv("RBX_CONFIGS_API_URL", "http://localhost:1234")

	if url := GetAPIURL(); url != "http://localhost:1234" {
		t.Fatalf("env url: got %q", url)
	}
}

func TestAPIURLDefaultsEmpty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_CONFIGS_API_URL", "")

	if url := GetAPIURL(); url != "" {
		t.Fatalf("expected empty url, got %q", url)
	}
}

func TestAuthRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_COOKIE", "")

	if creds, err := LoadAuth(); err != nil || creds != nil {
		t.Fatalf("missing auth.json: got %v, %v; want nil, nil", creds, err)
	}

	want := &AuthCredentials{Cookie: "secret-token", SavedAt: "2026-01-02T03:04:05Z"}
	if err := SaveAuth(want); err != nil {
		t.Fatalf("save auth: %v", err)
	}

	got, err := LoadAuth()
	if err != nil {
		t.Fatalf("load auth: %v", err)
	}
	if got == nil || got.Cookie != want.Cookie || got.SavedAt != want.SavedAt {
		t.Fatalf("round trip: got %+v, want %+v", got, want)
	}

	if GetCookie() != "secret-token" {
		t.Fatalf("cookie: got %q", GetCookie())
	}
	if src := CookieSource(); src != "auth.json" {
		t.Fatalf("cookie source: got %q, want auth.json", src)
	}
	if !IsAuthenticated() {
		t.Error("expected authenticated")
	}
}

func TestAuthFilePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	if err := SaveAuth(&AuthCredentials{Cookie: "secret"}); err != nil {
		t.Fatalf("save auth: %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, ".config", "rbx-configs", "auth.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("auth.json perms: got %o, want 0600", perm)
	}
}

func TestCookieEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := SaveAuth(&AuthCredentials{Cookie: "from-file"}); err != nil {
		t.Fatalf("save auth: %v", err)
	}
	t.Setenv("RBX_COOKIE", "from-env")

	if GetCookie() != "from-env" {
		t.Fatalf("cookie: got %q, want from-env", GetCookie())
	}
	if src := CookieSource(); src != "env" {
		t.Fatalf("cookie source: got %q, want env", src)
	}
}

func TestClearAuthIsIdempotent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RBX_COOKIE", "")

	if err := SaveAuth(&AuthCredentials{Cookie: "secret"}); err != nil {
		t.Fatalf("save auth: %v", err)
	}
	if err := ClearAuth(); err != nil {
		t.Fatalf("clear auth: %v", err)
	}
	if IsAuthenticated() {
		t.Error("expected logged out after clear")
	}
	if err := ClearAuth(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	want := &Config{
		API:     APIConfig{URL: "http://localhost:8080"},
		Journal: JournalConfig{Enabled: boolPtr(false), Keep: intPtr(25)},
	}
	if err := SaveConfig(want); err != nil {
		t.Fatalf("save config: %v", err)
	}

	got, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.API.URL != want.API.URL {
		t.Errorf("url: got %q, want %q", got.API.URL, want.API.URL)
	}
	if got.Journal.Enabled == nil || *got.Journal.Enabled {
		t.Error("journal.enabled did not round trip")
	}
	if got.Journal.Keep == nil || *got.Journal.Keep != 25 {
		t.Error("journal.keep did not round trip")
	}
}
