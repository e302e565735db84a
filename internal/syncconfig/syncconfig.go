// Package syncconfig reads and writes the CLI's persistent settings under
// ~/.config/rbx-configs: general settings in config.json and the session
// cookie in auth.json. Environment variables override both files.
package syncconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// APIConfig holds remote endpoint settings.
type APIConfig struct {
	URL string `json:"url,omitempty"` // empty = production endpoint
}

// JournalConfig holds sync journal settings.
type JournalConfig struct {
	Enabled *bool `json:"enabled,omitempty"` // nil = default true
	Keep    *int  `json:"keep,omitempty"`    // rows retained, nil = default 1000
}

// Config is the global config stored at ~/.config/rbx-configs/config.json.
type Config struct {
	API     APIConfig     `json:"api"`
	Journal JournalConfig `json:"journal"`
}

// AuthCredentials stores the session cookie at ~/.config/rbx-configs/auth.json.
type AuthCredentials struct {
	Cookie  string `json:"cookie"`
	SavedAt string `json:"saved_at,omitempty"`
}

const defaultJournalKeep = 1000

// ConfigDir returns ~/.config/rbx-configs, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "rbx-configs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads the global config from ~/.config/rbx-configs/config.json.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the global config to ~/.config/rbx-configs/config.json.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// LoadAuth reads auth credentials from ~/.config/rbx-configs/auth.json.
// Returns nil without error when the file does not exist.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// SaveAuth writes auth credentials to ~/.config/rbx-configs/auth.json
// (0600 perms, the cookie is a session token).
func SaveAuth(creds *AuthCredentials) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "auth.json"), data, 0600)
}

// ClearAuth removes the auth.json file.
func ClearAuth() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, "auth.json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// GetAPIURL returns the configured API base URL, or "" for the client's
// production default. Priority: RBX_CONFIGS_API_URL env > config.json.
func GetAPIURL() string {
	if v := os.Getenv("RBX_CONFIGS_API_URL"); v != "" {
		return v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.API.URL != "" {
		return cfg.API.URL
	}
	return ""
}

// GetCookie returns the .ROBLOSECURITY session cookie.
// Priority: RBX_COOKIE env > auth.json.
func GetCookie() string {
	if v := os.Getenv("RBX_COOKIE"); v != "" {
		return v
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil {
		return creds.Cookie
	}
	return ""
}

// CookieSource reports where the active cookie comes from: "env",
// "auth.json", or "" when no cookie is available.
func CookieSource() string {
	if os.Getenv("RBX_COOKIE") != "" {
		return "env"
	}
	creds, err := LoadAuth()
	if err == nil && creds != nil && creds.Cookie != "" {
		return "auth.json"
	}
	return ""
}

// IsAuthenticated returns true if a session cookie is available.
func IsAuthenticated() bool {
	return GetCookie() != ""
}

// JournalEnabled returns whether sync operations are recorded locally.
// Priority: RBX_CONFIGS_JOURNAL env > config.json journal.enabled > true.
func JournalEnabled() bool {
	if v := parseBoolEnv("RBX_CONFIGS_JOURNAL"); v != nil {
		return *v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Journal.Enabled != nil {
		return *cfg.Journal.Enabled
	}
	return true
}

// JournalKeep returns how many journal rows to retain.
// Priority: RBX_CONFIGS_JOURNAL_KEEP env > config.json journal.keep > 1000.
func JournalKeep() int {
	if v := os.Getenv("RBX_CONFIGS_JOURNAL_KEEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Journal.Keep != nil && *cfg.Journal.Keep >= 0 {
		return *cfg.Journal.Keep
	}
	return defaultJournalKeep
}

// DebugEnabled returns whether debug logging is requested via
// RBX_CONFIGS_DEBUG.
func DebugEnabled() bool {
	if v := parseBoolEnv("RBX_CONFIGS_DEBUG"); v != nil {
		return *v
	}
	return false
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	v = strings.ToLower(v)
	if v == "1" || v == "true" {
		b := true
		return &b
	}
	if v == "0" || v == "false" {
		b := false
		return &b
	}
	return nil
}
