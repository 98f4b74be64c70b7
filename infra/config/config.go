package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAPI       = "http://localhost:8080"
	defaultStaleTime = 30 * time.Second
	appDir           = "terminalnotes"
)

// Config holds application-level configuration.
type Config struct {
	APIURL      string        // e.g. "https://notes.example.com"
	AuthDir     string        // Directory for tokens and UI state
	StaleTime   time.Duration // How long fetched data is served from cache
	LogLevel    string        // debug, info, warn, error
	LogFile     string        // Empty means stderr
	MetricsAddr string        // Empty disables the metrics endpoint
}

// TokenPath is where the access/refresh token pair is stored.
func (c Config) TokenPath() string {
	return filepath.Join(c.AuthDir, "tokens.json")
}

// UIStatePath is where the TUI remembers its last view.
func (c Config) UIStatePath() string {
	return filepath.Join(c.AuthDir, "ui_state.json")
}

// fileConfig mirrors the optional YAML config file.
type fileConfig struct {
	API         string `yaml:"api"`
	AuthDir     string `yaml:"auth_dir"`
	StaleTime   string `yaml:"stale_time"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads the YAML config file, then lets environment variables override it.
//
//	TERMINALNOTES_CONFIG         YAML file (default: ~/.config/terminalnotes/config.yaml)
//	TERMINALNOTES_API            Notes API base URL (default: http://localhost:8080)
//	TERMINALNOTES_AUTH_DIR       Token directory (default: ~/.config/terminalnotes)
//	TERMINALNOTES_STALE_TIME     Cache stale time, e.g. "45s" (default: 30s)
//	TERMINALNOTES_LOG_LEVEL      debug|info|warn|error (default: info)
//	TERMINALNOTES_LOG_FILE       Log file path (default: stderr)
//	TERMINALNOTES_METRICS_ADDR   Listen address for /metrics (default: disabled)
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("cannot determine home directory: %w", err)
	}
	base := filepath.Join(home, ".config", appDir)

	path := os.Getenv("TERMINALNOTES_CONFIG")
	explicit := path != ""
	if !explicit {
		path = filepath.Join(base, "config.yaml")
	}
	fc, err := readFile(path, explicit)
	if err != nil {
		return Config{}, err
	}

	api := firstNonEmpty(os.Getenv("TERMINALNOTES_API"), fc.API, defaultAPI)
	api, err = normalizeAPI(api)
	if err != nil {
		return Config{}, err
	}

	stale := defaultStaleTime
	if raw := firstNonEmpty(os.Getenv("TERMINALNOTES_STALE_TIME"), fc.StaleTime); raw != "" {
		stale, err = time.ParseDuration(raw)
		if err != nil || stale < 0 {
			return Config{}, fmt.Errorf("invalid TERMINALNOTES_STALE_TIME %q: must be a non-negative duration", raw)
		}
	}

	level := strings.ToLower(firstNonEmpty(os.Getenv("TERMINALNOTES_LOG_LEVEL"), fc.LogLevel, "info"))
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("invalid TERMINALNOTES_LOG_LEVEL %q", level)
	}

	return Config{
		APIURL:      api,
		AuthDir:     firstNonEmpty(os.Getenv("TERMINALNOTES_AUTH_DIR"), fc.AuthDir, base),
		StaleTime:   stale,
		LogLevel:    level,
		LogFile:     firstNonEmpty(os.Getenv("TERMINALNOTES_LOG_FILE"), fc.LogFile),
		MetricsAddr: firstNonEmpty(os.Getenv("TERMINALNOTES_METRICS_ADDR"), fc.MetricsAddr),
	}, nil
}

func readFile(path string, required bool) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return fc, nil
	}
	if err != nil {
		return fc, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return fc, nil
}

// normalizeAPI requires an absolute https URL; plain http is accepted only
// for loopback hosts.
func normalizeAPI(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid TERMINALNOTES_API: must be an absolute URL")
	}
	switch parsed.Scheme {
	case "https":
	case "http":
		if !isLoopback(parsed.Hostname()) {
			return "", fmt.Errorf("invalid TERMINALNOTES_API: only https is allowed for non-local hosts")
		}
	default:
		return "", fmt.Errorf("invalid TERMINALNOTES_API: unsupported scheme %q", parsed.Scheme)
	}
	return strings.TrimRight(parsed.String(), "/"), nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// UIState is what the TUI remembers between runs.
type UIState struct {
	FeedSource string `json:"feed_source,omitempty"`
}

// LoadUIState reads the UI state file. A missing file yields the zero state.
func LoadUIState(path string) (UIState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return UIState{}, nil
	}
	if err != nil {
		return UIState{}, fmt.Errorf("reading ui state: %w", err)
	}
	var st UIState
	if err := json.Unmarshal(data, &st); err != nil {
		return UIState{}, fmt.Errorf("parsing ui state: %w", err)
	}
	return st, nil
}

// SaveUIState writes st to path, creating the directory if needed.
func SaveUIState(path string, st UIState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("serializing ui state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing ui state: %w", err)
	}
	return nil
}
