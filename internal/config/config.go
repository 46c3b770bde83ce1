package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything manavault reads at startup.
type Config struct {
	APIURL          string
	CachePath       string
	LogPath         string
	RequestTimeout  time.Duration
	RefreshInterval time.Duration
	Theme           string
	Debug           bool
}

const (
	defaultConfigPath      = "~/.config/manavault/config.toml"
	defaultAPIURL          = "http://127.0.0.1:8080"
	defaultCachePath       = "~/.local/share/manavault/cache.db"
	defaultLogPath         = "~/.local/share/manavault/manavault.log"
	defaultRequestTimeout  = 10 * time.Second
	defaultRefreshInterval = 30 * time.Second
	defaultTheme           = "Nightfox"
)

// Environment overrides.
const (
	EnvAPIURL    = "MANAVAULT_API_URL"
	EnvCachePath = "MANAVAULT_CACHE_PATH"
	EnvLogPath   = "MANAVAULT_LOG_PATH"
	EnvTheme     = "MANAVAULT_THEME"
	EnvDebug     = "MANAVAULT_DEBUG"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:          defaultAPIURL,
		CachePath:       mustExpand(defaultCachePath),
		LogPath:         mustExpand(defaultLogPath),
		RequestTimeout:  defaultRequestTimeout,
		RefreshInterval: defaultRefreshInterval,
		Theme:           defaultTheme,
	}
}

// Load parses the config file, falling back to defaults when it is missing,
// then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		applyEnv(&cfg)
		return cfg, nil
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIURL          string `toml:"api_url"`
		CachePath       string `toml:"cache_path"`
		LogPath         string `toml:"log_path"`
		RequestTimeout  int    `toml:"request_timeout_seconds"`
		RefreshInterval int    `toml:"refresh_interval_seconds"`
		Theme           string `toml:"theme"`
		Debug           bool   `toml:"debug"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(raw.CachePath); v != "" {
		cfg.CachePath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogPath); v != "" {
		cfg.LogPath = mustExpand(v)
	}
	if raw.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeout) * time.Second
	}
	if raw.RefreshInterval > 0 {
		cfg.RefreshInterval = time.Duration(raw.RefreshInterval) * time.Second
	}
	if v := strings.TrimSpace(raw.Theme); v != "" {
		cfg.Theme = v
	}
	cfg.Debug = raw.Debug

	applyEnv(&cfg)
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCachePath)); v != "" {
		cfg.CachePath = mustExpand(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogPath)); v != "" {
		cfg.LogPath = mustExpand(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTheme)); v != "" {
		cfg.Theme = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebug)); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if trimmed == ":memory:" {
		return trimmed, nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
