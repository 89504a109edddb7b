package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "bestway-spa"
	configFile = "config.yaml"
)

// Environment variables that override credentials from the file
const (
	EnvAppID          = "BESTWAY_APPID"
	EnvAppSecret      = "BESTWAY_APPSECRET"
	EnvDeviceID       = "BESTWAY_DEVICE_ID"
	EnvProductID      = "BESTWAY_PRODUCT_ID"
	EnvRegistrationID = "BESTWAY_REGISTRATION_ID"
	EnvVisitorID      = "BESTWAY_VISITOR_ID"
	EnvClientID       = "BESTWAY_CLIENT_ID"
	EnvBaseURL        = "BESTWAY_BASE_URL"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/bestway-spa or $HOME/.config/bestway-spa
//   - macOS: $HOME/.config/bestway-spa
//   - Windows: %LOCALAPPDATA%\bestway-spa
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return GetConfigPath()
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads the config at path (the default path when empty), fills
// defaults and applies environment overrides. A missing file is not an
// error; the defaults are returned instead.
func Load(path string) (*Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	cfg, err := loadFile(resolved)
	if err != nil {
		return nil, err
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)

	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadDotEnv loads variables from the given .env files (".env" when none
// are given) without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides credentials and the base URL from the environment.
// lookup is normally os.LookupEnv. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		name   string
		target *string
	}{
		{EnvAppID, &c.Credentials.AppID},
		{EnvAppSecret, &c.Credentials.AppSecret},
		{EnvDeviceID, &c.Credentials.DeviceID},
		{EnvProductID, &c.Credentials.ProductID},
		{EnvRegistrationID, &c.Credentials.RegistrationID},
		{EnvVisitorID, &c.Credentials.VisitorID},
		{EnvClientID, &c.Credentials.ClientID},
		{EnvBaseURL, &c.API.BaseURL},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.name); ok && strings.TrimSpace(v) != "" {
			*o.target = strings.TrimSpace(v)
		}
	}
}

// Save writes the config to path (the default path when empty).
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	// User-only permissions; the file holds the app secret
	if err := os.MkdirAll(filepath.Dir(resolved), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(resolved) {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Bestway Spa Configuration File
#
# Security Note: this file contains the app secret used to sign API
# requests. Keep it readable by your user only.
#
# Location: ` + resolved + `

`)
	data = append(header, data...)

	tmpPath := resolved + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, resolved); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
