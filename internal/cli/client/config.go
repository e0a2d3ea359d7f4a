package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// GlobalConfig is the per-user client configuration stored in config.json.
type GlobalConfig struct {
	APIURL      string `json:"api_url,omitempty"`
	ShowSources bool   `json:"show_sources,omitempty"`
}

// configSetters maps the keys accepted by "askdocs config set" onto
// GlobalConfig fields.
var configSetters = map[string]func(*GlobalConfig, string) error{
	"api_url": func(c *GlobalConfig, v string) error {
		if _, err := NewAPIClientWithConfig(v); err != nil {
			return err
		}
		c.APIURL = v
		return nil
	},
	"show_sources": func(c *GlobalConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("show_sources must be true or false, got %q", v)
		}
		c.ShowSources = b
		return nil
	},
}

// ConfigKeys lists the settable keys in sorted order.
func ConfigKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var getConfigPathFunc = defaultGetConfigPath

func defaultGetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "askdocs", "config.json"), nil
}

// GetConfigDir returns the directory holding config.json.
func GetConfigDir() (string, error) {
	path, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

// GetConfigPath returns the full path to config.json.
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads config.json. A missing file yields a nil config and
// no error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// SaveGlobalConfig replaces config.json. The file is written next to its
// final path and renamed into place, so readers never see a partial file.
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(configPath), ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	// CreateTemp already uses 0600
	if err := os.Rename(tmp.Name(), configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SetGlobalConfigValue validates value for key and stores it, keeping every
// other setting. It returns the path written.
func SetGlobalConfigValue(key, value string) (string, error) {
	set, ok := configSetters[key]
	if !ok {
		return "", fmt.Errorf("unknown config key %q (valid keys: %v)", key, ConfigKeys())
	}

	config, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if config == nil {
		config = &GlobalConfig{}
	}
	if err := set(config, value); err != nil {
		return "", err
	}
	if err := SaveGlobalConfig(config); err != nil {
		return "", err
	}
	return GetConfigPath()
}

// ConfigSource names where the API URL came from.
type ConfigSource string

const (
	SourceFlag         ConfigSource = "flag"
	SourceEnv          ConfigSource = "env"
	SourceGlobalConfig ConfigSource = "global_config"
	SourceDefault      ConfigSource = "default"
)

// ResolveAPIURL applies the flag → env → global config → default cascade and
// reports which level won.
func ResolveAPIURL(flagURL string) (ConfigSource, string) {
	if flagURL != "" {
		return SourceFlag, flagURL
	}
	if envURL := os.Getenv(envAPIURL); envURL != "" {
		return SourceEnv, envURL
	}
	config, err := LoadGlobalConfig()
	if err == nil && config != nil && config.APIURL != "" {
		return SourceGlobalConfig, config.APIURL
	}
	return SourceDefault, defaultAPIURL
}
