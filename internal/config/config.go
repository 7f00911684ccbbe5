package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Generation Generation `yaml:"generation"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Region     string     `yaml:"region"`
	Logging    Logging    `yaml:"logging"`
}

type Generation struct {
	Provider            string  `yaml:"provider"`
	Model               string  `yaml:"model"`
	BaseURL             string  `yaml:"base_url"`
	APIKeyEnv           string  `yaml:"api_key_env"`
	OllamaURL           string  `yaml:"ollama_url"`
	MaxTokens           int     `yaml:"max_tokens"`
	BatchTemperature    float64 `yaml:"batch_temperature"`
	OverrideTemperature float64 `yaml:"override_temperature"`
	Workers             int     `yaml:"workers"`
	RequestsPerSecond   float64 `yaml:"requests_per_second"`
	TimeoutSeconds      int     `yaml:"timeout_seconds"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for headlinestudio.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "headlinestudio")
}

// DataDir returns the XDG data directory for headlinestudio.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "headlinestudio")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/headlinestudio/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'headlinestudio init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Generation: Generation{
			Provider:            "openai",
			Model:               "gpt-4.1",
			BaseURL:             "https://api.openai.com/v1",
			APIKeyEnv:           "OPENAI_API_KEY",
			OllamaURL:           "http://localhost:11434",
			MaxTokens:           300,
			BatchTemperature:    0.7,
			OverrideTemperature: 0.8,
			Workers:             3,
			RequestsPerSecond:   2,
			TimeoutSeconds:      60,
		},
		Server:  Server{Port: 8000},
		Region:  "US",
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Region = strings.ToUpper(strings.TrimSpace(cfg.Region))
	if cfg.Region != "US" && cfg.Region != "DE" {
		return nil, fmt.Errorf("unsupported region %q (want US or DE)", cfg.Region)
	}
	if cfg.Generation.Workers < 1 {
		cfg.Generation.Workers = 1
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// Timeout returns the per-request timeout for the text-generation endpoint.
func (g Generation) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
