// Package config handles loading and saving olv configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/olv/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// UIConfig holds UI preference settings.
type UIConfig struct {
	PreviewRatio float64 `yaml:"preview_ratio,omitempty"` // Preview pane width ratio (0.2-0.8)
	ShowPreview  bool    `yaml:"show_preview,omitempty"`  // Open with the preview pane visible
}

// WatchConfig controls how document changes are detected.
type WatchConfig struct {
	DebounceMs int  `yaml:"debounce_ms,omitempty"` // Quiet period before a refresh (default 200)
	PollMs     int  `yaml:"poll_ms,omitempty"`     // Polling interval for fallback mode (default 2000)
	ForcePoll  bool `yaml:"force_poll,omitempty"`  // Skip fsnotify entirely
}

// Config is the top-level configuration for olv.
type Config struct {
	UI    UIConfig    `yaml:"ui,omitempty"`
	Watch WatchConfig `yaml:"watch,omitempty"`

	// Languages maps file extensions (".rst") to parser language IDs,
	// overriding or extending the built-in detection.
	Languages map[string]string `yaml:"languages,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			PreviewRatio: 0.4,
			ShowPreview:  true,
		},
		Watch: WatchConfig{
			DebounceMs: 200,
			PollMs:     2000,
		},
		Languages: make(map[string]string),
	}
}

// ConfigDir returns the XDG config directory for olv.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "olv")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "olv")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Languages == nil {
		cfg.Languages = make(map[string]string)
	}
	// Normalize extension keys so ".MD" and "md" both work.
	normalized := make(map[string]string, len(cfg.Languages))
	for ext, lang := range cfg.Languages {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[ext] = strings.ToLower(lang)
	}
	cfg.Languages = normalized

	if cfg.UI.PreviewRatio < 0.2 || cfg.UI.PreviewRatio > 0.8 {
		cfg.UI.PreviewRatio = 0.4
	}
	if cfg.Watch.DebounceMs <= 0 {
		cfg.Watch.DebounceMs = 200
	}
	if cfg.Watch.PollMs <= 0 {
		cfg.Watch.PollMs = 2000
	}

	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
