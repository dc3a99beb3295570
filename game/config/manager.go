package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrConfigNotFound is returned when a named configuration has no file.
var ErrConfigNotFound = errors.New("configuration not found")

// Info describes one available configuration for listings.
type Info struct {
	ConfigID    string `json:"config_id"`
	Filename    string `json:"filename"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Manager handles configuration loading and caching.
type Manager struct {
	configDir     string
	defaultConfig *Config
	configs       map[string]*Config
	mu            sync.RWMutex
}

// NewManager creates a configuration manager rooted at configDir. When the
// directory or its default.json is missing, the compiled-in Default is used,
// so a bare checkout runs without setup.
func NewManager(configDir string) (*Manager, error) {
	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*Config),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}
	return m, nil
}

// loadDefaultConfig loads default.json if present, else falls back to Default().
func (m *Manager) loadDefaultConfig() error {
	cfg, err := m.readConfigFile("default")
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			m.defaultConfig = Default()
			return nil
		}
		return err
	}
	m.defaultConfig = cfg
	m.configs["default"] = cfg
	return nil
}

// GetDefault returns the default configuration.
func (m *Manager) GetDefault() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// LoadConfig loads a configuration by name, consulting the cache first.
func (m *Manager) LoadConfig(name string) (*Config, error) {
	if name == "" {
		return m.GetDefault(), nil
	}

	m.mu.RLock()
	if cfg, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring the write lock.
	if cfg, exists := m.configs[name]; exists {
		return cfg, nil
	}

	cfg, err := m.readConfigFile(name)
	if err != nil {
		return nil, err
	}
	m.configs[name] = cfg
	return cfg, nil
}

// SaveConfig validates and writes a configuration to disk, then caches it.
func (m *Manager) SaveConfig(name string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(m.configDir, configFilename(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.configs[name] = cfg
	if name == "default" {
		m.defaultConfig = cfg
	}
	return nil
}

// ListConfigs returns information about every configuration file on disk. The
// compiled-in default is reported even when the directory is empty.
func (m *Manager) ListConfigs() ([]*Info, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		if os.IsNotExist(err) {
			def := m.GetDefault()
			return []*Info{{ConfigID: "default", Name: def.Name, Description: def.Description}}, nil
		}
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	infos := make([]*Info, 0, len(entries))
	seenDefault := false
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		cfg, err := m.LoadConfig(id)
		if err != nil {
			continue
		}
		if id == "default" {
			seenDefault = true
		}
		infos = append(infos, &Info{
			ConfigID:    id,
			Filename:    entry.Name(),
			Name:        cfg.Name,
			Description: cfg.Description,
		})
	}

	if !seenDefault {
		def := m.GetDefault()
		infos = append(infos, &Info{ConfigID: "default", Name: def.Name, Description: def.Description})
	}
	return infos, nil
}

// readConfigFile reads and validates a single configuration file.
func (m *Manager) readConfigFile(name string) (*Config, error) {
	path := filepath.Join(m.configDir, configFilename(name))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configFilename(name string) string {
	if strings.HasSuffix(name, ".json") {
		return name
	}
	return name + ".json"
}
