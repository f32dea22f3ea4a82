package monitor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the optional monitor configuration file: which presets to
// flag and an interval override.
type Config struct {
	Interval time.Duration `yaml:"interval"`
	Monitors []string      `yaml:"monitors"`
}

// ParseConfigFile reads and validates a YAML monitor config.
func ParseConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read monitor config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse monitor YAML: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid monitor configuration: %w", err)
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if config.Interval > 0 && config.Interval < time.Second {
		return fmt.Errorf("interval %s is below the 1s minimum", config.Interval)
	}
	if len(config.Monitors) == 0 {
		return fmt.Errorf("monitors list is empty")
	}
	for i, id := range config.Monitors {
		if id == "" {
			return fmt.Errorf("monitors[%d]: preset id is required", i)
		}
	}
	return nil
}
