// Package config holds the named configuration for a dashboard
// session, loaded from ~/.config/soilmon/config.json with defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds user-configurable session settings.
type Config struct {
	LookbackDays   int    `json:"lookback_days"`
	WindowCapacity int    `json:"window_capacity"`
	AlertDwellMS   int    `json:"alert_dwell_ms"`
	HistoryURL     string `json:"history_url"`
	Broker         string `json:"broker"`
	Topic          string `json:"topic"`
	ClientID       string `json:"client_id"`
	ExportBase     string `json:"export_base"`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		LookbackDays:   7,
		WindowCapacity: 100,
		AlertDwellMS:   5000,
		HistoryURL:     "http://127.0.0.1:8042",
		Broker:         "tcp://127.0.0.1:1883",
		Topic:          "soil/readings",
		ClientID:       "soilmon",
		ExportBase:     "soil_data",
	}
}

// Lookback returns the historical query span.
func (c Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

// AlertDwell returns how long alerts stay active absent supersession.
func (c Config) AlertDwell() time.Duration {
	return time.Duration(c.AlertDwellMS) * time.Millisecond
}

// Path returns ~/.config/soilmon/config.json (or XDG_CONFIG_HOME).
// Returns empty string if the home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "soilmon", "config.json")
}

// Load reads the config file over the defaults. A missing file is not
// an error; a malformed one returns the defaults plus the parse error
// so the caller can warn and continue.
func Load() (Config, error) {
	cfg := Default()
	p := Path()
	if p == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", p, err)
	}
	return cfg, nil
}
