// Package config loads the dashboard configuration. JSON files (the historical
// config.json) and YAML files share one schema.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is the config file looked up when none is named explicitly.
	DefaultPath = "config.json"
	// DefaultStateFilePath is where the tracker writes its snapshot.
	DefaultStateFilePath = "../shared/state.json"

	defaultRefreshMS     = 500
	minRefreshMS         = 50
	defaultChatLines     = 50
	defaultLootLines     = 10
	defaultTargetFPS     = 30
	defaultLogDir        = "logs"
	defaultRetentionDays = 7
	defaultRecorderPath  = "data/sessions.db"
	defaultRecorderQueue = 256
	defaultBindAddress   = "127.0.0.1"
)

// UI modes.
const (
	ModeAuto     = "auto"
	ModeTview    = "tview"
	ModeHeadless = "headless"
)

// Config represents the complete dashboard configuration.
type Config struct {
	StateFilePath string `yaml:"state_file_path,omitempty" json:"state_file_path,omitempty"`
	// LegacyStateFilePath is the pre-snake_case spelling still found in old
	// config.json files. state_file_path wins when both are set.
	LegacyStateFilePath string `yaml:"StateFilePath,omitempty" json:"StateFilePath,omitempty"`

	UI       UIConfig       `yaml:"ui" json:"ui"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Recorder RecorderConfig `yaml:"recorder" json:"recorder"`
	Admin    AdminConfig    `yaml:"admin" json:"admin"`

	LoadedFrom string `yaml:"-" json:"-"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	Mode         string `yaml:"mode" json:"mode"`
	RefreshMS    int    `yaml:"refresh_ms" json:"refresh_ms"`
	SelfName     string `yaml:"self_name" json:"self_name"`
	ChatLines    int    `yaml:"chat_lines" json:"chat_lines"`
	LootLines    int    `yaml:"loot_lines" json:"loot_lines"`
	Progress     string `yaml:"progress" json:"progress"`
	CollapseLoot *bool  `yaml:"collapse_loot,omitempty" json:"collapse_loot,omitempty"`
	CollapseChat bool   `yaml:"collapse_chat" json:"collapse_chat"`
	TargetFPS    int    `yaml:"target_fps" json:"target_fps"`
	EnableMouse  bool   `yaml:"enable_mouse" json:"enable_mouse"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	Dir           string `yaml:"dir" json:"dir"`
	RetentionDays int    `yaml:"retention_days" json:"retention_days"`
}

// RecorderConfig controls the SQLite session recorder.
type RecorderConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Path      string `yaml:"path" json:"path"`
	QueueSize int    `yaml:"queue_size" json:"queue_size"`
}

// AdminConfig contains admin interface settings. The server is off while
// HTTPPort is zero.
type AdminConfig struct {
	HTTPPort    int    `yaml:"http_port" json:"http_port"`
	BindAddress string `yaml:"bind_address" json:"bind_address"`
}

// Default returns a normalized configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Normalize()
	return cfg
}

// Load loads configuration from a JSON or YAML file. A missing file is
// reported as an error wrapping fs.ErrNotExist so callers can decide whether
// absence is acceptable.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	cfg.LoadedFrom = filename
	return &cfg, nil
}

// Normalize fills defaults and validates values.
func (c *Config) Normalize() error {
	c.StateFilePath = strings.TrimSpace(c.StateFilePath)
	c.LegacyStateFilePath = strings.TrimSpace(c.LegacyStateFilePath)

	c.UI.Mode = strings.ToLower(strings.TrimSpace(c.UI.Mode))
	switch c.UI.Mode {
	case "":
		c.UI.Mode = ModeAuto
	case ModeAuto, ModeTview, ModeHeadless:
	default:
		return fmt.Errorf("ui.mode %q not recognized (want auto, tview or headless)", c.UI.Mode)
	}
	if c.UI.RefreshMS == 0 {
		c.UI.RefreshMS = defaultRefreshMS
	}
	if c.UI.RefreshMS < minRefreshMS {
		return fmt.Errorf("ui.refresh_ms must be >= %d, got %d", minRefreshMS, c.UI.RefreshMS)
	}
	c.UI.SelfName = strings.TrimSpace(c.UI.SelfName)
	if c.UI.ChatLines <= 0 {
		c.UI.ChatLines = defaultChatLines
	}
	if c.UI.LootLines <= 0 {
		c.UI.LootLines = defaultLootLines
	}
	c.UI.Progress = strings.ToLower(strings.TrimSpace(c.UI.Progress))
	switch c.UI.Progress {
	case "":
		c.UI.Progress = "thousands"
	case "thousands", "hundred":
	default:
		return fmt.Errorf("ui.progress %q not recognized (want thousands or hundred)", c.UI.Progress)
	}
	if c.UI.CollapseLoot == nil {
		enabled := true
		c.UI.CollapseLoot = &enabled
	}
	if c.UI.TargetFPS <= 0 {
		c.UI.TargetFPS = defaultTargetFPS
	}

	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = defaultLogDir
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultRetentionDays
	}

	if strings.TrimSpace(c.Recorder.Path) == "" {
		c.Recorder.Path = defaultRecorderPath
	}
	if c.Recorder.QueueSize <= 0 {
		c.Recorder.QueueSize = defaultRecorderQueue
	}

	if c.Admin.HTTPPort < 0 || c.Admin.HTTPPort > 65535 {
		return errors.New("admin.http_port must be between 0 and 65535")
	}
	if strings.TrimSpace(c.Admin.BindAddress) == "" {
		c.Admin.BindAddress = defaultBindAddress
	}
	return nil
}

// StatePath resolves the snapshot location: state_file_path, then the legacy
// StateFilePath key, then the default.
func (c *Config) StatePath() string {
	if c == nil {
		return DefaultStateFilePath
	}
	if c.StateFilePath != "" {
		return c.StateFilePath
	}
	if c.LegacyStateFilePath != "" {
		return c.LegacyStateFilePath
	}
	return DefaultStateFilePath
}

// RefreshInterval returns the polling interval.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.UI.RefreshMS) * time.Millisecond
}

// CollapseLootEnabled reports whether repeated loot lines are merged.
func (c *Config) CollapseLootEnabled() bool {
	return c.UI.CollapseLoot == nil || *c.UI.CollapseLoot
}

// AdminAddr returns the admin listen address, or "" when disabled.
func (c *Config) AdminAddr() string {
	if c.Admin.HTTPPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Admin.BindAddress, c.Admin.HTTPPort)
}

// Print displays the configuration.
func (c *Config) Print() {
	source := c.LoadedFrom
	if source == "" {
		source = "built-in defaults"
	}
	fmt.Printf("Config: %s\n", source)
	fmt.Printf("State file: %s (poll every %dms)\n", c.StatePath(), c.UI.RefreshMS)
	fmt.Printf("UI: mode=%s chat=%d loot=%d progress=%s\n", c.UI.Mode, c.UI.ChatLines, c.UI.LootLines, c.UI.Progress)
	if c.UI.SelfName != "" {
		fmt.Printf("Self: %s\n", c.UI.SelfName)
	}
	if c.Logging.Enabled {
		fmt.Printf("Logging: %s (keep %d days)\n", c.Logging.Dir, c.Logging.RetentionDays)
	}
	if c.Recorder.Enabled {
		fmt.Printf("Recorder: %s\n", c.Recorder.Path)
	}
	if addr := c.AdminAddr(); addr != "" {
		fmt.Printf("Admin: http://%s\n", addr)
	}
}

// YAML renders the effective configuration with the state path resolved.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	out.StateFilePath = c.StatePath()
	out.LegacyStateFilePath = ""
	return yaml.Marshal(&out)
}
