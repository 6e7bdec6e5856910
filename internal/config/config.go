// Package config holds the sheetsync configuration: Composio
// credentials, spreadsheet naming, local file locations and watch-mode
// tuning. Values come from defaults, an optional YAML file and the
// environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingAPIKey means no Composio API key was found. Every
	// remote operation needs one.
	ErrMissingAPIKey = errors.New("composio api key is not set")

	// ErrMissingAuthConfig means no auth config id was found. Only
	// starting a new OAuth flow needs one; status checks and syncs
	// against an already connected account work without it.
	ErrMissingAuthConfig = errors.New("auth config id is not set")
)

// Config is the full sheetsync configuration.
type Config struct {
	// Composio access.
	APIKey       string `mapstructure:"api_key"`
	UserID       string `mapstructure:"user_id"`
	AuthConfigID string `mapstructure:"auth_config_id"`

	// BaseURL overrides the Composio API endpoint. Empty uses the
	// client default.
	BaseURL string `mapstructure:"base_url"`

	// Toolkit is the Composio toolkit slug the sync authorizes
	// against.
	Toolkit string `mapstructure:"toolkit"`

	// Spreadsheet naming.
	SpreadsheetTitle string `mapstructure:"spreadsheet_title"`
	SheetTitle       string `mapstructure:"sheet_title"`

	// Local files. HandleFile and HistoryDB default to paths under
	// DataDir when empty; use HandlePath and HistoryPath.
	CanvasFile string `mapstructure:"canvas_file"`
	HandleFile string `mapstructure:"handle_file"`
	HistoryDB  string `mapstructure:"history_db"`
	LogFile    string `mapstructure:"log_file"`

	DashboardPort int `mapstructure:"dashboard_port"`

	Watch WatchConfig `mapstructure:"watch"`

	// Path is the config file these values were loaded from, empty
	// when running on defaults and environment only.
	Path string `mapstructure:"-"`
}

// WatchConfig tunes the auto-sync daemon.
type WatchConfig struct {
	// Debounce is how long the canvas file must stay quiet after a
	// change before syncing.
	Debounce time.Duration `mapstructure:"debounce"`

	// Interval is the periodic full resync interval.
	Interval time.Duration `mapstructure:"interval"`

	// Poll switches from fsnotify to stat polling, for filesystems
	// without change notification (network mounts, some containers).
	Poll         bool          `mapstructure:"poll"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		UserID:           "default",
		Toolkit:          "googlesheets",
		SpreadsheetTitle: "Canvas Data",
		SheetTitle:       "Canvas Items",
		CanvasFile:       "canvas.json",
		DashboardPort:    8080,
		Watch: WatchConfig{
			Debounce:     2 * time.Second,
			Interval:     5 * time.Minute,
			PollInterval: 2 * time.Second,
		},
	}
}

// Validate checks the fields every remote operation needs. A missing
// auth config id is not an error here; see ValidateForConnect.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w (set COMPOSIO_API_KEY or api_key in the config file)", ErrMissingAPIKey)
	}
	if c.DashboardPort < 0 || c.DashboardPort > 65535 {
		return fmt.Errorf("dashboard_port %d is out of range", c.DashboardPort)
	}
	return nil
}

// ValidateForConnect checks the fields needed to start an OAuth flow.
func (c *Config) ValidateForConnect() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AuthConfigID == "" {
		return fmt.Errorf("%w (set COMPOSIO_GOOGLESHEETS_AUTH_CONFIG_ID or auth_config_id in the config file)", ErrMissingAuthConfig)
	}
	return nil
}

// DataDir returns the directory for sheetsync state files (spreadsheet
// handle, sync history), ~/.sheetsync by default.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sheetsync"
	}
	return filepath.Join(home, ".sheetsync")
}

// HandlePath returns the spreadsheet handle file, defaulting to
// handle.json under DataDir.
func (c *Config) HandlePath() string {
	if c.HandleFile != "" {
		return c.HandleFile
	}
	return filepath.Join(DataDir(), "handle.json")
}

// HistoryPath returns the sync history database, defaulting to
// history.db under DataDir.
func (c *Config) HistoryPath() string {
	if c.HistoryDB != "" {
		return c.HistoryDB
	}
	return filepath.Join(DataDir(), "history.db")
}

// fileConfig is the YAML shape of the config file. Durations are
// human strings ("2s", "5m") rather than nanosecond integers.
type fileConfig struct {
	APIKey           string    `yaml:"api_key"`
	UserID           string    `yaml:"user_id"`
	AuthConfigID     string    `yaml:"auth_config_id"`
	BaseURL          string    `yaml:"base_url,omitempty"`
	Toolkit          string    `yaml:"toolkit"`
	SpreadsheetTitle string    `yaml:"spreadsheet_title"`
	SheetTitle       string    `yaml:"sheet_title"`
	CanvasFile       string    `yaml:"canvas_file"`
	HandleFile       string    `yaml:"handle_file,omitempty"`
	HistoryDB        string    `yaml:"history_db,omitempty"`
	LogFile          string    `yaml:"log_file,omitempty"`
	DashboardPort    int       `yaml:"dashboard_port"`
	Watch            fileWatch `yaml:"watch"`
}

type fileWatch struct {
	Debounce     string `yaml:"debounce"`
	Interval     string `yaml:"interval"`
	Poll         bool   `yaml:"poll"`
	PollInterval string `yaml:"poll_interval"`
}

const fileHeader = `# sheetsync configuration
#
# Credentials can also come from the environment and override this
# file: COMPOSIO_API_KEY, COMPOSIO_USER_ID,
# COMPOSIO_GOOGLESHEETS_AUTH_CONFIG_ID, and SHEETSYNC_* for
# everything else (SHEETSYNC_CANVAS_FILE, SHEETSYNC_WATCH_DEBOUNCE, ...).

`

// Write renders the configuration as a commented YAML file, creating
// parent directories as needed. The file can hold the API key, so it
// is written owner-only.
func (c *Config) Write(path string) error {
	fc := fileConfig{
		APIKey:           c.APIKey,
		UserID:           c.UserID,
		AuthConfigID:     c.AuthConfigID,
		BaseURL:          c.BaseURL,
		Toolkit:          c.Toolkit,
		SpreadsheetTitle: c.SpreadsheetTitle,
		SheetTitle:       c.SheetTitle,
		CanvasFile:       c.CanvasFile,
		HandleFile:       c.HandleFile,
		HistoryDB:        c.HistoryDB,
		LogFile:          c.LogFile,
		DashboardPort:    c.DashboardPort,
		Watch: fileWatch{
			Debounce:     c.Watch.Debounce.String(),
			Interval:     c.Watch.Interval.String(),
			Poll:         c.Watch.Poll,
			PollInterval: c.Watch.PollInterval.String(),
		},
	}

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append([]byte(fileHeader), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
