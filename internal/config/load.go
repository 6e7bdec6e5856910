package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration with precedence defaults, then YAML file,
// then environment.
//
// An empty path searches ~/.config/sheetsync/config.yaml and then
// ./sheetsync.yaml; running without any config file is fine and uses
// defaults plus environment. An explicit path that cannot be read is
// an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = findConfigFile()
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()
	return cfg, nil
}

// findConfigFile returns the first config file that exists in the
// default search order, or empty.
func findConfigFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		p := filepath.Join(dir, "sheetsync", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if _, err := os.Stat("sheetsync.yaml"); err == nil {
		return "sheetsync.yaml"
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("api_key", def.APIKey)
	v.SetDefault("user_id", def.UserID)
	v.SetDefault("auth_config_id", def.AuthConfigID)
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("toolkit", def.Toolkit)
	v.SetDefault("spreadsheet_title", def.SpreadsheetTitle)
	v.SetDefault("sheet_title", def.SheetTitle)
	v.SetDefault("canvas_file", def.CanvasFile)
	v.SetDefault("handle_file", def.HandleFile)
	v.SetDefault("history_db", def.HistoryDB)
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("dashboard_port", def.DashboardPort)
	v.SetDefault("watch.debounce", def.Watch.Debounce)
	v.SetDefault("watch.interval", def.Watch.Interval)
	v.SetDefault("watch.poll", def.Watch.Poll)
	v.SetDefault("watch.poll_interval", def.Watch.PollInterval)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("SHEETSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The Composio credentials keep their deployment-wide names and
	// take precedence over the prefixed forms.
	_ = v.BindEnv("api_key", "COMPOSIO_API_KEY", "SHEETSYNC_API_KEY")
	_ = v.BindEnv("user_id", "COMPOSIO_USER_ID", "SHEETSYNC_USER_ID")
	_ = v.BindEnv("auth_config_id", "COMPOSIO_GOOGLESHEETS_AUTH_CONFIG_ID", "SHEETSYNC_AUTH_CONFIG_ID")
}
