package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultDBFile is the layout database created in the storage path when
// db-path is not set.
const DefaultDBFile = "hbconsole.db"

// Settings are the service's own settings, read from UIX_* environment
// variables, an optional settings file and command line overrides.
type Settings struct {
	ConfigPath     string        `mapstructure:"config-path"`
	StoragePath    string        `mapstructure:"storage-path"`
	DBPath         string        `mapstructure:"db-path"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log-level"`
	PollInterval   time.Duration `mapstructure:"poll-interval"`
	SettleDelay    time.Duration `mapstructure:"settle-delay"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

// LoadSettings resolves the settings. settingsFile may be empty, in which
// case ~/.config/hbconsole/settings.yml is read when present. Non-zero
// overrides win over every other source.
func LoadSettings(settingsFile string, overrides map[string]any) (Settings, error) {
	var s Settings

	home, err := os.UserHomeDir()
	if err != nil {
		return s, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("UIX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("config-path", filepath.Join(home, ".homebridge", "config.json"))
	v.SetDefault("storage-path", "")
	v.SetDefault("db-path", "")
	v.SetDefault("host", "")
	v.SetDefault("port", 0)
	v.SetDefault("log-level", "info")
	v.SetDefault("poll-interval", "3s")
	v.SetDefault("settle-delay", "1500ms")
	v.SetDefault("request-timeout", "10s")

	if settingsFile != "" {
		v.SetConfigFile(settingsFile)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "hbconsole", "settings.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return s, err
		}
	}

	for key, value := range overrides {
		if isZero(value) {
			continue
		}
		v.Set(key, value)
	}

	if err := v.Unmarshal(&s); err != nil {
		return s, err
	}

	s.ConfigPath = expandHome(home, s.ConfigPath)
	s.StoragePath = expandHome(home, s.StoragePath)
	s.DBPath = expandHome(home, s.DBPath)

	if s.StoragePath == "" {
		s.StoragePath = filepath.Dir(s.ConfigPath)
	}
	if s.DBPath == "" {
		s.DBPath = filepath.Join(s.StoragePath, DefaultDBFile)
	}

	return s, nil
}

func expandHome(home, path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[1:])
	}
	return path
}

func isZero(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case int:
		return v == 0
	case time.Duration:
		return v == 0
	}
	return false
}
