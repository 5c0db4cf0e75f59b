// Package config loads tempo settings through viper.
//
// Precedence, highest first: command-line flags bound by the CLI, TEMPO_*
// environment variables, the project file .tempo/config.yaml (found by
// walking up from the working directory), the user file
// $XDG_CONFIG_HOME/tempo/config.yaml, then built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProjectDirName is the per-project settings and data directory.
const ProjectDirName = ".tempo"

var v *viper.Viper

func init() {
	v = newViper()
}

func newViper() *viper.Viper {
	nv := viper.New()
	nv.SetConfigType("yaml")
	nv.SetEnvPrefix("TEMPO")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	nv.AutomaticEnv()
	setDefaults(nv)
	return nv
}

func setDefaults(nv *viper.Viper) {
	nv.SetDefault("db", "")
	nv.SetDefault("backend", "sqlite")
	nv.SetDefault("json", false)
	nv.SetDefault("actor", "")
	nv.SetDefault("lock-timeout", 30*time.Second)
	nv.SetDefault("event-log", "")
	nv.SetDefault("pager", "")
	nv.SetDefault("no-pager", false)

	nv.SetDefault("week-start", "monday")
	nv.SetDefault("timezone", "")

	nv.SetDefault("focus.promotion-retries", 5)
	nv.SetDefault("focus.retry-max-elapsed", 2*time.Second)
	nv.SetDefault("sweep.interval", time.Minute)

	nv.SetDefault("dolt.host", "127.0.0.1")
	nv.SetDefault("dolt.port", 3307)
	nv.SetDefault("dolt.user", "root")
	nv.SetDefault("dolt.password", "")
	nv.SetDefault("dolt.database", "tempo")
	nv.SetDefault("dolt.auto-commit", false)
}

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = newViper()

	path := findConfigFile()
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return nil
}

// findConfigFile returns the project config if one exists above the working
// directory, else the user config, else "".
func findConfigFile() string {
	if p := os.Getenv("TEMPO_CONFIG"); p != "" {
		return p
	}
	if p, err := findProjectConfigYaml(); err == nil {
		return p
	}
	if p := UserConfigPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// UserConfigPath returns $XDG_CONFIG_HOME/tempo/config.yaml.
func UserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tempo", "config.yaml")
}

// ResetForTesting drops all loaded settings and overrides.
func ResetForTesting() {
	v = newViper()
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func ConfigFileUsed() string {
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	return v.GetDuration(key)
}

// Set sets a configuration value for this process only.
func Set(key string, value interface{}) {
	v.Set(key, value)
}

// IsSet reports whether key has a value from any source other than defaults.
func IsSet(key string) bool {
	return v.InConfig(key) || os.Getenv(envName(key)) != ""
}

// AllSettings returns the merged settings as nested maps.
func AllSettings() map[string]interface{} {
	return v.AllSettings()
}

// AllKeys returns every known key, sorted by viper.
func AllKeys() []string {
	return v.AllKeys()
}

func envName(key string) string {
	return "TEMPO_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}
