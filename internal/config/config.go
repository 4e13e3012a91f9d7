// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads CLI settings from defaults, a yaml file, SFKP_*
// environment variables and command flags, in increasing precedence.
package config // import "github.com/xorq-labs/snowflake-keypair-helper/internal/config"

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	appName   = "snowflake-keypair-helper"
	envPrefix = "sfkp"
)

// Config holds every setting the CLI reads.
type Config struct {
	Prefix    string       `mapstructure:"prefix" yaml:"prefix"`
	EnvPath   string       `mapstructure:"env_path" yaml:"env_path"`
	Database  string       `mapstructure:"database" yaml:"database"`
	Schema    string       `mapstructure:"schema" yaml:"schema"`
	Warehouse string       `mapstructure:"warehouse" yaml:"warehouse"`
	Language  string       `mapstructure:"language" yaml:"language"`
	Debug     bool         `mapstructure:"debug" yaml:"debug"`
	Token     TokenConfig  `mapstructure:"token" yaml:"token"`
	HTTP      HTTPConfig   `mapstructure:"http" yaml:"http"`
	Ledger    LedgerConfig `mapstructure:"ledger" yaml:"ledger"`
}

type TokenConfig struct {
	Lifetime     time.Duration `mapstructure:"lifetime" yaml:"lifetime"`
	RenewalDelay time.Duration `mapstructure:"renewal_delay" yaml:"renewal_delay"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LedgerConfig selects the audit ledger database. An empty Type disables it.
type LedgerConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	DSN  string `mapstructure:"dsn" yaml:"dsn"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"prefix":              "SNOWFLAKE_",
		"env_path":            ".envrc.secrets.snowflake.keypair",
		"database":            "SNOWFLAKE_SAMPLE_DATA",
		"schema":              "TPCH_SF1",
		"warehouse":           "COMPUTE_WH",
		"language":            "en",
		"debug":               false,
		"token.lifetime":      59 * time.Minute,
		"token.renewal_delay": 54 * time.Minute,
		"http.timeout":        30 * time.Second,
		"ledger.type":         "",
		"ledger.dsn":          "",
	}
}

// Validate checks settings that depend on each other.
func (c Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("prefix cannot be empty")
	}
	if c.Token.RenewalDelay > c.Token.Lifetime {
		return fmt.Errorf("token.renewal_delay (%s) must not exceed token.lifetime (%s)", c.Token.RenewalDelay, c.Token.Lifetime)
	}
	switch c.Ledger.Type {
	case "", "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported ledger.type %q", c.Ledger.Type)
	}
	if c.Ledger.Type != "" && c.Ledger.DSN == "" {
		return fmt.Errorf("ledger.dsn is required when ledger.type is set")
	}
	return nil
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), appName)
		default:
			configDir = filepath.Join("/etc", appName)
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, appName)
	}
	return filepath.Join(configDir, appName+".yaml"), nil
}

// LoadConfig layers defaults, the first config file found (explicit path,
// user dir, system dir, cwd), SFKP_* environment variables and the flags of
// cmd. Flag names map to keys with dashes turned into underscores.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	if explicitPath != nil && *explicitPath != "" {
		v.SetConfigFile(*explicitPath)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a broken one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		var bindErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return c, bindErr
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// WriteConfigFile writes c as yaml to the user or system config path and
// returns that path.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}
	// 0600: the ledger DSN may carry a database password.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
