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

// EnvPrefix is prepended to every environment override, e.g.
// SESSIONCTL_AWS_DEFAULT_REGION.
const EnvPrefix = "SESSIONCTL"

type Config struct {
	Workspace struct {
		Path       string `mapstructure:"path"`
		AutoCreate bool   `mapstructure:"auto_create"`
	} `mapstructure:"workspace"`

	AWS struct {
		CredentialsFile    string        `mapstructure:"credentials_file"`
		SSOCacheDir        string        `mapstructure:"sso_cache_dir"`
		DefaultRegion      string        `mapstructure:"default_region"`
		SessionDuration    time.Duration `mapstructure:"session_duration"`
		DefaultProfileName string        `mapstructure:"default_profile_name"`
	} `mapstructure:"aws"`

	Azure struct {
		CLIPath string `mapstructure:"cli_path"`
	} `mapstructure:"azure"`

	Retry struct {
		MaxAttempts  int           `mapstructure:"max_attempts"`
		InitialDelay time.Duration `mapstructure:"initial_delay"`
		MaxDelay     time.Duration `mapstructure:"max_delay"`
		Multiplier   float64       `mapstructure:"multiplier"`
	} `mapstructure:"retry"`

	Log struct {
		Level       string `mapstructure:"level"`
		Development bool   `mapstructure:"development"`
	} `mapstructure:"log"`

	Daemon struct {
		Interval     time.Duration `mapstructure:"interval"`
		RotateBefore time.Duration `mapstructure:"rotate_before"`
		MetricsAddr  string        `mapstructure:"metrics_addr"`
	} `mapstructure:"daemon"`
}

// Load reads defaults, then the config file (configFile, or
// ~/.sessionctl/config.yaml when empty), then SESSIONCTL_* environment
// variables. A missing default config file is not an error.
func Load(configFile string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	v := viper.New()
	setDefaults(v, home)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(home, ".sessionctl"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("workspace.path", filepath.Join(home, ".sessionctl", "workspace.enc"))
	v.SetDefault("workspace.auto_create", true)
	v.SetDefault("aws.credentials_file", filepath.Join(home, ".aws", "credentials"))
	v.SetDefault("aws.sso_cache_dir", filepath.Join(home, ".aws", "sso", "cache"))
	v.SetDefault("aws.default_region", "us-east-1")
	v.SetDefault("aws.session_duration", "1h")
	v.SetDefault("aws.default_profile_name", "default")
	v.SetDefault("azure.cli_path", "az")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", "500ms")
	v.SetDefault("retry.max_delay", "5s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.development", false)
	v.SetDefault("daemon.interval", "1m")
	v.SetDefault("daemon.rotate_before", "10m")
	v.SetDefault("daemon.metrics_addr", "")
}

func (c *Config) validate() error {
	if c.Workspace.Path == "" {
		return errors.New("workspace.path must not be empty")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be at least 1, got %g", c.Retry.Multiplier)
	}
	if c.AWS.SessionDuration < 15*time.Minute {
		return fmt.Errorf("aws.session_duration must be at least 15m, got %s", c.AWS.SessionDuration)
	}
	if c.Daemon.Interval <= 0 {
		return errors.New("daemon.interval must be positive")
	}
	return nil
}
