package sharedserver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigEnvPrefix is the prefix viper binds environment variables under,
// so SHAREDSERVER_GRACE_PERIOD overrides the "grace-period" key, etc.
const ConfigEnvPrefix = "SHAREDSERVER"

// configFileName is the optional YAML config file name, searched for in
// $XDG_CONFIG_HOME/sharedserver and the current directory.
const configFileName = "sharedserver.yaml"

// Config holds the values LoadConfig resolves: flags win over the
// environment and the config file, which win over these compiled-in zero
// values. The CLI applies only LockDir; GracePeriod, ShutdownSignal and
// LogFile are resolved but no command uses them as defaults.
type Config struct {
	LockDir        string
	GracePeriod    string
	ShutdownSignal string
	LogFile        string
}

// LoadConfig initializes viper's search path and environment binding, then
// binds the given flag set so that flags > env > config file > defaults.
func LoadConfig(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(ConfigEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(strings.TrimSuffix(configFileName, ".yaml"))
	v.SetConfigType("yaml")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "sharedserver"))
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "sharedserver"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, err
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		LockDir:        v.GetString("lockdir"),
		GracePeriod:    v.GetString("grace-period"),
		ShutdownSignal: v.GetString("shutdown-signal"),
		LogFile:        v.GetString("log-file"),
	}
	if cfg.LockDir == "" {
		cfg.LockDir = LockDir()
	}
	return cfg, nil
}
