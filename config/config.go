package config

import (
	"fmt"
	"strings"

	"github.com/dot5enko/simple-object-db/manager"
	"github.com/spf13/viper"
)

const EnvPrefix = "SODB"

// Load reads the manager configuration from an optional file and from environment
// variables named <prefix>_<KEY>, e.g. SODB_WORKERS or SODB_LOG_LEVEL. Environment wins
// over the file, the file wins over defaults.
func Load(prefix, path string) (manager.ManagerConfig, error) {

	var config manager.ManagerConfig

	v := viper.New()

	defaults := manager.DefaultConfig()
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("queue_size", defaults.QueueSize)
	v.SetDefault("compress_threshold", defaults.CompressThreshold)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if prefix == "" {
		prefix = EnvPrefix
	}
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Workers <= 0 {
		return config, fmt.Errorf("workers must be positive, got %d", config.Workers)
	}
	if config.QueueSize < 0 {
		return config, fmt.Errorf("queue_size can not be negative, got %d", config.QueueSize)
	}

	return config, nil
}
