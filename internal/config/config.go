// Package config loads PortScout configuration and builds the logger from it.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables.
// An explicit configPath is used as-is; otherwise portscout.yaml is searched
// for in the working directory, ./configs, and /etc/portscout. A missing
// config file is not an error -- defaults apply.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "portscout.db")
	v.SetDefault("resolve.timeout", "5s")
	v.SetDefault("scan.probe_timeout", "1s")
	v.SetDefault("scan.concurrency", 1000)
	v.SetDefault("scan.max_rate", 0)
	v.SetDefault("scan.ping_first", true)
	v.SetDefault("scan.ping_timeout", "2s")
	v.SetDefault("scan.ping_count", 1)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("portscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/portscout")
	}

	// Environment variable support: PORTSCOUT_SCAN_CONCURRENCY=500
	v.SetEnvPrefix("PORTSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
