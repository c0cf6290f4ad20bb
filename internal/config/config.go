package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Board    BoardConfig    `mapstructure:"board"`
	SelfTest SelfTestConfig `mapstructure:"selftest"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type BoardConfig struct {
	Profile     string   `mapstructure:"profile"`
	SearchPaths []string `mapstructure:"search_paths"`
}

type SelfTestConfig struct {
	Dwell            time.Duration `mapstructure:"dwell"`
	RandomIterations int           `mapstructure:"random_iterations"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
}

// Load reads the configuration file at path, falling back to the defaults
// for every unset key. An empty path means defaults and environment only;
// environment variables use the TRAINCTL_ prefix.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("board.profile", "default")
	v.SetDefault("board.search_paths", []string{"/etc/trainctl/profiles", "./profiles"})
	v.SetDefault("selftest.dwell", "250ms")
	v.SetDefault("selftest.random_iterations", 200)
	v.SetDefault("selftest.poll_interval", "100ms")

	// Nested keys map onto underscores, e.g. TRAINCTL_SERVER_PORT.
	v.SetEnvPrefix("TRAINCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
