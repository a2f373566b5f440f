// Package config loads heapstore's CLI configuration from environment
// variables and an optional .env file, the way bunbase's own pkg/config
// does for its services. The core library (pkg/buffer, pkg/heap,
// pkg/access) never reads configuration itself — every value here is only
// ever used to fill in constructor parameters for cmd/heapstore.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the values cmd/heapstore's subcommands need but don't take
// as explicit flags.
type Config struct {
	PoolSize int    `mapstructure:"poolsize"`
	DataDir  string `mapstructure:"datadir"`
}

// Default returns the configuration used when neither a .env file nor an
// environment variable overrides a field.
func Default() Config {
	return Config{
		PoolSize: 32,
		DataDir:  ".",
	}
}

// Load reads HEAPSTORE_-prefixed environment variables (and an optional
// .env file in the working directory) over Default, following the same
// env-into-viper pattern as bunbase's pkg/config.Load.
func Load() (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(".env")
	_ = v.ReadInConfig() // optional; absence is not an error

	const prefix = "HEAPSTORE_"
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		key, value := pair[0], pair[1]
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		propKey := strings.ToLower(strings.TrimPrefix(key, prefix))
		v.Set(propKey, value)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	return cfg, nil
}
