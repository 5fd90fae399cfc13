package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	Port             int
	GinMode          string
	Storage          string
	RedisURL         string
	TLSCertFile      string
	TLSKeyFile       string
	LeaderboardLimit int
}

// Load reads configuration from MATHBUBBLE_-prefixed environment variables.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MATHBUBBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 3000)
	v.SetDefault("gin_mode", "release")
	v.SetDefault("storage", StorageMemory)
	v.SetDefault("leaderboard_limit", 50)

	cfg := Config{
		Port:             v.GetInt("port"),
		GinMode:          v.GetString("gin_mode"),
		Storage:          v.GetString("storage"),
		RedisURL:         v.GetString("redis_url"),
		TLSCertFile:      v.GetString("tls_cert_file"),
		TLSKeyFile:       v.GetString("tls_key_file"),
		LeaderboardLimit: v.GetInt("leaderboard_limit"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.Storage != StorageMemory && c.Storage != StorageRedis {
		return fmt.Errorf("invalid storage (must be %q or %q): %q", StorageMemory, StorageRedis, c.Storage)
	}
	if c.Storage == StorageRedis && c.RedisURL == "" {
		return fmt.Errorf("MATHBUBBLE_REDIS_URL is required when storage is %q", StorageRedis)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS cert file and key file must be provided together")
	}
	if c.LeaderboardLimit < 1 {
		return fmt.Errorf("invalid leaderboard limit: %d", c.LeaderboardLimit)
	}
	return nil
}
