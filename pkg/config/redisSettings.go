package config

import "time"

// RedisSettings holds configuration for the backing key-value store.
// An empty Addr means no store is configured; every component that depends
// on Redis degrades to a no-op in that case.
type RedisSettings struct {
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}
