package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
const CurrentConfigVersion = 1

// Bus backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config represents the complete .portctl.yaml configuration file.
type Config struct {
	Version int           `yaml:"version" mapstructure:"version"`
	Service string        `yaml:"service" mapstructure:"service"`
	Bus     BusConfig     `yaml:"bus" mapstructure:"bus"`
	Serial  SerialConfig  `yaml:"serial" mapstructure:"serial"`
	PortSvc PortSvcConfig `yaml:"portsvc" mapstructure:"portsvc"`
}

// BusConfig selects and configures the message bus.
type BusConfig struct {
	// Backend is "memory" (in-process) or "redis".
	Backend string      `yaml:"backend" mapstructure:"backend"`
	Redis   RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds the parameters needed to reach the Redis bus.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	// Prefix namespaces every key and channel the bus uses.
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// SerialConfig holds the serial parameters the widget connects with.
type SerialConfig struct {
	Rate     int     `yaml:"rate" mapstructure:"rate"`
	DataBits int     `yaml:"data_bits" mapstructure:"data_bits"`
	StopBits float64 `yaml:"stop_bits" mapstructure:"stop_bits"`
	Parity   string  `yaml:"parity" mapstructure:"parity"`
}

// PortSvcConfig controls the reference serial service.
type PortSvcConfig struct {
	// StatsInterval is how often publishStats fires.
	StatsInterval time.Duration `yaml:"stats_interval" mapstructure:"stats_interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Service: "serial",
		Bus: BusConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "portctl",
			},
		},
		Serial: SerialConfig{
			Rate:     115200,
			DataBits: 8,
			StopBits: 1,
			Parity:   "none",
		},
		PortSvc: PortSvcConfig{
			StatsInterval: 5 * time.Second,
		},
	}
}
