package config

import (
	"fmt"

	"github.com/rileyhilliard/portctl/internal/errors"
)

// validParities lists the parity names the serial service accepts.
var validParities = map[string]bool{
	"none":  true,
	"odd":   true,
	"even":  true,
	"mark":  true,
	"space": true,
}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but portctl only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade portctl to read this file")
	}

	if cfg.Service == "" {
		return errors.New(errors.ErrConfig,
			"No service name configured",
			"Set 'service' in .portctl.yaml or pass the name as an argument")
	}

	switch cfg.Bus.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Bus.Redis.Addr == "" {
			return errors.New(errors.ErrConfig,
				"Redis bus selected but bus.redis.addr is empty",
				"Set bus.redis.addr (e.g. localhost:6379) or use --redis-addr")
		}
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown bus backend '%s'", cfg.Bus.Backend),
			"Use 'memory' or 'redis'")
	}

	return ValidateSerial(cfg.Serial)
}

// ValidateSerial checks serial parameters against what a UART can do.
func ValidateSerial(s SerialConfig) error {
	if s.Rate <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Serial rate must be positive, got %d", s.Rate),
			"Common rates: 9600, 57600, 115200")
	}
	if s.DataBits < 5 || s.DataBits > 8 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Data bits must be between 5 and 8, got %d", s.DataBits),
			"Most devices use 8 data bits")
	}
	if s.StopBits != 1 && s.StopBits != 1.5 && s.StopBits != 2 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Stop bits must be 1, 1.5 or 2, got %v", s.StopBits),
			"Most devices use 1 stop bit")
	}
	if !validParities[s.Parity] {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown parity '%s'", s.Parity),
			"Use one of: none, odd, even, mark, space")
	}
	return nil
}
