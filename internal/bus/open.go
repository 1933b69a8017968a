package bus

import (
	"context"
	"fmt"

	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/internal/logger"
)

// Open builds the bus selected by cfg.Backend. A Redis bus is pinged before
// it is returned.
func Open(ctx context.Context, cfg config.BusConfig, log logger.Logger) (Bus, error) {
	log = logger.OrDefault(log)
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemory(WithMemoryLogger(log)), nil
	case config.BackendRedis:
		r := NewRedis(cfg.Redis, log)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, err
		}
		return r, nil
	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown bus backend '%s'", cfg.Backend),
			"Use 'memory' or 'redis'")
	}
}
