package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/portctl/internal/bus"
	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/internal/logger"
	"github.com/rileyhilliard/portctl/internal/ui"
	"github.com/rileyhilliard/portctl/internal/util"
)

// Persistent flags
var (
	cfgFile       string
	busFlag       string
	redisAddrFlag string
	debugFlag     bool
	noColorFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "portctl",
	Short: "Watch and drive serial-port services over a message bus",
	Long: `portctl binds a terminal widget to a serial-port service on a
publish/subscribe bus. The widget mirrors the service's connection state and
port list, and sends connect and refresh requests back to it.

Run 'portctl init' to create a config, 'portctl serve' to start a service and
'portctl widget' to watch it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			_ = os.Setenv(logger.DebugEnv, "1")
		}
		if noColorFlag || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .portctl.yaml, searched upward)")
	pf.StringVar(&busFlag, "bus", "", "bus backend: memory or redis (overrides config)")
	pf.StringVar(&redisAddrFlag, "redis-addr", "", "Redis address for the redis bus (overrides config)")
	pf.BoolVar(&debugFlag, "debug", false, "enable debug logging")
	pf.BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig finds and parses the config file, applies flag overrides and
// validates the result. With no file it uses the defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides folds the persistent flags into cfg. Giving --redis-addr
// alone selects the redis backend.
func applyOverrides(cfg *config.Config) {
	if redisAddrFlag != "" {
		cfg.Bus.Redis.Addr = redisAddrFlag
		if busFlag == "" {
			cfg.Bus.Backend = config.BackendRedis
		}
	}
	if busFlag != "" {
		cfg.Bus.Backend = busFlag
	}
}

// serviceName picks the service from the first argument or the config.
func serviceName(args []string, cfg *config.Config) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.Service
}

// openBus opens the configured bus, showing a spinner while a remote bus
// is reached.
func openBus(ctx context.Context, cfg *config.Config) (bus.Bus, error) {
	log := logger.NewEnvLogger("[bus]")
	if cfg.Bus.Backend != config.BackendRedis {
		return bus.Open(ctx, cfg.Bus, log)
	}

	spinner := ui.NewSpinner("Connecting to Redis at " + cfg.Bus.Redis.Addr)
	spinner.SetOutput(func(s string) { fmt.Fprint(os.Stderr, s) })
	spinner.Start()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	b, err := bus.Open(ctx, cfg.Bus, log)
	if err != nil {
		spinner.Fail()
		return nil, err
	}
	spinner.Success()
	return b, nil
}

// waitForService polls the registry until name resolves or timeout passes.
func waitForService(ctx context.Context, reg bus.Registry, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		_, err := reg.Resolve(ctx, name)
		if err == nil {
			return nil
		}
		if !errors.IsCode(err, errors.ErrServiceNotFound) {
			return err
		}
		select {
		case <-ctx.Done():
			return suggestService(context.Background(), reg, name, err)
		case <-ticker.C:
		}
	}
}

// suggestService adds close registered names to a not-found error when reg
// can list its services.
func suggestService(ctx context.Context, reg bus.Registry, name string, err error) error {
	lister, ok := reg.(interface {
		Services(ctx context.Context) ([]string, error)
	})
	if !ok || !errors.IsCode(err, errors.ErrServiceNotFound) {
		return err
	}
	names, lerr := lister.Services(ctx)
	if lerr != nil {
		return err
	}
	similar := util.SuggestSimilar(name, names, 2)
	if len(similar) == 0 {
		return err
	}
	return errors.New(errors.ErrServiceNotFound,
		fmt.Sprintf("Service '%s' is not registered on the bus", name),
		fmt.Sprintf("Did you mean %s?", util.JoinOrNone(similar)))
}
