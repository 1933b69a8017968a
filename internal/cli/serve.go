package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/logger"
	"github.com/rileyhilliard/portctl/internal/portsvc"
	"github.com/rileyhilliard/portctl/internal/ui"
	"github.com/rileyhilliard/portctl/internal/util"
)

var serveCmd = &cobra.Command{
	Use:   "serve [service...]",
	Short: "Run serial services on the bus",
	Long: `Register one or more serial services on the bus and answer their
connect, disconnect, refresh and getPortNames requests until interrupted.

The services never open a device: they enumerate ports, validate connect
parameters and track which port is connected.

Examples:
  portctl serve --redis-addr localhost:6379
  portctl serve serial gps --bus redis`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		names := args
		if len(names) == 0 {
			names = []string{cfg.Service}
		}
		return runServe(cmd.Context(), cfg, names)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, cfg *config.Config, names []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Bus.Backend == config.BackendMemory {
		fmt.Fprintln(os.Stderr, "warning: memory bus selected, services are only visible inside this process")
	}

	b, err := openBus(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		svc := portsvc.New(name, b,
			portsvc.WithDefaults(cfg.Serial),
			portsvc.WithStatsInterval(cfg.PortSvc.StatsInterval),
			portsvc.WithLogger(logger.NewEnvLogger("[portsvc "+name+"]")),
		)
		g.Go(func() error { return svc.Run(gctx) })
	}

	fmt.Printf("%s serving %s (Ctrl+C to stop)\n", ui.SymbolSuccess, util.JoinOrNone(names))
	return g.Wait()
}
