package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/portctl/internal/bus"
	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/logger"
	"github.com/rileyhilliard/portctl/internal/port"
	"github.com/rileyhilliard/portctl/internal/portsvc"
	"github.com/rileyhilliard/portctl/internal/ui"
	"github.com/rileyhilliard/portctl/pkg/protocol"
)

var (
	widgetPickFlag    bool
	widgetWaitFlag    time.Duration
	widgetLogFileFlag string
)

var widgetCmd = &cobra.Command{
	Use:   "widget [service]",
	Short: "Open the interactive port widget for a serial service",
	Long: `Bind a port widget to a serial service and show it in the terminal.

The widget mirrors the service's connection state and port list. Press enter
to connect to the selected port, r to refresh the list and ? for help.

With the memory bus an embedded serial service is started in-process. With
the redis bus the service must already be running ('portctl serve').

Examples:
  portctl widget
  portctl widget gps --bus redis
  portctl widget --pick --redis-addr localhost:6379`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runWidget(cmd.Context(), cfg, serviceName(args, cfg))
	},
}

func init() {
	widgetCmd.Flags().BoolVar(&widgetPickFlag, "pick", false, "choose the service from those registered on the bus")
	widgetCmd.Flags().DurationVar(&widgetWaitFlag, "wait", 3*time.Second, "how long to wait for the service to register")
	widgetCmd.Flags().StringVar(&widgetLogFileFlag, "log-file", "", "write logs here while the widget is open")
	rootCmd.AddCommand(widgetCmd)
}

func runWidget(ctx context.Context, cfg *config.Config, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBus(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	g, gctx := errgroup.WithContext(ctx)
	svcCtx, stopSvc := context.WithCancel(gctx)
	defer stopSvc()

	if cfg.Bus.Backend == config.BackendMemory {
		svc := portsvc.New(name, b,
			portsvc.WithDefaults(cfg.Serial),
			portsvc.WithStatsInterval(cfg.PortSvc.StatsInterval),
			portsvc.WithLogger(logger.NewEnvLogger("[portsvc]")),
		)
		g.Go(func() error { return svc.Run(svcCtx) })
	}

	if err := waitForService(ctx, b, name, widgetWaitFlag); err != nil && !widgetPickFlag {
		stopSvc()
		_ = g.Wait()
		return err
	}

	if widgetPickFlag {
		picked, err := pickService(ctx, b)
		if err != nil || picked == "" {
			stopSvc()
			_ = g.Wait()
			return err
		}
		name = picked
	}

	bridge := ui.NewBridge()
	w, err := port.New(ctx, name, b, b,
		port.WithOnStateChanged(bridge.StateChanged),
		port.WithLogger(logger.NewEnvLogger("[port]")),
	)
	if err != nil {
		stopSvc()
		_ = g.Wait()
		return err
	}

	viewErr := ui.RunPortView(ctx, w, bridge, ui.RunOptions{
		Serial:  cfg.Serial,
		LogFile: widgetLogFileFlag,
	})

	w.Close()
	stopSvc()
	if err := g.Wait(); err != nil && viewErr == nil {
		return err
	}
	return viewErr
}

// pickService lists the registered services and lets the user choose one.
// An empty name means the user cancelled.
func pickService(ctx context.Context, b bus.Bus) (string, error) {
	infos, err := describeServices(ctx, b)
	if err != nil {
		return "", err
	}
	picked, err := ui.PickService(infos)
	if err != nil {
		return "", err
	}
	if picked == nil {
		fmt.Println("Cancelled.")
		return "", nil
	}
	return picked.Name, nil
}

// describeServices resolves every registered service into picker rows.
// Services whose state is not a serial record are listed by name only.
func describeServices(ctx context.Context, b bus.Bus) ([]ui.ServiceInfo, error) {
	names, err := b.Services(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]ui.ServiceInfo, 0, len(names))
	for _, n := range names {
		info := ui.ServiceInfo{Name: n}
		svc, err := b.Resolve(ctx, n)
		if err == nil && svc.State != nil {
			var st protocol.SerialState
			if bus.Decode(svc.State, &st) == nil {
				d := port.Derive(port.ConnectionFrom(st))
				info.Type = st.Type
				info.Port = d.Port
				info.Connected = d.Connected
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}
