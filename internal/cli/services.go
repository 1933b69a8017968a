package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/portctl/internal/bus"
	"github.com/rileyhilliard/portctl/internal/ui"
)

var servicesJSONFlag bool

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List services registered on the bus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		b, err := openBus(ctx, cfg)
		if err != nil {
			return err
		}
		defer b.Close()
		return listServices(ctx, cmd.OutOrStdout(), b, servicesJSONFlag)
	},
}

func init() {
	servicesCmd.Flags().BoolVar(&servicesJSONFlag, "json", false, "output JSON")
	rootCmd.AddCommand(servicesCmd)
}

func listServices(ctx context.Context, w io.Writer, b bus.Bus, asJSON bool) error {
	infos, err := describeServices(ctx, b)
	if err != nil {
		if asJSON {
			return WriteJSONFromError(w, err)
		}
		return err
	}

	if asJSON {
		return WriteJSONSuccess(w, map[string]any{"services": infos})
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, "No services registered")
		return nil
	}
	rows := make([][]string, len(infos))
	for i, s := range infos {
		state := "-"
		if s.Port != "" {
			state = ui.ConnectionSymbol(s.Connected) + " " + s.Port
		}
		rows[i] = []string{s.Name, s.Type, state}
	}
	fmt.Fprintln(w, ui.RenderTable([]string{"NAME", "TYPE", "PORT"}, rows))
	return nil
}
