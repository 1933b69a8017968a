package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/portctl/internal/portsvc"
	"github.com/rileyhilliard/portctl/internal/ui"
)

var portsJSONFlag bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports on this machine",
	Long: `List the serial ports the serial service would offer on this machine,
with USB vendor and product details where the OS reports them. When the OS
reports no ports, the usual device names for the platform are shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listPorts(cmd.OutOrStdout(), portsvc.SystemLister{}, portsJSONFlag)
	},
}

func init() {
	portsCmd.Flags().BoolVar(&portsJSONFlag, "json", false, "output JSON")
	rootCmd.AddCommand(portsCmd)
}

func listPorts(w io.Writer, lister portsvc.PortLister, asJSON bool) error {
	infos, err := portsvc.Describe(lister)
	if err != nil {
		if asJSON {
			return WriteJSONFromError(w, err)
		}
		return err
	}

	if asJSON {
		return WriteJSONSuccess(w, map[string]any{"ports": infos})
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, "No serial ports found")
		return nil
	}
	rows := make([][]string, len(infos))
	for i, p := range infos {
		usb := "-"
		if p.IsUSB {
			usb = p.VID + ":" + p.PID
		}
		rows[i] = []string{p.Name, usb, p.SerialNumber, p.Product}
	}
	fmt.Fprintln(w, ui.RenderTable([]string{"PORT", "USB", "SERIAL", "PRODUCT"}, rows))
	return nil
}
