package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/portctl/internal/bus"
	"github.com/rileyhilliard/portctl/internal/errors"
)

var callCmd = &cobra.Command{
	Use:   "call <service> <method> [args...]",
	Short: "Send one request to a service",
	Long: `Send a single fire-and-forget request to a service on the bus.

Arguments that parse as JSON scalars (numbers, true, false, null) or JSON
arrays and objects are sent as such; anything else is sent as a string.

Examples:
  portctl call serial connect /dev/ttyUSB0 9600 8 1 none
  portctl call serial disconnect
  portctl call serial refresh`,
	Args: cobra.MinimumNArgs(2),
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

		if err := sendCall(ctx, b, args[0], args[1], parseCallArgs(args[2:])); err != nil {
			return err
		}
		fmt.Printf("sent %s to %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
}

// sendCall checks the service exists before sending, so a typo in the name
// is reported instead of silently dropped.
func sendCall(ctx context.Context, reg bus.Registry, name, method string, args []any) error {
	if _, err := reg.Resolve(ctx, name); err != nil {
		return suggestService(ctx, reg, name, err)
	}
	if err := reg.Send(ctx, name, method, args...); err != nil {
		return errors.WrapWithCode(err, errors.ErrBus,
			fmt.Sprintf("Failed to send %s to %s", method, name),
			"Check the bus connection")
	}
	return nil
}

// parseCallArgs converts command-line words into request arguments.
func parseCallArgs(words []string) []any {
	out := make([]any, 0, len(words))
	for _, w := range words {
		out = append(out, parseCallArg(w))
	}
	return out
}

func parseCallArg(word string) any {
	trimmed := strings.TrimSpace(word)
	if trimmed == "" {
		return word
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return word
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}
