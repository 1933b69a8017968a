package ui

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/errors"
)

// RunOptions configures RunPortView.
type RunOptions struct {
	// Serial holds the parameters sent with connect.
	Serial config.SerialConfig
	// Output receives the static render when stdout is not a terminal.
	Output io.Writer
	// LogFile receives log output while the view owns the screen. Logs are
	// discarded when empty.
	LogFile string
}

// RunPortView shows the widget until the user quits. When stdout is not a
// TTY it prints the current state once and returns.
func RunPortView(ctx context.Context, actions Actions, bridge *Bridge, opts RunOptions) error {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		_, err := fmt.Fprint(out, RenderStatic(actions.Name(), actions.Snapshot()))
		return err
	}

	prevLog, prevPrefix := log.Writer(), log.Prefix()
	defer func() {
		log.SetOutput(prevLog)
		log.SetPrefix(prevPrefix)
	}()
	if opts.LogFile != "" {
		f, err := tea.LogToFile(opts.LogFile, "portctl")
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrUI,
				"Cannot open log file "+opts.LogFile,
				"Check the path is writable")
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	program := tea.NewProgram(
		NewPortView(ctx, actions, opts.Serial),
		tea.WithAltScreen(),
	)
	bridge.Attach(program)

	if _, err := program.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrUI,
			"Port view failed",
			"Run with a terminal attached, or pipe the output to see a static summary")
	}
	return nil
}
