package ui

import (
	"github.com/atotto/clipboard"

	"github.com/rileyhilliard/portctl/internal/errors"
)

func writeClipboard(s string) error {
	if clipboard.Unsupported {
		return errors.New(errors.ErrUI, "No clipboard available",
			"Install xclip, xsel or wl-clipboard")
	}
	if err := clipboard.WriteAll(s); err != nil {
		return errors.WrapWithCode(err, errors.ErrUI, "Clipboard write failed", "")
	}
	return nil
}
