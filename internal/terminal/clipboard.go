package terminal

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable is returned when no clipboard utility exists.
var ErrClipboardUnavailable = errors.New("clipboard is not available")

// Copy puts text on the system clipboard.
func Copy(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return clipboard.WriteAll(text)
}
