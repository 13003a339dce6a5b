package graphics

import (
	"errors"
	"os"
	"runtime"
)

// ErrNoDisplay is returned when a window backend finds no display server.
var ErrNoDisplay = errors.New("no display available")

// displayAvailable reports whether a window can be opened. Only X11 and
// Wayland systems are checked; other platforms always have a display.
func displayAvailable() bool {
	switch runtime.GOOS {
	case "windows", "darwin", "ios", "android", "js":
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}
