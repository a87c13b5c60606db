//go:build !windows

package cmd

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// terminalWidth returns the width of the controlling terminal, or 0
// when stdout is not a terminal. $COLUMNS is honored as a fallback
// since some terminal multiplexers hide the ioctl.
func terminalWidth() int {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err == nil && ws.Col > 0 {
		return int(ws.Col)
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return 0
}
