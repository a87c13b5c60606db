//go:build windows

package cmd

import (
	"os"
	"strconv"
)

// terminalWidth falls back to $COLUMNS on Windows.
func terminalWidth() int {
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return 0
}
