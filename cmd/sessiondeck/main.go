// Package main is the entry point for the sessiondeck CLI.
package main

import (
	"os"

	"github.com/runger/sessiondeck/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
