// Package main is the entry point for the retrace CLI.
package main

import (
	"os"

	"github.com/overwatch/retrace/cmd/retrace/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
