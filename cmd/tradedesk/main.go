// Command tradedesk is a trade planning and risk calculator.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"tradedesk/internal/cli"
)

func main() {
	// Config and logger are loaded by the root command after flag parsing.
	if err := cli.NewRootCmd(nil, zerolog.Nop()).Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
