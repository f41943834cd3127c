package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	runner := NewRunner()

	app := &cli.Command{
		Name:    "tosho",
		Usage:   "Track manga reading progress from the terminal",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Manga server URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "API token (overrides config)",
			},
		},
		Commands: runner.register(),
		// Bare invocation launches the interactive UI
		Action: runner.TUI,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
