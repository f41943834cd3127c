package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/kagemura/tosho/internal/config"
	"github.com/kagemura/tosho/internal/log"
	"github.com/kagemura/tosho/internal/mangaserver"
)

// Runner holds the shared wiring for all subcommands
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		tuiCommand(r),
		statsCommand(r),
		listCommand(r),
		serveCommand(r),
	}
}

// setup loads configuration and the logger; flag values override config
func (r *Runner) setup(cmd *cli.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if url := cmd.String("server"); url != "" {
		cfg.Server.URL = url
	}
	if token := cmd.String("token"); token != "" {
		cfg.Server.Token = token
	}
	r.cfg = cfg

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)
	r.logger = logger
	return nil
}

// client builds the remote client, failing when no server is configured
func (r *Runner) client() (*mangaserver.Client, error) {
	if !r.cfg.IsConfigured() {
		return nil, fmt.Errorf("no server configured: set server.url in the config file or pass --server")
	}
	return mangaserver.NewClient(r.cfg.Server.URL, r.cfg.Server.Token, r.logger), nil
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}

func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Print library-wide reading statistics",
		Action: r.Stats,
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List series and their reading progress",
		ArgsUsage: "[title]",
		Action:    r.List,
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a seeded development server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address",
				Value:   ":8765",
			},
		},
		Action: r.Serve,
	}
}
