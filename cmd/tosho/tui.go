package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/kagemura/tosho/internal/config"
	"github.com/kagemura/tosho/internal/library"
	"github.com/kagemura/tosho/internal/prefs"
	"github.com/kagemura/tosho/internal/tui"
)

// TUI launches the interactive terminal UI
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(cmd); err != nil {
		return err
	}
	client, err := r.client()
	if err != nil {
		return err
	}

	store, err := prefs.Open(config.DataPath(), r.cfg.Server.URL)
	if err != nil {
		r.logger.Warn("falling back to in-memory preferences", "error", err)
		store, _ = prefs.Open("", r.cfg.Server.URL)
	}
	defer store.Close()

	sess := library.NewSession(client, r.logger)
	defer sess.Close()

	model := tui.NewModel(sess, store, r.cfg, r.logger)

	r.logger.Info("starting TUI", "server", r.cfg.Server.URL)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		r.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	r.logger.Info("shutting down")
	return nil
}
