package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/desertthunder/tvx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive notification inbox.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.inbox, r.engine, r.exportOpts())
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
