package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/djcsv/internal/shared"
	"github.com/desertthunder/djcsv/internal/tasks"
	"github.com/desertthunder/djcsv/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive playlist picker.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.userService(ctx)
	if err != nil {
		return authHint(err)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	notices := ui.NewNoticeQueue(8)
	p, err := r.newPipeline(svc, notices, tasks.NewDirSink(r.config.Export.OutputDir))
	if err != nil {
		return err
	}
	defer p.Close()

	model := ui.NewModel(ctx, svc, p.exporter, notices)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return authHint(model.Err())
}
