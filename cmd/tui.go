package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/discover/internal/shared"
	"github.com/desertthunder/discover/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogPath = "./tmp/discover-tui.log"

// TUI launches the interactive terminal UI for recall.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAccount(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	if err := os.MkdirAll(filepath.Dir(tuiLogPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	fileLogger, logFile, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	engine, err := r.engine(cmd)
	if err != nil {
		return err
	}

	var history ui.RunLister
	if cmd.Bool("save") {
		repo, err := r.store()
		if err != nil {
			return err
		}
		history = repo
	}

	model := ui.NewModel(ctx, engine, history, ui.Options{
		FillSize:     r.fillSize(cmd),
		PlaylistName: cmd.String("name"),
		Public:       cmd.Bool("public"),
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
