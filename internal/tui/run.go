package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/rd-classifier/internal/model"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows results in the summary viewer until the user quits or ctx is done.
func Run(ctx context.Context, results []*model.Result, opts ...Option) error {
	if len(results) == 0 {
		return errors.New("no results to show")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	if cfg.Input != nil {
		progOpts = append(progOpts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(cfg.Output))
	}

	_, err := tea.NewProgram(newModel(results, cfg), progOpts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("summary viewer failed: %w", err)
	}
	return nil
}
