package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"renderq/internal/queue"
	"renderq/internal/scheduler"
	"renderq/internal/schema"
	"renderq/internal/ui"
)

const (
	headlessPollInterval = 200 * time.Millisecond
)

// App bundles the wired application handlers for launch.
type App struct {
	provider         schema.SceneProvider
	queueManager     *queue.Manager
	schedulerHandler *scheduler.Handler
	uiHandler        *ui.Handler
}

// NewApp returns a pointer to a new [App].
func NewApp(provider schema.SceneProvider,
	queueManager *queue.Manager,
	schedulerHandler *scheduler.Handler,
	uiHandler *ui.Handler,
) *App {
	return &App{
		provider:         provider,
		queueManager:     queueManager,
		schedulerHandler: schedulerHandler,
		uiHandler:        uiHandler,
	}
}

// Launch populates the queue from the scene provider and, when no UI is
// attached, runs the full queue to completion. With a UI attached, the run
// itself is driven interactively and Launch returns after the initial
// population.
func (app *App) Launch(ctx context.Context) error {
	if err := app.queueManager.Refresh(ctx, app.provider); err != nil {
		slog.Error("Failed to populate the render queue.", "err", err)

		return fmt.Errorf("(app) %w", err)
	}

	slog.Info("Render queue populated.", "jobs", app.queueManager.Len())

	if app.uiHandler != nil {
		return nil
	}

	return app.runHeadless(ctx)
}

// LaunchUI starts the command-line user interface.
func (app *App) LaunchUI() error {
	if err := app.uiHandler.Launch(); err != nil {
		return fmt.Errorf("(app-ui) %w", err)
	}

	return nil
}

// runHeadless starts a run over the populated queue and blocks until the
// scheduler returns to idle or the context is cancelled.
func (app *App) runHeadless(ctx context.Context) error {
	if err := app.schedulerHandler.Start(); err != nil {
		slog.Error("Failed to start the render run.", "err", err)

		return fmt.Errorf("(app) %w", err)
	}

	ticker := time.NewTicker(headlessPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = app.schedulerHandler.Cancel()

			return fmt.Errorf("(app) %w", ctx.Err())
		case <-ticker.C:
			if app.schedulerHandler.Snapshot().Phase == scheduler.PhaseIdle {
				return nil
			}
		}
	}
}
