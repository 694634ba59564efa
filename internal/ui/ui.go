// Package ui implements a command-line user interface using [tea]. It is a
// read-only observer of the scheduler state, issuing user commands back into
// the queue and the scheduler.
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"renderq/internal/queue"
	"renderq/internal/scheduler"
	"renderq/internal/schema"
)

// Handler is the principal implementation of a user interface [Handler].
type Handler struct {
	schedulerHandler *scheduler.Handler
	queueManager     *queue.Manager
	provider         schema.SceneProvider
	program          *tea.Program

	LogWriter *TeaLogWriter

	Ready  atomic.Bool
	Failed atomic.Bool
}

// NewHandler returns a pointer to a new user interface [Handler].
func NewHandler(
	ctx context.Context,
	cancel context.CancelFunc,
	schedulerHandler *scheduler.Handler,
	queueManager *queue.Manager,
	provider schema.SceneProvider,
) *Handler {
	handler := &Handler{
		schedulerHandler: schedulerHandler,
		queueManager:     queueManager,
		provider:         provider,
	}

	model := NewTeaModel(ctx, cancel, handler, schedulerHandler, queueManager, provider)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.LogWriter = NewTeaLogWriter(handler.program)

	return handler
}

// Launch starts the command-line user interface (the [tea.Program]).
func (uiHandler *Handler) Launch() error {
	defer uiHandler.LogWriter.Stop()

	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}
