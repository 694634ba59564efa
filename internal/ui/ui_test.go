package ui

import (
	"bytes"
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"renderq/internal/backend"
	"renderq/internal/estimate"
	"renderq/internal/manifest"
	"renderq/internal/pathing"
	"renderq/internal/queue"
	"renderq/internal/scheduler"
	"renderq/internal/schema"
)

// TestTeaUI is an integration test for the command-line user interface.
func TestTeaUI(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var in bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	units := []schema.SceneUnit{
		{Scene: "sceneA", Camera: "cam1", FrameStart: 1, FrameEnd: 100},
		{Scene: "sceneB", Camera: "cam2", FrameStart: 1, FrameEnd: 100},
	}

	queueManager := queue.NewManager()
	provider := backend.NewStaticProvider(units)
	bus := backend.NewBus()
	clock := schema.WallClock{}

	schedulerHandler := scheduler.NewHandler(
		queueManager,
		provider,
		backend.NewHandler(bus, "true", nil),
		bus,
		schema.NewMemoryWorkspace("", t.TempDir()),
		clock,
		schema.WallTimer{},
		estimate.NewHandler(clock, 30*time.Second),
		pathing.NewHandler(t.TempDir(), &schema.OS{}, &schema.Unix{}),
		manifest.NewHandler(&schema.OS{}),
	)

	handler := &Handler{
		schedulerHandler: schedulerHandler,
		queueManager:     queueManager,
		provider:         provider,
	}

	model := NewTeaModel(ctx, cancel, handler, schedulerHandler, queueManager, provider)
	program := tea.NewProgram(model, tea.WithInput(&in), tea.WithOutput(&buf), tea.WithAltScreen(), tea.WithContext(ctx))

	handler.program = program
	handler.LogWriter = NewTeaLogWriter(handler.program)

	go func() {
		// Simulate window sizing, logs and key presses for the UI.
		for !handler.Ready.Load() {
			if handler.Failed.Load() {
				return
			}
			program.Send(tea.WindowSizeMsg{Width: 200, Height: 60})
			time.Sleep(time.Millisecond)
		}

		program.Send(LogMsg("log1"))
		_, _ = handler.LogWriter.Write([]byte("log2"))
		time.Sleep(time.Millisecond)

		program.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
		time.Sleep(500 * time.Millisecond)

		program.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	}()

	if err := handler.Launch(); err != nil {
		t.Fatalf("Expected nil, got %v", err)
	}

	if buf.Len() == 0 {
		t.Fatal("UI generated no output at all")
	}

	by := buf.Bytes()

	if !bytes.Contains(by, []byte("Render Queue")) {
		t.Fatal("UI did not show the queue panel")
	}

	if !bytes.Contains(by, []byte("log1")) {
		t.Fatal("UI did not show the first log message sent (via program.Send)")
	}

	if !bytes.Contains(by, []byte("log2")) {
		t.Fatal("UI did not show the second log message sent (via the log writer)")
	}

	if !bytes.Contains(by, []byte("sceneA")) {
		t.Fatal("UI did not show the refreshed queue contents")
	}
}
