package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"renderq/internal/schema"
)

// Handler is a [schema.RenderBackend] that runs an external renderer command
// once per unit. Lifecycle events are emitted through the [Bus] it was
// constructed with. At most one unit is in flight at any time.
//
// For sequences, the handler keeps a continuation point per target, so a
// repeated StartSequence after an abort or a pause continues after the last
// completed frame instead of re-rendering it.
type Handler struct {
	sync.Mutex

	bus       *Bus
	command   string
	extraArgs []string

	cancel    context.CancelFunc
	positions map[string]int
}

// NewHandler returns a pointer to a new backend [Handler], running the given
// command (with extraArgs prepended to the per-unit arguments) for each unit.
func NewHandler(bus *Bus, command string, extraArgs []string) *Handler {
	return &Handler{
		bus:       bus,
		command:   command,
		extraArgs: extraArgs,
		positions: make(map[string]int),
	}
}

// StartImage requests rendering of a single image to outputPath. The request
// returns immediately; the outcome arrives as lifecycle events on the [Bus].
func (h *Handler) StartImage(target schema.RenderTarget, outputPath string) error {
	ctx, err := h.acquireUnit()
	if err != nil {
		return err
	}

	go h.renderImage(ctx, target, outputPath)

	return nil
}

// StartSequence requests rendering of a frame sequence into outputDir. The
// request returns immediately; per-frame outcomes arrive as lifecycle events
// on the [Bus].
func (h *Handler) StartSequence(target schema.RenderTarget, outputDir string) error {
	ctx, err := h.acquireUnit()
	if err != nil {
		return err
	}

	go h.renderSequence(ctx, target, outputDir)

	return nil
}

// Cancel aborts the in-flight unit, if any. Safe to call repeatedly.
func (h *Handler) Cancel() {
	h.Lock()
	defer h.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// acquireUnit claims the single in-flight unit slot and returns the context
// its rendering runs under.
func (h *Handler) acquireUnit() (context.Context, error) {
	h.Lock()
	defer h.Unlock()

	if h.cancel != nil {
		return nil, ErrUnitInFlight
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	return ctx, nil
}

// releaseUnit releases the in-flight unit slot. Event delivery is
// synchronous, so the slot must be free before a terminal event goes out: a
// sink may start the next unit from within its own handler.
func (h *Handler) releaseUnit() {
	h.Lock()
	defer h.Unlock()

	h.cancel = nil
}

func (h *Handler) renderImage(ctx context.Context, target schema.RenderTarget, outputPath string) {
	h.bus.EmitUnitStart()

	if err := h.runUnit(ctx, target, target.GetFrameStart(), outputPath); err != nil {
		slog.Warn("Backend aborted image unit.",
			"scene", target.GetScene(),
			"camera", target.GetCamera(),
			"err", err,
		)
		h.releaseUnit()
		h.bus.EmitAborted()

		return
	}

	h.releaseUnit()
	h.bus.EmitUnitFinished(schema.UnitFinishedEvent{
		Frame:          1,
		TotalFrames:    1,
		LastInSequence: true,
		OutputPath:     outputPath,
	})
}

func (h *Handler) renderSequence(ctx context.Context, target schema.RenderTarget, outputDir string) {
	key := target.GetScene() + "|" + target.GetCamera()
	start := target.GetFrameStart()
	end := target.GetFrameEnd()
	total := end - start + 1

	first := start
	if resume, exists := h.position(key); exists {
		first = resume
	}

	for frame := first; frame <= end; frame++ {
		h.bus.EmitUnitStart()

		framePath := filepath.Join(outputDir, fmt.Sprintf("frame_%04d", frame))

		if err := h.runUnit(ctx, target, frame, framePath); err != nil {
			slog.Warn("Backend aborted sequence unit.",
				"scene", target.GetScene(),
				"camera", target.GetCamera(),
				"frame", frame,
				"err", err,
			)
			h.setPosition(key, frame)
			h.releaseUnit()
			h.bus.EmitAborted()

			return
		}

		h.setPosition(key, frame+1)

		ordinal := frame - start + 1
		last := ordinal == total

		if last {
			h.clearPosition(key)
			h.releaseUnit()
		}

		h.bus.EmitUnitFinished(schema.UnitFinishedEvent{
			Frame:          ordinal,
			TotalFrames:    total,
			LastInSequence: last,
			OutputPath:     framePath,
		})

		if last {
			return
		}
	}

	// Only reachable with a stored continuation point already past the
	// frame range; report the sequence as complete.
	h.clearPosition(key)
	h.releaseUnit()
	h.bus.EmitUnitFinished(schema.UnitFinishedEvent{
		Frame:          total,
		TotalFrames:    total,
		LastInSequence: true,
		OutputPath:     filepath.Join(outputDir, fmt.Sprintf("frame_%04d", end)),
	})
}

// runUnit runs the renderer command for one unit and waits for it to finish.
func (h *Handler) runUnit(ctx context.Context, target schema.RenderTarget, frame int, outputPath string) error {
	args := make([]string, 0, len(h.extraArgs)+8) //nolint:mnd
	args = append(args, h.extraArgs...)
	args = append(args,
		"--scene", target.GetScene(),
		"--camera", target.GetCamera(),
		"--frame", strconv.Itoa(frame),
		"--output", outputPath,
	)

	cmd := exec.CommandContext(ctx, h.command, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("(backend-exec) %w", err)
	}

	return nil
}

func (h *Handler) position(key string) (int, bool) {
	h.Lock()
	defer h.Unlock()

	pos, exists := h.positions[key]

	return pos, exists
}

func (h *Handler) setPosition(key string, frame int) {
	h.Lock()
	defer h.Unlock()

	h.positions[key] = frame
}

func (h *Handler) clearPosition(key string) {
	h.Lock()
	defer h.Unlock()

	delete(h.positions, key)
}
