package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"renderq/internal/queue"
	"renderq/internal/scheduler"
	"renderq/internal/schema"
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// selectedStyle defines the style for the selected queue row.
	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	// dimStyle defines the style for disabled queue rows.
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// SchedulerStateMsg is a [tea.Msg] containing a [scheduler.Snapshot].
type SchedulerStateMsg struct {
	t        time.Time
	snapshot scheduler.Snapshot
}

// TeaModel is the principal [tea.Model] for the command-line user interface.
type TeaModel struct {
	width  int
	height int

	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc

	uiHandler        *Handler
	schedulerHandler *scheduler.Handler
	queueManager     *queue.Manager
	provider         schema.SceneProvider

	fullWidthWithBorders int
	queueHeight          int

	snapshot scheduler.Snapshot
	cursor   int

	jobProgress  progress.Model
	logsViewport viewport.Model
	logs         []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(
	ctx context.Context,
	cancel context.CancelFunc,
	uiHandler *Handler,
	schedulerHandler *scheduler.Handler,
	queueManager *queue.Manager,
	provider schema.SceneProvider,
) TeaModel {
	jobProgress := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(80),
	)

	logsViewport := viewport.New(80, 10)

	return TeaModel{
		ctx:              ctx,
		cancel:           cancel,
		uiHandler:        uiHandler,
		schedulerHandler: schedulerHandler,
		queueManager:     queueManager,
		provider:         provider,
		jobProgress:      jobProgress,
		logsViewport:     logsViewport,
		logs:             make([]string, 0, 100),
		ready:            false,
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		updateSchedulerState(m.schedulerHandler),
	)
}

// updateSchedulerState produces a [tea.Cmd] for later scheduling in a
// [tea.Program]. When executed, a [SchedulerStateMsg] with the current
// [scheduler.Snapshot] is returned.
func updateSchedulerState(s *scheduler.Handler) tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { //nolint:mnd
		return SchedulerStateMsg{
			t:        t,
			snapshot: s.Snapshot(),
		}
	})
}

// Update is the principal message handling method of the model.
// It sets the internal state of the model, for later rendering.
//
//nolint:funlen,cyclop
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if handled, model, keyCmd := m.handleKey(msg); handled {
			return model, keyCmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2
		m.jobProgress.Width = m.fullWidthWithBorders - 2

		// Queue panel takes about half of the height.
		m.queueHeight = m.height / 2
		logsHeight := m.height - m.queueHeight - 8

		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = max(logsHeight, 3)

		if len(m.logs) > 0 {
			logs := lipgloss.NewStyle().
				Width(m.logsViewport.Width).
				Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

			m.logsViewport.SetContent(logs)
			m.logsViewport.GotoBottom()
		}

		if !m.ready {
			m.ready = true
			m.uiHandler.Ready.Store(true)
		}

	case SchedulerStateMsg:
		m.snapshot = msg.snapshot

		if m.cursor >= len(m.snapshot.Jobs) {
			m.cursor = max(len(m.snapshot.Jobs)-1, 0)
		}

		if job, ok := m.currentJob(); ok {
			cmds = append(cmds, m.jobProgress.SetPercent(float64(job.Progress)/100)) //nolint:mnd
		}

		// Queue the next update.
		cmds = append(cmds, updateSchedulerState(m.schedulerHandler))

	case LogMsg:
		logMsg := string(msg)

		if len(m.logs) >= 100 {
			m.logs = m.logs[1:]
		}

		m.logs = append(m.logs, logMsg)

		logs := lipgloss.NewStyle().
			Width(m.logsViewport.Width).
			Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

		m.logsViewport.SetContent(logs)
		m.logsViewport.GotoBottom()

	case progress.FrameMsg:
		updatedJob, cmd := m.jobProgress.Update(msg)
		if progressModel, ok := updatedJob.(progress.Model); ok {
			m.jobProgress = progressModel
		}
		cmds = append(cmds, cmd)
	}

	// Handle viewport updates.
	m.logsViewport, cmd = m.logsViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey maps key presses onto queue and scheduler commands. All command
// failures are reported through the log panel, never fatal to the UI.
//
//nolint:cyclop,ireturn
func (m TeaModel) handleKey(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.cancel()

		return true, m, tea.Quit

	case "q":
		return true, m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

		return true, m, nil

	case "down", "j":
		if m.cursor < len(m.snapshot.Jobs)-1 {
			m.cursor++
		}

		return true, m, nil

	case "shift+up", "K":
		if err := m.queueManager.Move(m.cursor, queue.DirectionUp); err != nil {
			slog.Warn("Cannot move job.", "err", err)
		} else if m.cursor > 0 {
			m.cursor--
		}

		return true, m, nil

	case "shift+down", "J":
		if err := m.queueManager.Move(m.cursor, queue.DirectionDown); err != nil {
			slog.Warn("Cannot move job.", "err", err)
		} else if m.cursor < len(m.snapshot.Jobs)-1 {
			m.cursor++
		}

		return true, m, nil

	case "e":
		if err := m.queueManager.ToggleEnabled(m.cursor); err != nil {
			slog.Warn("Cannot toggle job.", "err", err)
		}

		return true, m, nil

	case "t":
		if err := m.queueManager.ToggleKind(m.cursor); err != nil {
			slog.Warn("Cannot change job type.", "err", err)
		}

		return true, m, nil

	case "r":
		go func() {
			if err := m.queueManager.Refresh(m.ctx, m.provider); err != nil {
				slog.Warn("Queue refresh rejected.", "err", err)

				return
			}
			slog.Info("Render queue refreshed.")
		}()

		return true, m, nil

	case "s":
		if err := m.schedulerHandler.Start(); err != nil {
			slog.Warn("Cannot start render run.", "err", err)
		}

		return true, m, nil

	case " ":
		switch m.snapshot.Phase {
		case scheduler.PhaseRunning:
			if err := m.schedulerHandler.Pause(); err != nil {
				slog.Warn("Cannot pause render run.", "err", err)
			}
		case scheduler.PhasePaused:
			if err := m.schedulerHandler.Resume(); err != nil {
				slog.Warn("Cannot resume render run.", "err", err)
			}
		case scheduler.PhaseIdle, scheduler.PhaseCancelling:
		}

		return true, m, nil

	case "c":
		if err := m.schedulerHandler.Cancel(); err != nil {
			slog.Warn("Cannot cancel render run.", "err", err)
		}

		return true, m, nil
	}

	return false, m, nil
}

// currentJob returns the currently rendering job, if any.
func (m TeaModel) currentJob() (queue.Job, bool) {
	if m.snapshot.Current < 0 || m.snapshot.Current >= len(m.snapshot.Jobs) {
		return queue.Job{}, false
	}

	return m.snapshot.Jobs[m.snapshot.Current], true
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the GUI..."
	}

	var s strings.Builder

	queueSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Render Queue"),
				infoStyle.Width(m.fullWidthWithBorders).Render(m.formatQueueView()),
			),
		)

	statusSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Run Status"),
				infoStyle.Width(m.fullWidthWithBorders).Render(m.formatStatusView()),
			),
		)

	logsSection := borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Process Information"),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.logsViewport.View()),
			),
		)

	helpSection := helpStyle.
		Width(m.fullWidthWithBorders).
		Render("r: refresh • s: start • space: pause/resume • c: cancel • " +
			"e: enable/disable • t: image/sequence • K/J: move • q: quit gui • ctrl+c: quit program")

	s.WriteString(lipgloss.JoinVertical(
		lipgloss.Left,
		queueSection,
		statusSection,
		logsSection,
		helpSection,
	))

	return s.String()
}

// formatQueueView renders the queue rows, cursor and selection included.
func (m TeaModel) formatQueueView() string {
	if len(m.snapshot.Jobs) == 0 {
		return "The render queue is empty. Press r to refresh it."
	}

	var rows []string

	for i, job := range m.snapshot.Jobs {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		checkbox := "[ ]"
		if job.Enabled {
			checkbox = "[x]"
		}

		marker := " "
		if i == m.snapshot.Current {
			marker = "*"
		}

		row := fmt.Sprintf("%s%s %s %-40s %-10s %3d%% %s",
			cursor, checkbox, marker, job.Label(), job.Kind, job.Progress, job.StatusText)

		switch {
		case i == m.cursor:
			row = selectedStyle.Render(row)
		case !job.Enabled:
			row = dimStyle.Render(row)
		}

		rows = append(rows, row)
	}

	return strings.Join(rows, "\n")
}

// formatStatusView renders the run phase, the active job progress bar and the
// remaining-time estimate.
func (m TeaModel) formatStatusView() string {
	var details strings.Builder

	details.WriteString(fmt.Sprintf("Phase: %s", m.snapshot.Phase))

	if m.snapshot.Refreshing {
		details.WriteString(" (refreshing queue)")
	}

	if job, ok := m.currentJob(); ok {
		details.WriteString(fmt.Sprintf("\nJob: %s (%s)", job.Label(), job.StatusText))
		details.WriteString("\n" + m.jobProgress.View())
	}

	if m.snapshot.ETAStatus != "" {
		details.WriteString(fmt.Sprintf("\nRemaining: %s", m.snapshot.ETAStatus))
	}

	return details.String()
}
