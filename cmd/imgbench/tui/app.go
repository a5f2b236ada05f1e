package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/imgbench/pkg/imgbench/engine"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/profile"
	"github.com/jamesainslie/imgbench/pkg/imgbench/runner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// recentSamples is how many finished decodes the view lists.
const recentSamples = 6

// logPaneRows is the height of the log pane when open.
const logPaneRows = 6

// Options configures the progress view.
type Options struct {
	Roots   []string
	Signals tuner.HostSignals
	Budget  runner.Budget
	Engine  engine.Options
}

// ProgressMsg carries an engine progress update.
type ProgressMsg engine.Progress

// DoneMsg is sent when the benchmark returns.
type DoneMsg struct {
	Profile profile.Profile
	Err     error
}

// LogMsg carries a log entry for the log pane.
type LogMsg logging.Entry

// tickUIMsg triggers a UI refresh.
type tickUIMsg struct{}

// Model is the Bubble Tea model for a benchmark run.
type Model struct {
	options Options
	tier    tuner.Tier

	// cancel stops the run; the engine still returns a profile.
	cancel context.CancelFunc

	spinner   spinner.Model
	startTime time.Time
	width     int
	height    int

	progress engine.Progress
	samples  []types.BenchmarkSample
	failures int
	stopping bool
	done     bool
	result   DoneMsg

	logs    []logging.Entry
	showLog bool
}

// NewModel creates a model. cancel is called when the user stops the run.
func NewModel(opts Options, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		options:    opts,
		tier:      tuner.Classify(opts.Signals),
		cancel:    cancel,
		spinner:   s,
		startTime: time.Now(),
		width:     80,
		height:    24,
		progress:  engine.Progress{Phase: engine.PhaseScanning},
	}
}

// Init starts the spinner and the UI refresh loop. The benchmark itself
// runs outside the program and reports through Send.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tickUI())
}

func (m Model) tickUI() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickUIMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickUIMsg:
		if m.done {
			return m, nil
		}
		return m, m.tickUI()

	case ProgressMsg:
		m.applyProgress(engine.Progress(msg))
		return m, nil

	case LogMsg:
		m.addLog(logging.Entry(msg))
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = msg
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		// The engine stops between candidates and still returns a profile.
		m.stopping = true
		if m.cancel != nil {
			m.cancel()
		}
		return m, nil
	case "l":
		m.showLog = !m.showLog
		return m, nil
	}
	return m, nil
}

// applyProgress folds a progress update into the model.
func (m *Model) applyProgress(p engine.Progress) {
	m.progress = p
	if p.Sample == nil {
		return
	}
	m.samples = append(m.samples, *p.Sample)
	if !p.Sample.Succeeded {
		m.failures++
	}
}

func (m *Model) addLog(e logging.Entry) {
	m.logs = append(m.logs, e)
	if len(m.logs) > logging.DefaultBufferSize {
		m.logs = m.logs[len(m.logs)-logging.DefaultBufferSize:]
	}
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder

	contentWidth := max(m.width-4, 40)

	b.WriteString("\n")
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatus(contentWidth))
	b.WriteString("\n\n")
	b.WriteString(m.renderProgressBar(contentWidth))
	b.WriteString("\n\n")
	b.WriteString(m.renderStats(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderSamples(contentWidth))

	if m.showLog {
		b.WriteString("\n")
		b.WriteString(renderLogPane(m.logs, contentWidth, logPaneRows))
	}

	content := b.String()
	contentLines := strings.Count(content, "\n") + 1
	if available := m.height - 2; available > contentLines {
		content += strings.Repeat("\n", available-contentLines)
	}

	return outerBoxStyle.Width(max(m.width-2, 0)).Render(content)
}

func (m Model) renderHeader(width int) string {
	title := titleStyle.Render(fmt.Sprintf("  imgbench · %s tier", m.tier))
	hint := mutedTextStyle.Render("[q stop] [l logs]")
	spacing := max(width-lipgloss.Width(title)-lipgloss.Width(hint), 1)
	return title + strings.Repeat(" ", spacing) + hint
}

func (m Model) renderStatus(width int) string {
	p := m.progress
	switch {
	case m.done && m.result.Err != nil:
		return errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.result.Err))
	case m.done:
		return successTextStyle.Render("  Benchmark complete!")
	case m.stopping:
		return warningTextStyle.Render(fmt.Sprintf("  %s Stopping after the current image...", m.spinner.View()))
	case p.Phase == engine.PhaseBenchmarking:
		label := fmt.Sprintf("  %s Decoding %d/%d: ", m.spinner.View(), min(p.Index+1, p.Total), p.Total)
		return label + truncatePath(p.Path, width-lipgloss.Width(label))
	default:
		label := fmt.Sprintf("  %s Scanning: ", m.spinner.View())
		return label + truncatePath(p.Root, width-lipgloss.Width(label))
	}
}

// renderProgressBar shows decode progress once the selected set is known and
// an indeterminate pulse while scanning.
func (m Model) renderProgressBar(width int) string {
	barWidth := max(width-4, 10)

	var bar strings.Builder
	bar.WriteString("  ")

	if m.progress.Total > 0 {
		filled := barWidth * completed(m.progress) / m.progress.Total
		bar.WriteString(progressFillStyle.Render(repeatChar('█', filled)))
		bar.WriteString(progressEmptyStyle.Render(repeatChar('░', barWidth-filled)))
		return bar.String()
	}

	elapsed := time.Since(m.startTime)
	position := int(elapsed.Seconds()*2) % (barWidth * 2)
	if position > barWidth {
		position = barWidth*2 - position
	}
	pulseWidth := max(barWidth/5, 3)
	for i := range barWidth {
		dist := i - position
		if dist < 0 {
			dist = -dist
		}
		if dist < pulseWidth {
			bar.WriteString(progressFillStyle.Render("█"))
		} else {
			bar.WriteString(progressEmptyStyle.Render("░"))
		}
	}
	return bar.String()
}

// completed returns the number of finished decodes. Index counts finished
// decodes in every phase.
func completed(p engine.Progress) int {
	return min(max(p.Index, 0), p.Total)
}

func (m Model) renderStats(totalWidth int) string {
	boxWidth := max((totalWidth-12)/5, 10)

	budget := "-"
	if m.options.Budget.TotalTimeBudget > 0 {
		budget = formatElapsed(m.options.Budget.TotalTimeBudget)
	}

	boxes := []string{
		renderStatBox("Accepted", humanize.Comma(int64(m.progress.Accepted)), boxWidth),
		renderStatBox("Rejected", humanize.Comma(int64(m.progress.Rejected)), boxWidth),
		renderStatBox("Decoded", fmt.Sprintf("%d", len(m.samples)), boxWidth),
		renderStatBox("Failed", fmt.Sprintf("%d", m.failures), boxWidth),
		renderStatBox("Time", formatElapsed(time.Since(m.startTime))+" / "+budget, boxWidth),
	}

	parts := []string{"  "}
	for i, box := range boxes {
		if i > 0 {
			parts = append(parts, " ")
		}
		parts = append(parts, box)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderStatBox(label, value string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		center(statsLabelStyle.Render(label), width-4),
		center(statsValueStyle.Render(value), width-4))
	return statsBoxStyle.Width(width).Render(content)
}

// renderSamples lists the most recent decodes.
func (m Model) renderSamples(width int) string {
	if len(m.samples) == 0 {
		return ""
	}

	var b strings.Builder
	start := max(len(m.samples)-recentSamples, 0)
	for _, s := range m.samples[start:] {
		b.WriteString("  ")
		b.WriteString(durationStyle.Render(formatSampleDuration(s.Duration())))
		b.WriteString("  ")
		if s.Succeeded {
			b.WriteString(successTextStyle.Render("ok  "))
		} else {
			b.WriteString(errorTextStyle.Render("fail"))
		}
		b.WriteString("  ")
		b.WriteString(truncatePath(s.Candidate.Path, max(width-22, 10)))
		if !s.Succeeded {
			b.WriteString(mutedTextStyle.Render(" (" + string(s.FailureReason) + ")"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", m, s)
}

func formatSampleDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// Result returns the benchmark outcome once the model is done.
func (m Model) Result() (profile.Profile, error) {
	if !m.done {
		return profile.Profile{}, errors.New("benchmark did not finish")
	}
	return m.result.Profile, m.result.Err
}

// Run shows the progress view while the benchmark runs and returns its
// profile. Quitting the view cancels the run between candidates; the partial
// profile is still returned.
func Run(ctx context.Context, opts Options) (profile.Profile, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(NewModel(opts, cancel), tea.WithAltScreen())

	logs := logging.Subscribe()
	stopLogs := make(chan struct{})
	defer func() {
		close(stopLogs)
		logging.Unsubscribe(logs)
	}()
	go func() {
		for {
			select {
			case e := <-logs:
				prog.Send(LogMsg(e))
			case <-stopLogs:
				return
			}
		}
	}()

	resultCh := make(chan DoneMsg, 1)
	go func() {
		engineOpts := opts.Engine
		engineOpts.OnProgress = func(p engine.Progress) {
			prog.Send(ProgressMsg(p))
		}
		p, err := engine.RunSafeBenchmark(ctx, opts.Roots, opts.Signals, opts.Budget, engineOpts)
		res := DoneMsg{Profile: p, Err: err}
		resultCh <- res
		prog.Send(res)
	}()

	_, uiErr := prog.Run()

	// Stop the engine if the view exited first, then wait for its profile.
	cancel()
	res := <-resultCh

	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) && !errors.Is(uiErr, tea.ErrInterrupted) {
		return res.Profile, fmt.Errorf("progress view failed: %w", uiErr)
	}
	return res.Profile, res.Err
}
