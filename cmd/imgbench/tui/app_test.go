package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/imgbench/pkg/imgbench/engine"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/profile"
	"github.com/jamesainslie/imgbench/pkg/imgbench/runner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

func testOptions() Options {
	return Options{
		Roots:   []string{"assets"},
		Signals: tuner.HostSignals{CPUCores: 8, TotalRAM: 16 * types.GiB},
		Budget:  runner.DefaultBudget(),
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func TestNewModel(t *testing.T) {
	m := NewModel(testOptions(), nil)

	if m.tier != tuner.TierGood {
		t.Errorf("expected tier good, got %s", m.tier)
	}
	if m.progress.Phase != engine.PhaseScanning {
		t.Errorf("expected scanning phase, got %s", m.progress.Phase)
	}
	if m.done {
		t.Error("expected done to be false initially")
	}
}

func TestModelProgressCountsSamples(t *testing.T) {
	m := NewModel(testOptions(), nil)

	ok := types.BenchmarkSample{Candidate: types.ImageCandidate{Path: "a.png"}, Succeeded: true, DecodeDurationMicros: 1500}
	bad := types.BenchmarkSample{Candidate: types.ImageCandidate{Path: "b.png"}, FailureReason: types.FailureDecode}

	m, _ = update(t, m, ProgressMsg{Phase: engine.PhaseBenchmarking, Index: 0, Total: 2, Path: "a.png", Accepted: 2})
	if len(m.samples) != 0 {
		t.Fatalf("start updates must not add samples, got %d", len(m.samples))
	}

	m, _ = update(t, m, ProgressMsg{Phase: engine.PhaseBenchmarking, Index: 1, Total: 2, Path: "a.png", Sample: &ok})
	m, _ = update(t, m, ProgressMsg{Phase: engine.PhaseBenchmarking, Index: 2, Total: 2, Path: "b.png", Sample: &bad})

	if len(m.samples) != 2 {
		t.Errorf("expected 2 samples, got %d", len(m.samples))
	}
	if m.failures != 1 {
		t.Errorf("expected 1 failure, got %d", m.failures)
	}
	if got := completed(m.progress); got != 2 {
		t.Errorf("expected 2 completed, got %d", got)
	}

	view := m.View()
	for _, want := range []string{"a.png", "b.png", "decode_failure"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelStopCancels(t *testing.T) {
	cancelled := false
	m := NewModel(testOptions(), func() { cancelled = true })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	if !cancelled {
		t.Error("expected q to cancel the run")
	}
	if !m.stopping {
		t.Error("expected stopping state")
	}
	if cmd != nil {
		t.Error("the view must stay open until the engine returns")
	}
	if !strings.Contains(m.View(), "Stopping") {
		t.Error("expected stopping status in view")
	}
}

func TestModelDoneQuits(t *testing.T) {
	m := NewModel(testOptions(), nil)
	p := profile.Build(tuner.TierGood, nil)

	m, cmd := update(t, m, DoneMsg{Profile: p})
	if !m.done {
		t.Fatal("expected done")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit")
	}

	got, err := m.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tier != tuner.TierGood {
		t.Errorf("expected tier good, got %s", got.Tier)
	}
}

func TestModelDoneWithError(t *testing.T) {
	m := NewModel(testOptions(), nil)
	m, _ = update(t, m, DoneMsg{Err: types.ErrScanFailed})

	if _, err := m.Result(); !errors.Is(err, types.ErrScanFailed) {
		t.Errorf("expected ErrScanFailed, got %v", err)
	}
	if !strings.Contains(m.View(), "Error") {
		t.Error("expected error status in view")
	}
}

func TestModelResultBeforeDone(t *testing.T) {
	m := NewModel(testOptions(), nil)
	if _, err := m.Result(); err == nil {
		t.Error("expected error before the run finished")
	}
}

func TestModelLogPane(t *testing.T) {
	m := NewModel(testOptions(), nil)
	m, _ = update(t, m, LogMsg{Time: time.Now(), Level: logging.LevelWarn, Component: "runner", Message: "decode timed out"})

	if strings.Contains(m.View(), "decode timed out") {
		t.Error("log pane should be hidden by default")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")})
	if !strings.Contains(m.View(), "decode timed out") {
		t.Error("expected log entry in view after toggling the pane")
	}
}

func TestModelLogBufferIsBounded(t *testing.T) {
	m := NewModel(testOptions(), nil)
	for range logging.DefaultBufferSize + 10 {
		m, _ = update(t, m, LogMsg{Message: "x"})
	}
	if len(m.logs) != logging.DefaultBufferSize {
		t.Errorf("expected %d entries, got %d", logging.DefaultBufferSize, len(m.logs))
	}
}

func TestModelWindowSize(t *testing.T) {
	m := NewModel(testOptions(), nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	if m.width != 120 || m.height != 40 {
		t.Errorf("expected 120x40, got %dx%d", m.width, m.height)
	}
}

func TestCompletedClamps(t *testing.T) {
	tests := []struct {
		p    engine.Progress
		want int
	}{
		{engine.Progress{Index: 0, Total: 0}, 0},
		{engine.Progress{Index: 3, Total: 5}, 3},
		{engine.Progress{Index: 7, Total: 5}, 5},
		{engine.Progress{Index: -1, Total: 5}, 0},
	}
	for _, tt := range tests {
		if got := completed(tt.p); got != tt.want {
			t.Errorf("completed(%+v) = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{1500 * time.Millisecond, "0:02"},
		{90 * time.Second, "1:30"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestTruncatePath(t *testing.T) {
	if got := truncatePath("/a/b/c.png", 20); got != "/a/b/c.png" {
		t.Errorf("short path changed: %q", got)
	}
	if got := truncatePath("/very/long/path/to/image.png", 12); got != "...image.png" {
		t.Errorf("unexpected truncation: %q", got)
	}
}

func TestRenderLogEntryTruncates(t *testing.T) {
	e := logging.Entry{Level: logging.LevelError, Component: "averylongcomponent", Message: strings.Repeat("m", 200)}
	line := renderLogEntry(e, 60)

	if !strings.Contains(line, "...") {
		t.Error("expected message to be truncated")
	}
	if strings.Contains(line, "averylongcomponent") {
		t.Error("expected component to be truncated")
	}
}
