package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mrgeneko/LiveSPICE/internal/perf"
)

// ProgressMsg reports streaming progress after a buffer.
type ProgressMsg struct {
	Buffers int
	Frames  int64
}

// DoneMsg ends the run with its final report.
type DoneMsg struct {
	Report perf.Report
	Err    error
}

// Model is the Bubbletea state for the streaming progress view.
type Model struct {
	title       string
	totalFrames int64
	buffers     int
	frames      int64
	report      *perf.Report
	err         error
	finished    bool
	cancelled   bool
	cancel      func()
}

// NewModel creates a model for a stream of totalFrames frames, zero when the
// length is unknown. cancel is called when the user interrupts.
func NewModel(title string, totalFrames int64, cancel func()) Model {
	return Model{title: title, totalFrames: totalFrames, cancel: cancel}
}

// Init starts the Bubbletea program. Redraws are driven by ProgressMsg.
func (m Model) Init() tea.Cmd {
	return nil
}

// Frames returns the number of frames streamed so far.
func (m Model) Frames() int64 { return m.frames }

// Buffers returns the number of buffers processed so far.
func (m Model) Buffers() int { return m.buffers }

// IsFinished reports whether streaming has ended.
func (m Model) IsFinished() bool { return m.finished }

// Cancelled reports whether the user interrupted the run.
func (m Model) Cancelled() bool { return m.cancelled }
