package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates counts for rendering a run summary.
type SummaryData struct {
	Buffers   int
	Frames    int64
	Finished  bool
	Cancelled bool
	Err       error
}

// Summary renders a textual streaming summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Buffers > 0 {
		lines = append(lines, fmt.Sprintf("Buffers: %d (%d frames)", s.data.Buffers, s.data.Frames))
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Processing cancelled")
	case s.data.Err != nil:
		lines = append(lines, fmt.Sprintf("Processing failed: %v", s.data.Err))
	case s.data.Finished:
		lines = append(lines, "Processing complete")
	}

	return strings.Join(lines, "\n")
}
