package components

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Progress renders how many frames of the input have been streamed.
type Progress struct {
	bar   progress.Model
	total int64
}

// NewProgress creates a progress component for total frames. A total of zero
// renders the count without a known end.
func NewProgress(total int64) Progress {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return Progress{bar: bar, total: total}
}

// View renders the bar for the supplied frame count.
func (p Progress) View(frames int64) string {
	ratio := 0.0
	label := fmt.Sprintf("%d frames", frames)
	if p.total > 0 {
		ratio = math.Min(1.0, float64(frames)/float64(p.total))
		label = fmt.Sprintf("%d/%d frames", frames, p.total)
	}
	styled := lipgloss.NewStyle().Bold(true).Render(label)
	return lipgloss.JoinHorizontal(lipgloss.Left, styled, " ", p.bar.ViewAs(ratio))
}
