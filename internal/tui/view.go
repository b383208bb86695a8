package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrgeneko/LiveSPICE/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("circuithost • %s", m.displayTitle())))

	progress := components.NewProgress(m.totalFrames).View(m.frames)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	if m.report != nil && m.report.Buffers > 0 {
		sections = append(sections, fmt.Sprintf("DSP load %.1f%% • real-time ratio %.2fx",
			m.report.DSPLoadPercent, m.report.RealTimeRatio))
	}

	summary := components.NewSummary(components.SummaryData{
		Buffers:   m.buffers,
		Frames:    m.frames,
		Finished:  m.finished,
		Cancelled: m.cancelled,
		Err:       m.err,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, summaryStyle.Render(summary))
	}

	if !m.finished {
		sections = append(sections, labelStyle.Render("ctrl+c to stop"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) displayTitle() string {
	if strings.TrimSpace(m.title) != "" {
		return m.title
	}
	return "processing"
}
