package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrgeneko/LiveSPICE/internal/audio"
	"github.com/mrgeneko/LiveSPICE/internal/circuit"
	"github.com/mrgeneko/LiveSPICE/internal/control"
	"github.com/mrgeneko/LiveSPICE/internal/perf"
)

// CircuitData is what the host knows about a loaded circuit before streaming.
type CircuitData struct {
	Path       string
	Info       *circuit.Info
	Config     circuit.ContextConfig
	Parameters []control.Parameter
}

// ReportData is everything shown after a run.
type ReportData struct {
	Circuit        CircuitData
	Performance    perf.Report
	InputLevel     *audio.Level
	OutputLevel    *audio.Level
	MeasureLatency bool
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// RenderCircuit renders circuit metadata, the context configuration and the
// parameter values.
func RenderCircuit(data CircuitData) string {
	var sections []string

	title := data.Path
	if data.Info != nil && strings.TrimSpace(data.Info.Name) != "" {
		title = data.Info.Name
	}
	sections = append(sections, titleStyle.Render(title))

	if data.Info != nil {
		info := data.Info
		lines := []string{}
		if info.Description != "" {
			lines = append(lines, row("Description", info.Description))
		}
		lines = append(lines,
			row("Inputs / outputs", fmt.Sprintf("%d / %d", info.NumInputs, info.NumOutputs)),
			row("Recommended", fmt.Sprintf("oversample %d, iterations %d", info.RecommendedOversample, info.RecommendedIterations)),
		)
		sections = append(sections, sectionStyle.Render("Circuit"), strings.Join(lines, "\n"))
	}

	cfg := data.Config
	if cfg.SampleRate > 0 {
		sections = append(sections, sectionStyle.Render("Context"), strings.Join([]string{
			row("Sample rate", fmt.Sprintf("%d Hz", cfg.SampleRate)),
			row("Buffer size", fmt.Sprintf("%d frames", cfg.BufferSize)),
			row("Oversample", fmt.Sprintf("%dx", cfg.Oversample)),
			row("Timestep", fmt.Sprintf("%.3g s", cfg.Timestep())),
		}, "\n"))
	}

	sections = append(sections, sectionStyle.Render("Parameters"))
	if len(data.Parameters) == 0 {
		sections = append(sections, labelStyle.Render("none"))
	} else {
		lines := make([]string, 0, len(data.Parameters))
		for _, p := range data.Parameters {
			lines = append(lines, row(fmt.Sprintf("[%d] %s", p.Index, p.Name), fmt.Sprintf("%.3f", p.Value)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.3f ms", float64(d)/float64(time.Millisecond))
}

func dbfs(v float64) string {
	db := audio.DBFS(v)
	if math.IsInf(db, -1) {
		return "-inf dBFS"
	}
	return fmt.Sprintf("%.1f dBFS", db)
}

// RenderReport renders the post-run performance report.
func RenderReport(data ReportData) string {
	r := data.Performance
	var sections []string

	sections = append(sections, sectionStyle.Render("Performance"), strings.Join([]string{
		row("Buffers", fmt.Sprintf("%d (%d frames)", r.Buffers, r.Frames)),
		row("Audio duration", millis(r.AudioDuration)),
		row("Processing time", millis(r.ProcessingTime)),
		row("Real-time ratio", fmt.Sprintf("%.2fx", r.RealTimeRatio)),
		row("DSP load", loadText(r)),
		row("Per buffer", fmt.Sprintf("min %s, mean %s, max %s, stddev %s",
			millis(r.MinCall), millis(r.MeanCall), millis(r.MaxCall), millis(r.StdDevCall))),
		row("Overruns", fmt.Sprintf("%d", r.Overruns)),
	}, "\n"))

	if data.InputLevel != nil || data.OutputLevel != nil {
		var lines []string
		if data.InputLevel != nil {
			lines = append(lines, row("Input", levelText(*data.InputLevel)))
		}
		if data.OutputLevel != nil {
			lines = append(lines, row("Output", levelText(*data.OutputLevel)))
		}
		sections = append(sections, sectionStyle.Render("Levels"), strings.Join(lines, "\n"))
	}

	if data.MeasureLatency {
		sections = append(sections, sectionStyle.Render("Latency Analysis"), latencyText(r))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func loadText(r perf.Report) string {
	text := fmt.Sprintf("%.1f%%", r.DSPLoadPercent)
	if r.Overloaded {
		return warnStyle.Render(text + " (slower than real time)")
	}
	return okStyle.Render(text)
}

func levelText(l audio.Level) string {
	return fmt.Sprintf("peak %s, rms %s", dbfs(l.Peak), dbfs(l.RMS))
}

func latencyText(r perf.Report) string {
	lines := []string{
		row("Buffer size", fmt.Sprintf("%d samples", r.BufferSize)),
		row("Sample rate", fmt.Sprintf("%d Hz", r.SampleRate)),
		row("Buffer latency", fmt.Sprintf("%.2f ms", r.LatencyMillis())),
		row("Threshold", millis(r.LatencyThreshold)),
	}
	if r.LatencyExceeded {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("⚠ latency exceeds the recommended %s", r.LatencyThreshold)))
	} else {
		lines = append(lines, okStyle.Render("✓ latency is within the recommended threshold"))
	}
	return strings.Join(lines, "\n")
}

// RenderError renders a failure line for interactive output.
func RenderError(stage string, err error) string {
	return failureStyle.Render(fmt.Sprintf("%s failed: %v", stage, err))
}
