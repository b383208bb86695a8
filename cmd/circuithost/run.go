package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mrgeneko/LiveSPICE/internal/audio"
	"github.com/mrgeneko/LiveSPICE/internal/circuit"
	"github.com/mrgeneko/LiveSPICE/internal/config"
	"github.com/mrgeneko/LiveSPICE/internal/control"
	"github.com/mrgeneko/LiveSPICE/internal/engine"
	"github.com/mrgeneko/LiveSPICE/internal/logger"
	"github.com/mrgeneko/LiveSPICE/internal/perf"
	"github.com/mrgeneko/LiveSPICE/internal/tui"
	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

// runRequest is a validated run handed to the runner.
type runRequest struct {
	Session     *config.Session
	Assignments []control.Assignment
	Registry    *circuit.Registry
	Logger      *logger.Logger
	Out         io.Writer
	Interactive bool
}

var runCmdRunner = runProcess

const progressInterval = 50 * time.Millisecond

func newRunCmd(root *rootFlags, app *AppContext) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process a WAV file through a circuit module",
		Example: `  circuithost run -i guitar.wav -c ./tube.so -o out.wav -p Gain=0.8 -m
  circuithost run -i guitar.wav -c builtin:tube -o out.wav -b 128 -O 4
  circuithost run --config session.yaml --report report.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, assignments, err := buildSession(cmd, opts, root.verbose)
			if err != nil {
				return err
			}

			log, err := app.newLogger(root, session.Verbose)
			if err != nil {
				return err
			}

			return runCmdRunner(cmd.Context(), runRequest{
				Session:     session,
				Assignments: assignments,
				Registry:    app.Registry,
				Logger:      log,
				Out:         cmd.OutOrStdout(),
				Interactive: app.Interactive(),
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.ConfigPath, "config", "", "Session file (YAML); flags override its values")
	f.StringVarP(&opts.Input, "input", "i", "", "Input WAV file")
	f.StringVarP(&opts.Circuit, "circuit", "c", "", "Compiled circuit module (.so/.dylib/.dll) or builtin:<name>")
	f.StringVarP(&opts.Output, "output", "o", "", "Output WAV file")
	f.IntVarP(&opts.SampleRate, "sample-rate", "r", 0, "Sample rate in Hz; must match the input (default: the input's rate)")
	f.IntVarP(&opts.BufferSize, "buffer-size", "b", config.DefaultBufferSize, "Frames per buffer")
	f.IntVarP(&opts.Oversample, "oversample", "O", config.DefaultOversample, "Oversampling factor")
	f.StringArrayVarP(&opts.Params, "param", "p", nil, "Set a parameter as Name=value (repeatable)")
	f.BoolVarP(&opts.MeasureLatency, "measure-latency", "m", false, "Print the latency analysis")
	f.DurationVar(&opts.LatencyThreshold, "latency-threshold", perf.DefaultLatencyThreshold, "Latency above which a warning is shown")
	f.StringVar(&opts.ReportPath, "report", "", "Write the performance report as YAML to this file")

	return cmd
}

func runProcess(ctx context.Context, req runRequest) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	session := req.Session
	log := req.Logger

	loader := circuit.NewLoader(req.Registry, log)
	defer func() { err = errors.Join(err, loader.Close()) }()

	mod, err := loader.Load(session.Circuit)
	if err != nil {
		return err
	}

	src, err := audio.OpenWAV(session.Input)
	if err != nil {
		return err
	}
	defer src.Close()

	format := src.Format()
	if session.SampleRate != 0 && session.SampleRate != format.SampleRate {
		return hosterrors.NewConfigMismatch("sample_rate", format.SampleRate, session.SampleRate)
	}

	cctx, err := mod.NewContext(circuit.ContextConfig{
		SampleRate: format.SampleRate,
		BufferSize: session.BufferSize,
		Oversample: session.Oversample,
	})
	if err != nil {
		return err
	}
	defer cctx.Close()

	ctrl, err := control.New(cctx, log)
	if err != nil {
		return err
	}
	if err := ctrl.Apply(req.Assignments); err != nil {
		return err
	}

	circuitData := tui.CircuitData{
		Path:       session.Circuit,
		Config:     cctx.Config(),
		Parameters: ctrl.Parameters(),
	}
	if info, ok := mod.Info(); ok {
		circuitData.Info = &info
	}
	fmt.Fprintln(req.Out, tui.RenderCircuit(circuitData))

	sink, err := audio.CreateWAV(session.Output, format)
	if err != nil {
		return err
	}
	defer sink.Close()

	meteredSrc := audio.MeterSource(src)
	meteredSink := audio.MeterSink(sink)
	monitor := perf.NewMonitor(format.SampleRate, session.BufferSize, session.LatencyThreshold())

	log.WithFields(map[string]any{
		"input":       session.Input,
		"output":      session.Output,
		"sample_rate": format.SampleRate,
		"channels":    format.Channels,
		"bit_depth":   format.BitDepth,
		"frames":      src.TotalFrames(),
	}).Info("processing started")

	opts := engine.Options{
		FrameSize: session.BufferSize,
		Monitor:   monitor,
		Logger:    log,
		Pending:   ctrl,
	}

	var result engine.Result
	if req.Interactive {
		result, err = streamInteractive(ctx, opts, cctx, meteredSrc, meteredSink, src.TotalFrames(), session.Circuit, monitor)
	} else {
		result, err = engine.New(opts).Run(ctx, cctx, meteredSrc, meteredSink)
	}
	if err != nil {
		return err
	}

	if err := sink.Close(); err != nil {
		return err
	}

	perfReport := monitor.Report()
	inLevel := meteredSrc.Meter.Level()
	outLevel := meteredSink.Meter.Level()
	fmt.Fprintln(req.Out, tui.RenderReport(tui.ReportData{
		Performance:    perfReport,
		InputLevel:     &inLevel,
		OutputLevel:    &outLevel,
		MeasureLatency: session.MeasureLatency,
	}))

	log.WithFields(map[string]any{
		"buffers":         result.Buffers,
		"frames":          result.Frames,
		"real_time_ratio": perfReport.RealTimeRatio,
		"dsp_load":        perfReport.DSPLoadPercent,
	}).Info("processing complete")

	if perfReport.Overloaded {
		log.Warn("circuit processed slower than real time")
	}
	if session.MeasureLatency && perfReport.LatencyExceeded {
		log.WithFields(map[string]any{
			"latency":   perfReport.Latency.String(),
			"threshold": perfReport.LatencyThreshold.String(),
		}).Warn("buffer latency exceeds the recommended threshold")
	}

	if session.Report != "" {
		if err := writeReport(session.Report, perfReport); err != nil {
			return err
		}
	}

	return nil
}

// streamInteractive runs the engine while a Bubbletea program shows progress.
func streamInteractive(
	ctx context.Context,
	opts engine.Options,
	proc engine.Processor,
	src engine.Source,
	sink engine.Sink,
	totalFrames int64,
	title string,
	monitor *perf.Monitor,
) (engine.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(tui.NewModel(title, totalFrames, cancel))

	var (
		wg         sync.WaitGroup
		programErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, programErr = program.Run()
	}()

	var last time.Time
	opts.OnBuffer = func(p engine.Progress) {
		if now := time.Now(); now.Sub(last) >= progressInterval {
			last = now
			program.Send(tui.ProgressMsg{Buffers: p.Buffers, Frames: p.Frames})
		}
	}

	result, err := engine.New(opts).Run(ctx, proc, src, sink)
	program.Send(tui.ProgressMsg{Buffers: result.Buffers, Frames: result.Frames})
	program.Send(tui.DoneMsg{Report: monitor.Report(), Err: err})
	wg.Wait()

	if err != nil {
		return result, err
	}
	return result, programErr
}

func writeReport(path string, report perf.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return hosterrors.NewIOError(path, "create", err)
	}
	if err := report.WriteYAML(f); err != nil {
		_ = f.Close()
		return hosterrors.NewIOError(path, "write", err)
	}
	if err := f.Close(); err != nil {
		return hosterrors.NewIOError(path, "close", err)
	}
	return nil
}
