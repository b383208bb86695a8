package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrgeneko/LiveSPICE/internal/audio"
	"github.com/mrgeneko/LiveSPICE/internal/circuit"
	"github.com/mrgeneko/LiveSPICE/internal/control"
	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

func TestRunProcessesBuiltinCircuit(t *testing.T) {
	dir := t.TempDir()
	in := writeTone(t, dir, 48000, 1000)
	out := filepath.Join(dir, "out.wav")
	reportPath := filepath.Join(dir, "report.yaml")

	app := newTestApp(t)
	stdout, err := app.execute("run", "-i", in, "-c", "builtin:tube", "-o", out,
		"-p", "Gain=0.8", "-p", "Volume=1.5", "-m", "--report", reportPath)
	require.NoError(t, err)

	require.Contains(t, stdout, "Simple Tube Distortion")
	require.Contains(t, stdout, "[0] Gain")
	require.Contains(t, stdout, "0.800")
	require.Contains(t, stdout, "1.000")
	require.Contains(t, stdout, "Real-time ratio")
	require.Contains(t, stdout, "Latency Analysis")
	require.Contains(t, stdout, "5.33 ms")
	require.Contains(t, app.logs.String(), "processing complete")

	src, err := audio.OpenWAV(out)
	require.NoError(t, err)
	defer src.Close()
	require.Equal(t, audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16}, src.Format())
	require.Equal(t, int64(1000), src.TotalFrames())

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var doc struct {
		Performance struct {
			Buffers int   `yaml:"buffers"`
			Frames  int64 `yaml:"frames"`
		} `yaml:"performance"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	require.Equal(t, 4, doc.Performance.Buffers)
	require.Equal(t, int64(1000), doc.Performance.Frames)
}

func TestRunUnknownParameterIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	in := writeTone(t, dir, 44100, 300)

	app := newTestApp(t)
	_, err := app.execute("run", "-i", in, "-c", "builtin:tube", "-o", filepath.Join(dir, "out.wav"), "-p", "Bias=0.4")
	require.NoError(t, err)
	require.Contains(t, app.logs.String(), "unknown parameter ignored")
}

func TestRunErrorStages(t *testing.T) {
	dir := t.TempDir()
	in := writeTone(t, dir, 48000, 64)
	out := filepath.Join(dir, "out.wav")

	cases := []struct {
		name  string
		args  []string
		stage hosterrors.Stage
		code  int
	}{
		{"missing module", []string{"run", "-i", in, "-c", filepath.Join(dir, "missing.so"), "-o", out}, hosterrors.StageLoad, exitLoad},
		{"unknown builtin", []string{"run", "-i", in, "-c", "builtin:fuzz", "-o", out}, hosterrors.StageLoad, exitLoad},
		{"bad oversample", []string{"run", "-i", in, "-c", "builtin:tube", "-o", out, "-O", "0"}, hosterrors.StageConfig, exitUsage},
		{"missing input", []string{"run", "-i", filepath.Join(dir, "nope.wav"), "-c", "builtin:tube", "-o", out}, hosterrors.StageStream, exitStream},
		{"sample rate mismatch", []string{"run", "-i", in, "-c", "builtin:tube", "-o", out, "-r", "44100"}, hosterrors.StageStream, exitStream},
		{"unwritable output", []string{"run", "-i", in, "-c", "builtin:tube", "-o", filepath.Join(dir, "no", "such", "out.wav")}, hosterrors.StageWrite, exitWrite},
		{"malformed parameter", []string{"run", "-i", in, "-c", "builtin:tube", "-o", out, "-p", "Gain"}, hosterrors.StageConfig, exitUsage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestApp(t).execute(tc.args...)
			require.Error(t, err)
			require.Equal(t, tc.stage, hosterrors.StageOf(err))
			require.Equal(t, tc.code, exitCode(hosterrors.StageOf(err)))
		})
	}
}

func TestRunAbsentContextIsInitStage(t *testing.T) {
	dir := t.TempDir()
	in := writeTone(t, dir, 48000, 64)
	out := filepath.Join(dir, "out.wav")

	app := newTestApp(t)
	require.NoError(t, app.app.Registry.Register("stillborn", func() circuit.Capabilities {
		return circuit.Capabilities{
			Init:    func(int, int, int) circuit.Handle { return nil },
			Process: func(circuit.Handle, []float32, []float32, int, int) {},
			Cleanup: func(circuit.Handle) {},
		}
	}))

	_, err := app.execute("run", "-i", in, "-c", "builtin:stillborn", "-o", out)
	var initErr *hosterrors.InitError
	require.ErrorAs(t, err, &initErr)
	require.Equal(t, hosterrors.StageInit, hosterrors.StageOf(err))
	require.Equal(t, exitInit, report(io.Discard, err))
	require.NoFileExists(t, out)
}

func TestRunMergesSessionFileAndFlags(t *testing.T) {
	original := runCmdRunner
	t.Cleanup(func() { runCmdRunner = original })

	var captured runRequest
	runCmdRunner = func(_ context.Context, req runRequest) error {
		captured = req
		return nil
	}

	dir := t.TempDir()
	sessionPath := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(sessionPath, []byte(`input: a.wav
circuit: builtin:tube
output: b.wav
buffer_size: 512
oversample: 4
latency_threshold_ms: 20
parameters:
  Volume: 0.3
  Gain: 0.9
`), 0o644))

	_, err := newTestApp(t).execute("run", "--config", sessionPath, "-b", "128", "-p", "Gain=0.1", "--latency-threshold", "5ms")
	require.NoError(t, err)

	s := captured.Session
	require.Equal(t, "a.wav", s.Input)
	require.Equal(t, 128, s.BufferSize)
	require.Equal(t, 4, s.Oversample)
	require.Equal(t, 5*time.Millisecond, s.LatencyThreshold())
	require.Equal(t, []control.Assignment{{Name: "Gain", Value: 0.9}, {Name: "Volume", Value: 0.3}, {Name: "Gain", Value: 0.1}}, captured.Assignments)
	require.False(t, captured.Interactive)
}

func TestRunRequiresPaths(t *testing.T) {
	_, err := newTestApp(t).execute("run", "-c", "builtin:tube")
	var ve *hosterrors.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "input", ve.Field)
}

func TestRunRejectsMissingSessionFile(t *testing.T) {
	_, err := newTestApp(t).execute("run", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Equal(t, hosterrors.StageConfig, hosterrors.StageOf(err))
}
