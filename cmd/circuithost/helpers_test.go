package main

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrgeneko/LiveSPICE/internal/audio"
	"github.com/mrgeneko/LiveSPICE/internal/circuit"
)

type testApp struct {
	app  *AppContext
	logs *bytes.Buffer
}

func newTestApp(t *testing.T) testApp {
	t.Helper()

	registry := circuit.NewRegistry()
	require.NoError(t, registerBuiltins(registry))

	logs := &bytes.Buffer{}
	return testApp{
		app: &AppContext{
			Registry:    registry,
			LogWriter:   logs,
			Interactive: func() bool { return false },
		},
		logs: logs,
	}
}

func (a testApp) execute(args ...string) (string, error) {
	root := newRootCmd(a.app)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// writeTone writes a stereo 16-bit sine of frames frames at sampleRate.
func writeTone(t *testing.T, dir string, sampleRate, frames int) string {
	t.Helper()

	path := filepath.Join(dir, "in.wav")
	sink, err := audio.CreateWAV(path, audio.Format{SampleRate: sampleRate, Channels: 2, BitDepth: 16})
	require.NoError(t, err)

	samples := make([]float32, frames*2)
	for f := 0; f < frames; f++ {
		v := float32(0.5 * math.Sin(2*math.Pi*440*float64(f)/float64(sampleRate)))
		samples[2*f] = v
		samples[2*f+1] = v
	}
	require.NoError(t, sink.Write(samples, frames))
	require.NoError(t, sink.Close())
	return path
}
