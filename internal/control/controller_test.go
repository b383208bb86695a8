package control

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrgeneko/LiveSPICE/internal/circuit"
	"github.com/mrgeneko/LiveSPICE/internal/circuit/tube"
	"github.com/mrgeneko/LiveSPICE/internal/logger"
)

func newTubeContext(t *testing.T, mutate func(*circuit.Capabilities)) *circuit.Context {
	t.Helper()

	reg := circuit.NewRegistry()
	require.NoError(t, reg.Register("tube", func() circuit.Capabilities {
		caps := tube.Capabilities()
		if mutate != nil {
			mutate(&caps)
		}
		return caps
	}))
	loader := circuit.NewLoader(reg, nil)
	t.Cleanup(func() { _ = loader.Close() })

	mod, err := loader.Load("builtin:tube")
	require.NoError(t, err)
	ctx, err := mod.NewContext(circuit.ContextConfig{SampleRate: 48000, BufferSize: 64, Oversample: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func TestNewRequiresContext(t *testing.T) {
	t.Parallel()

	_, err := New(nil, nil)
	require.Error(t, err)
}

func TestControllerEnumeratesOnce(t *testing.T) {
	t.Parallel()

	ctrl, err := New(newTubeContext(t, nil), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Gain", "Distortion", "Volume"}, ctrl.Names())
	require.Equal(t, 3, ctrl.Count())

	name, ok := ctrl.ParameterName(2)
	require.True(t, ok)
	require.Equal(t, "Volume", name)

	_, ok = ctrl.ParameterName(3)
	require.False(t, ok)

	params := ctrl.Parameters()
	require.Len(t, params, 3)
	require.Equal(t, Parameter{Index: 2, Name: "Volume", Value: 0.7}, params[2])
}

func TestSetClampsOutOfRangeValues(t *testing.T) {
	t.Parallel()

	ctrl, err := New(newTubeContext(t, nil), nil)
	require.NoError(t, err)

	require.NoError(t, ctrl.Set("Gain", 1.5))
	require.Equal(t, 1.0, ctrl.Get("Gain"))

	require.NoError(t, ctrl.Set("Gain", -0.25))
	require.Equal(t, 0.0, ctrl.Get("Gain"))

	require.NoError(t, ctrl.Set("Volume", 0.3))
	require.Equal(t, 0.3, ctrl.Get("Volume"))
}

func TestUnknownNameLogsWarningAndChangesNothing(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Level: "debug", Writer: &buf})
	require.NoError(t, err)

	ctrl, err := New(newTubeContext(t, nil), log)
	require.NoError(t, err)

	before := ctrl.Parameters()
	require.NoError(t, ctrl.Set("Bias", 0.9))
	require.Equal(t, before, ctrl.Parameters())
	require.Zero(t, ctrl.Get("Bias"))
	require.Contains(t, buf.String(), "unknown parameter ignored")
	require.Contains(t, buf.String(), `"parameter":"Bias"`)
}

func TestMissingSetParameterIsNoOp(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := logger.New(logger.Options{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	ctx := newTubeContext(t, func(caps *circuit.Capabilities) { caps.SetParameter = nil })
	ctrl, err := New(ctx, log)
	require.NoError(t, err)

	require.NoError(t, ctrl.Set("Gain", 1))
	require.Equal(t, 0.5, ctrl.Get("Gain"))
	require.Contains(t, buf.String(), "does not accept parameter changes")
}

func TestWithoutEnumerationNamesPassThrough(t *testing.T) {
	t.Parallel()

	ctx := newTubeContext(t, func(caps *circuit.Capabilities) {
		caps.NumParameters = nil
		caps.ParameterName = nil
	})
	ctrl, err := New(ctx, nil)
	require.NoError(t, err)

	require.Zero(t, ctrl.Count())
	require.Empty(t, ctrl.Parameters())
	require.NoError(t, ctrl.Set("Distortion", 0.9))
	require.Equal(t, 0.9, ctrl.Get("Distortion"))
}

func TestGetAfterCloseReturnsZero(t *testing.T) {
	t.Parallel()

	ctx := newTubeContext(t, nil)
	ctrl, err := New(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, ctx.Close())
	require.Zero(t, ctrl.Get("Gain"))
	require.ErrorIs(t, ctrl.Set("Gain", 0.1), circuit.ErrContextClosed)

	var nilCtrl *Controller
	require.Zero(t, nilCtrl.Get("Gain"))
	require.Zero(t, nilCtrl.ApplyPending())
}

func TestEnqueueAppliesBetweenBuffers(t *testing.T) {
	t.Parallel()

	ctrl, err := New(newTubeContext(t, nil), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.Enqueue("Distortion", 0.2)
		}()
	}
	wg.Wait()

	require.Equal(t, 0.5, ctrl.Get("Distortion"))
	require.Equal(t, 10, ctrl.ApplyPending())
	require.Equal(t, 0.2, ctrl.Get("Distortion"))
	require.Zero(t, ctrl.ApplyPending())
}

func TestParseAssignment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		want    Assignment
		wantErr bool
	}{
		{raw: "Gain=0.8", want: Assignment{Name: "Gain", Value: 0.8}},
		{raw: " Volume = 1 ", want: Assignment{Name: "Volume", Value: 1}},
		{raw: "Drive=2.5", want: Assignment{Name: "Drive", Value: 2.5}},
		{raw: "Gain", wantErr: true},
		{raw: "=0.3", wantErr: true},
		{raw: "Gain=loud", wantErr: true},
		{raw: "Gain=NaN", wantErr: true},
		{raw: "Gain=+Inf", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseAssignment(tc.raw)
		if tc.wantErr {
			require.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		require.Equal(t, tc.want, got)
	}
}

func TestParseAssignmentsKeepsOrder(t *testing.T) {
	t.Parallel()

	got, err := ParseAssignments([]string{"B=0.1", "A=0.2", "B=0.3"})
	require.NoError(t, err)
	require.Equal(t, []Assignment{{"B", 0.1}, {"A", 0.2}, {"B", 0.3}}, got)

	_, err = ParseAssignments([]string{"A=0.1", "broken"})
	require.Error(t, err)
}

func TestFromMapSortsByName(t *testing.T) {
	t.Parallel()

	got := FromMap(map[string]float64{"Volume": 0.4, "Gain": 0.9})
	require.Equal(t, []Assignment{{"Gain", 0.9}, {"Volume", 0.4}}, got)
}
