//go:build cgo

package circuit

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

// buildModule compiles testdata/<name>.c into a shared object, skipping the
// test when no C compiler is available.
func buildModule(t *testing.T, name string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shared object fixtures are built for unix loaders")
	}
	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	if _, err := exec.LookPath(cc); err != nil {
		t.Skipf("no C compiler: %v", err)
	}

	out := filepath.Join(t.TempDir(), name+".so")
	cmd := exec.Command(cc, "-shared", "-fPIC", "-o", out, filepath.Join("testdata", name+".c"))
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))
	return out
}

func TestNativeModuleWithoutProcessIsContractViolation(t *testing.T) {
	t.Parallel()

	path := buildModule(t, "noprocess")
	loader := NewLoader(NewRegistry(), nil)
	defer loader.Close()

	_, err := loader.Load(path)
	var violation *hosterrors.ContractViolation
	require.ErrorAs(t, err, &violation)
	require.Equal(t, []string{CapProcess}, violation.Missing)
	require.Equal(t, hosterrors.StageLoad, hosterrors.StageOf(err))
}

func TestNativeModuleLifecycle(t *testing.T) {
	t.Parallel()

	path := buildModule(t, "gain")
	loader := NewLoader(NewRegistry(), nil)
	defer loader.Close()

	mod, err := loader.Load(path)
	require.NoError(t, err)
	require.Empty(t, mod.Capabilities().Missing())

	info, ok := mod.Info()
	require.True(t, ok)
	require.Equal(t, Info{
		Name:                  "Test Gain",
		Description:           "Scales every sample",
		NumInputs:             2,
		NumOutputs:            2,
		RecommendedOversample: 4,
		RecommendedIterations: 2,
	}, info)

	_, err = mod.NewContext(ContextConfig{SampleRate: 48000, BufferSize: 0, Oversample: 1})
	var initErr *hosterrors.InitError
	require.ErrorAs(t, err, &initErr)

	ctx, err := mod.NewContext(ContextConfig{SampleRate: 48000, BufferSize: 4, Oversample: 2})
	require.NoError(t, err)

	n, err := ctx.NumParameters()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	name, ok, err := ctx.ParameterName(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Mix", name)

	_, ok, err = ctx.ParameterName(2)
	require.NoError(t, err)
	require.False(t, ok, "a NULL name is reported as absent")

	accepted, err := ctx.SetParameter("Gain", 1.7)
	require.NoError(t, err)
	require.True(t, accepted)
	require.Equal(t, 1.0, ctx.GetParameter("Gain"))

	_, err = ctx.SetParameter("Mix", -0.25)
	require.NoError(t, err)
	require.Equal(t, 0.0, ctx.GetParameter("Mix"))
	_, err = ctx.SetParameter("Mix", 0.5)
	require.NoError(t, err)

	in := []float32{0.1, -0.2, 0.3, -0.4}
	out := make([]float32, len(in))
	require.NoError(t, ctx.Process(in, out, 2, 2))
	require.InDeltaSlice(t, []float64{0.1, -0.2, 0.3, -0.4}, toFloat64(out), 1e-6)

	require.NoError(t, ctx.Close())
	require.NoError(t, ctx.Close())
	require.ErrorIs(t, ctx.Process(in, out, 2, 2), ErrContextClosed)
	require.Zero(t, ctx.GetParameter("Gain"))
}

func toFloat64(buf []float32) []float64 {
	out := make([]float64, len(buf))
	for i, v := range buf {
		out[i] = float64(v)
	}
	return out
}
