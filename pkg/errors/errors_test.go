package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("session.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "session.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "session.yaml:12")
	require.Equal(t, StageConfig, StageOf(err))
}

func TestValidationErrorIncludesField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("buffer_size", "must be at least 1", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "buffer_size", validationErr.Field)
	require.Contains(t, err.Error(), "must be at least 1")
	require.Equal(t, StageConfig, StageOf(err))
}

func TestLoadErrorIncludesPath(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("wrong ELF class")
	err := NewLoadError("/tmp/fuzz.so", underlying)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	require.Equal(t, "/tmp/fuzz.so", loadErr.Path)
	require.True(t, stdErrors.Is(err, underlying))
	require.Equal(t, StageLoad, StageOf(err))
}

func TestContractViolationListsMissing(t *testing.T) {
	t.Parallel()

	err := NewContractViolation("fuzz.so", []string{"process", "cleanup"})

	var cv *ContractViolation
	require.ErrorAs(t, err, &cv)
	require.Equal(t, []string{"process", "cleanup"}, cv.Missing)
	require.Contains(t, err.Error(), "process, cleanup")
	require.Equal(t, StageLoad, StageOf(err))
}

func TestInitErrorCarriesConfiguration(t *testing.T) {
	t.Parallel()

	err := NewInitError(48000, 256, 8, nil)
	require.Contains(t, err.Error(), "sample_rate=48000")
	require.Contains(t, err.Error(), "oversample=8")
	require.Equal(t, StageInit, StageOf(err))
}

func TestIOErrorStages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		op    string
		stage Stage
	}{
		{"open", StageStream},
		{"read", StageStream},
		{"create", StageWrite},
		{"write", StageWrite},
		{"close", StageWrite},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.op, func(t *testing.T) {
			t.Parallel()
			err := NewIOError("out.wav", tc.op, stdErrors.New("disk full"))
			require.Equal(t, tc.stage, StageOf(err))
			require.Contains(t, err.Error(), "out.wav")
		})
	}
}

func TestStageOfWrappedAndPlainErrors(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("run: %w", NewConfigMismatch("channels", 2, 1))
	require.Equal(t, StageStream, StageOf(wrapped))
	require.Equal(t, Stage(""), StageOf(stdErrors.New("plain")))
	require.Equal(t, Stage(""), StageOf(nil))
}

func TestProcessErrorIsStreamStage(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("context closed")
	err := fmt.Errorf("run: %w", NewProcessError(3, underlying))

	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	require.Equal(t, 3, procErr.Buffer)
	require.ErrorIs(t, err, underlying)
	require.Contains(t, err.Error(), "process buffer 3")
	require.Equal(t, StageStream, StageOf(err))
}
