package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommandOutputsBuildInfo(t *testing.T) {
	originalVersion := version
	originalCommit := commit
	originalDate := date
	t.Cleanup(func() {
		version = originalVersion
		commit = originalCommit
		date = originalDate
	})

	version = "1.2.3"
	commit = "abcdef1"
	date = "2026-03-14"

	output, err := newTestApp(t).execute("version")
	require.NoError(t, err)
	require.Contains(t, output, "circuithost 1.2.3")
	require.Contains(t, output, "abcdef1")
	require.Contains(t, output, "2026-03-14")
}
