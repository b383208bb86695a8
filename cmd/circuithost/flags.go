package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrgeneko/LiveSPICE/internal/config"
	"github.com/mrgeneko/LiveSPICE/internal/control"
	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

type runOptions struct {
	ConfigPath       string
	Input            string
	Circuit          string
	Output           string
	SampleRate       int
	BufferSize       int
	Oversample       int
	Params           []string
	MeasureLatency   bool
	LatencyThreshold time.Duration
	ReportPath       string
}

// buildSession loads the session file, if any, and overlays every flag the
// user set explicitly.
func buildSession(cmd *cobra.Command, opts runOptions, verbose bool) (*config.Session, []control.Assignment, error) {
	session := config.Default()
	if strings.TrimSpace(opts.ConfigPath) != "" {
		if err := validateFilePath(opts.ConfigPath, "config"); err != nil {
			return nil, nil, err
		}
		loaded, err := config.ParseSession(opts.ConfigPath)
		if err != nil {
			return nil, nil, err
		}
		session = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		session.Input = opts.Input
	}
	if flags.Changed("circuit") {
		session.Circuit = opts.Circuit
	}
	if flags.Changed("output") {
		session.Output = opts.Output
	}
	if flags.Changed("sample-rate") {
		session.SampleRate = opts.SampleRate
	}
	if flags.Changed("buffer-size") {
		session.BufferSize = opts.BufferSize
	}
	if flags.Changed("oversample") {
		session.Oversample = opts.Oversample
	}
	if flags.Changed("measure-latency") {
		session.MeasureLatency = opts.MeasureLatency
	}
	if flags.Changed("latency-threshold") {
		session.SetLatencyThreshold(opts.LatencyThreshold)
	}
	if flags.Changed("report") {
		session.Report = opts.ReportPath
	}
	if verbose {
		session.Verbose = true
	}

	if err := config.ValidateSession(session); err != nil {
		return nil, nil, err
	}

	fromFlags, err := control.ParseAssignments(opts.Params)
	if err != nil {
		return nil, nil, hosterrors.NewValidationError("parameter", err.Error(), err)
	}
	assignments := append(control.FromMap(session.Parameters), fromFlags...)

	return session, assignments, nil
}

func validateFilePath(path, field string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return hosterrors.NewValidationError(field, fmt.Sprintf("resolve %s path", field), err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return hosterrors.NewValidationError(field, fmt.Sprintf("%s file does not exist", field), err)
	}
	if info.IsDir() {
		return hosterrors.NewValidationError(field, fmt.Sprintf("%s path %s is a directory", field, abs), nil)
	}
	return nil
}
