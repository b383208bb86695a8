package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mrgeneko/LiveSPICE/internal/circuit"
	"github.com/mrgeneko/LiveSPICE/internal/circuit/tube"
	"github.com/mrgeneko/LiveSPICE/internal/tui"
	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

const (
	exitOK          = 0
	exitUsage       = 1
	exitLoad        = 2
	exitInit        = 3
	exitStream      = 4
	exitWrite       = 5
	exitInterrupted = 130
)

func main() {
	registry := circuit.NewRegistry()
	if err := registerBuiltins(registry); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register builtin circuits: %v\n", err)
		os.Exit(exitUsage)
	}

	app := newAppContext(registry)
	err := newRootCmd(app).Execute()
	os.Exit(report(os.Stderr, err))
}

func registerBuiltins(registry *circuit.Registry) error {
	return registry.Register(tube.Name, tube.Capabilities)
}

// report prints err as "<stage> failed: <cause>" and returns the exit code.
func report(w io.Writer, err error) int {
	if err == nil {
		return exitOK
	}

	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "interrupted")
		return exitInterrupted
	}

	stage := hosterrors.StageOf(err)
	if stage == "" {
		fmt.Fprintf(w, "error: %v\n", err)
		return exitUsage
	}

	fmt.Fprintln(w, tui.RenderError(string(stage), err))
	return exitCode(stage)
}

func exitCode(stage hosterrors.Stage) int {
	switch stage {
	case hosterrors.StageLoad:
		return exitLoad
	case hosterrors.StageInit:
		return exitInit
	case hosterrors.StageStream:
		return exitStream
	case hosterrors.StageWrite:
		return exitWrite
	default:
		return exitUsage
	}
}
