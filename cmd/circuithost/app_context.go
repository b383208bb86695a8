package main

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/mrgeneko/LiveSPICE/internal/circuit"
	"github.com/mrgeneko/LiveSPICE/internal/logger"
)

// AppContext bundles long-lived services created at startup.
type AppContext struct {
	Registry    *circuit.Registry
	LogWriter   io.Writer
	Interactive func() bool
}

func newAppContext(registry *circuit.Registry) *AppContext {
	return &AppContext{
		Registry:  registry,
		LogWriter: os.Stderr,
		Interactive: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}

func (a *AppContext) newLogger(flags *rootFlags, verbose bool) (*logger.Logger, error) {
	level := "info"
	if verbose || flags.verbose {
		level = "debug"
	}
	return logger.New(logger.Options{
		Level:         level,
		HumanReadable: flags.logFormat != "json",
		Writer:        a.LogWriter,
		Component:     "circuithost",
	})
}
