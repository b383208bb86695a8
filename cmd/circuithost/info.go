package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrgeneko/LiveSPICE/internal/circuit"
	"github.com/mrgeneko/LiveSPICE/internal/config"
	"github.com/mrgeneko/LiveSPICE/internal/control"
	"github.com/mrgeneko/LiveSPICE/internal/tui"
	hosterrors "github.com/mrgeneko/LiveSPICE/pkg/errors"
)

type infoOptions struct {
	Circuit    string
	SampleRate int
	BufferSize int
	Oversample int
}

func newInfoCmd(root *rootFlags, app *AppContext) *cobra.Command {
	opts := infoOptions{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show a circuit module's metadata and parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if strings.TrimSpace(opts.Circuit) == "" {
				return hosterrors.NewValidationError("circuit", "circuit module is required", nil)
			}

			log, err := app.newLogger(root, false)
			if err != nil {
				return err
			}

			loader := circuit.NewLoader(app.Registry, log)
			defer func() { err = errors.Join(err, loader.Close()) }()

			mod, err := loader.Load(opts.Circuit)
			if err != nil {
				return err
			}

			cctx, err := mod.NewContext(circuit.ContextConfig{
				SampleRate: opts.SampleRate,
				BufferSize: opts.BufferSize,
				Oversample: opts.Oversample,
			})
			if err != nil {
				return err
			}
			defer cctx.Close()

			ctrl, err := control.New(cctx, log)
			if err != nil {
				return err
			}

			data := tui.CircuitData{
				Path:       opts.Circuit,
				Config:     cctx.Config(),
				Parameters: ctrl.Parameters(),
			}
			if info, ok := mod.Info(); ok {
				data.Info = &info
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, tui.RenderCircuit(data))
			if optional := mod.Capabilities().Optional(); len(optional) > 0 {
				fmt.Fprintf(out, "\nOptional capabilities: %s\n", strings.Join(optional, ", "))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Circuit, "circuit", "c", "", "Compiled circuit module or builtin:<name>")
	f.IntVarP(&opts.SampleRate, "sample-rate", "r", 48000, "Sample rate used to create the temporary context")
	f.IntVarP(&opts.BufferSize, "buffer-size", "b", config.DefaultBufferSize, "Buffer size used to create the temporary context")
	f.IntVarP(&opts.Oversample, "oversample", "O", config.DefaultOversample, "Oversampling factor used to create the temporary context")

	return cmd
}
