package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose   bool
	logFormat string
}

func newRootCmd(app *AppContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "circuithost",
		Short:         "Run audio through compiled circuit modules",
		Long:          "circuithost loads a compiled circuit module, streams a WAV file through it buffer by buffer and reports how the circuit performs against real time.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch flags.logFormat {
			case "console", "json":
				return nil
			default:
				return fmt.Errorf("--log-format must be console or json, got %q", flags.logFormat)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "console", "Log format: console or json")

	cmd.AddCommand(newRunCmd(flags, app))
	cmd.AddCommand(newInfoCmd(flags, app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
