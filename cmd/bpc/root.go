package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// globalFlags holds the persistent flags shared by every subcommand
// (SPEC_FULL.md §6: "--format=stack|register ... --dispatch=switch|table,
// --hot-threshold=100, --debug").
type globalFlags struct {
	format       string
	dispatch     string
	hotThreshold int
	debug        bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "bpc",
		Short:         "BP compiler and bytecode VM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.format, "format", "register", "bytecode format: stack|register")
	root.PersistentFlags().StringVar(&flags.dispatch, "dispatch", "switch", "interpreter dispatch: switch|table")
	root.PersistentFlags().IntVar(&flags.hotThreshold, "hot-threshold", 100, "calls before a function is promoted to the JIT")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging and AST/bytecode dumps")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newCompileCmd(flags))
	root.AddCommand(newExecCmd(flags))
	return root
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
