package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/th3f0rk/betterpython/internal/bytecode"
)

// newExecCmd implements `bpc exec <out.bpc>`: load a persisted module and
// run it (spec.md §6).
func newExecCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <file.bpc>",
		Short: "Load and run a compiled .bpc artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(flags.debug)
			defer log.Sync()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			bc, err := bytecode.Read(f)
			f.Close()
			if err != nil {
				return err
			}
			os.Exit(runBytecode(bc, flags, log))
			return nil
		},
	}
}
