package main

import (
	"os"

	"github.com/spf13/cobra"
)

// newRunCmd implements `bpc run <file.bp>`: parse -> check -> compile ->
// interpret in one step (SPEC_FULL.md §6).
func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.bp>",
		Short: "Compile and run a BP source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(flags.debug)
			defer log.Sync()

			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			mod, err := buildModule(src, flags, log)
			if err != nil {
				return err
			}
			bc, err := lowerModule(mod, flags, log)
			if err != nil {
				return err
			}
			os.Exit(runBytecode(bc, flags, log))
			return nil
		},
	}
}
