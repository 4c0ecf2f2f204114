package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/th3f0rk/betterpython/internal/bytecode"
)

// newCompileCmd implements `bpc compile <file.bp> -o out.bpc`: compile-only,
// writes a .bpc artifact (spec.md §6/§7: "no partial artifact is emitted"
// on any front-end failure).
func newCompileCmd(flags *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "compile <file.bp>",
		Short: "Compile a BP source file to a .bpc artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(flags.debug)
			defer log.Sync()

			if output == "" {
				output = args[0] + "c"
			}
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
			return writeArtifact(output, bc)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output .bpc path (default: <input>c)")
	return cmd
}

func writeArtifact(path string, bc *bytecode.Module) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return bytecode.Write(f, bc)
}
