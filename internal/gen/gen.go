package gen

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sundials-codes/sundials4py-generate/internal/bindgen"
)

// New builds the generate subcommand. The positional argument is a
// generate.yaml file, or a directory searched recursively for them.
func New() *cobra.Command {
	var dumpSrcml bool

	cmd := &cobra.Command{
		Use:   "generate <config>",
		Short: "Generate nanobind binding code from a generate.yaml config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := NewGenerator()
			g.DumpSrcML = dumpSrcml

			if err := g.Process(args[0]); err != nil {
				return fmt.Errorf("error processing %s: %w", args[0], err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dumpSrcml, "dump-srcml", false, "Dump the structural XML for the parsed headers instead of generating code")

	return cmd
}

// baseOptions is the policy shared by every module before per-module
// settings are layered on.
func baseOptions() *bindgen.Options {
	return bindgen.DefaultOptions()
}
