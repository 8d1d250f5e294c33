package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sundials-codes/sundials4py-generate/internal/gen"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sundials4py-generate",
		Short: "Generate Python bindings for SUNDIALS using nanobind",
	}

	rootCmd.AddCommand(gen.New())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
