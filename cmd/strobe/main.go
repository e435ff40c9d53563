// Package main provides the strobe sampling profiler binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strobelabs/strobe/internal/cli/sample"
	"github.com/strobelabs/strobe/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "strobe",
		Short:         "strobe - sampling profiler for host process threads",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(sample.NewSampleCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("strobe version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}
