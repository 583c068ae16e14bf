package main

import (
	"os"

	"github.com/spf13/cobra"

	"tally/internal/interfaces/cli/migrate"
	"tally/internal/interfaces/cli/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tally",
		Short: "Tally - usage metering and billing cycle service",
		Long:  `Tally meters per-feature credit consumption against plan quotas and manages billing cycle resets.`,
	}

	rootCmd.AddCommand(
		worker.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
