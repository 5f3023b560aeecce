package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "divsage",
	Short: "Dividend portfolio advisory service",
	Long: `divsage - dividend portfolio advisory

Builds grounded portfolio recommendations from manually tracked
holdings: market snapshot, reasoning-model proposal, adversarial
output validation, audited persistence.

Usage:
  go run ./cmd/divsage [command]

Examples:
  go run ./cmd/divsage api
  go run ./cmd/divsage advise --owner user-1
  go run ./cmd/divsage fetcher --ticker MSFT
  go run ./cmd/divsage scheduler`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
