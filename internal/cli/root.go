// Package cli defines the Cobra commands of cardtool, the deck maintenance tool.
// This file contains the root command and the flags shared by every subcommand.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cardsDir     string
	manifestPath string
	dryRun       bool
	version      = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "cardtool",
	Short: "Maintain the metacards deck",
	Long: `cardtool keeps the card image directory and the card manifest in step.
Rename commands plan every move first, refuse to overwrite files, and rewrite
manifest locators that pointed at a renamed file.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cardsDir, "dir", "cards", "Card image directory")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "cards.json", "Card manifest (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Preview changes without touching files")

	for _, cmd := range renameCmds {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(dbStatsCmd)
}
