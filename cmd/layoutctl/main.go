// Command layoutctl is a diagnostic CLI over the layout engine: given a
// TOML description of a TypeDescriptor, it prints the ComputedLayout
// (describe) or resolves a path string to a byte offset (offset).
//
// Where the teacher repository's cmd/parse walked Go source for
// @layout-annotated types, layoutctl reads a TOML document instead —
// this module's TypeDescriptor is built programmatically rather than
// parsed from Go source, so there is no source file to walk.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "layoutctl",
	Short: "Inspect memlayout TypeDescriptor layouts from a TOML description",
}

func main() {
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		switch mode, _ := cmd.Flags().GetString("color"); mode {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		}
	}

	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(offsetCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
