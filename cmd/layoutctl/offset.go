package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/alexhholmes/memlayout"
)

var offsetCmd = &cobra.Command{
	Use:   "offset <layout.toml> <path>",
	Short: "Resolve a field path against a TOML-described TypeDescriptor to a byte offset",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		t, err := loadTypeDescriptor(args[0])
		if err != nil {
			fatalf("error: %v", err)
		}

		computed, err := memlayout.LayoutOf(t)
		if err != nil {
			fatalf("error: %v", err)
		}

		off, err := memlayout.ByteOffsetOf(computed, args[1])
		if err != nil {
			fatalf("error: %v", err)
		}

		color.New(color.FgYellow, color.Bold).Printf("%d\n", off)
	},
}
