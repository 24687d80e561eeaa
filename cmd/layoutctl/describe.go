package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/alexhholmes/memlayout"
)

var (
	fieldNameColor = color.New(color.FgGreen, color.Bold)
	offsetColor    = color.New(color.FgYellow)
	sizeColor      = color.New(color.FgCyan, color.Bold)
	paddingColor   = color.New(color.FgHiBlack)
)

var describeCmd = &cobra.Command{
	Use:   "describe <layout.toml>",
	Short: "Print the ComputedLayout for a TOML-described TypeDescriptor",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, err := loadTypeDescriptor(args[0])
		if err != nil {
			fatalf("error: %v", err)
		}

		computed, err := memlayout.LayoutOf(t)
		if err != nil {
			fatalf("error: %v", err)
		}

		sizeColor.Printf("size=%d ", computed.Size)
		sizeColor.Printf("alignment=%d\n", computed.Alignment)
		printMembers(computed.Members, 0)
	},
}

func printMembers(members []memlayout.Member, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	for _, m := range members {
		if m.Kind == memlayout.PaddingMember {
			paddingColor.Printf("%s[padding %d bytes]\n", indent, m.Width)
			continue
		}

		fmt.Print(indent)
		fieldNameColor.Printf("%-16s", m.Name)
		offsetColor.Printf(" @%-4d", m.Offset)
		fmt.Printf(" width=%-3d", m.Width)
		if m.ByteOrder != memlayout.NativeEndian {
			fmt.Printf(" (%s)", m.ByteOrder)
		}
		fmt.Println()

		if m.Computed != nil && len(m.Computed.Members) > 0 {
			printMembers(m.Computed.Members, depth+1)
		}
	}
}
