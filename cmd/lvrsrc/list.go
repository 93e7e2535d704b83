package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mefistotelis/lvrsrc-go/vi"
)

var listCmd = &cobra.Command{
	Use:   "list <rsrc-file>",
	Short: "List resource blocks",
	Long:  `List every resource block of an RSRC file with its section count and sizes.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := vi.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	for _, b := range f.Blocks() {
		fmt.Fprintf(output, "%-4s  sections:%d  coding:%s\n",
			b.Ident, len(b.Sections), vi.CodingForIdent(b.Ident))
		if verbosity < 1 {
			continue
		}
		for _, s := range b.Sections {
			data, err := s.Content()
			if err != nil {
				fmt.Fprintf(output, "  section %d: decode failed: %v\n", s.Index, err)
				continue
			}
			line := fmt.Sprintf("  section %d: %d bytes", s.Index, len(data))
			if s.Name != nil {
				line += fmt.Sprintf(" name %q", displayString(s.Name))
			}
			fmt.Fprintln(output, line)
		}
	}
	printWarnings(f)
	return nil
}
