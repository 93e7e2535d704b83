package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"

	"github.com/mefistotelis/lvrsrc-go/vi"
)

var (
	outputFile string
	output     io.Writer
	verbosity  int
)

var rootCmd = &cobra.Command{
	Use:   "lvrsrc",
	Short: "LabVIEW resource file tool",
	Long: `lvrsrc reads and writes LabVIEW RSRC resource files (.vi, .ctl,
.llb and similar).

It can list and extract the resource blocks of a file, decode the type
descriptor table and version records, rebuild a file from extracted
parts, and inspect or reset the block diagram password.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbosity > 3 {
			verbosity = 3
		}
		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			output = f
		} else {
			output = os.Stdout
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if f, ok := output.(*os.File); ok && f != os.Stdout {
			f.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write output to file instead of stdout")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase diagnostic output (repeat up to 3 times)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(passwordCmd)
}

// displayString converts stored 8-bit text for terminal display.
// LabVIEW files carry labels and names in an extended ASCII code page.
func displayString(b []byte) string {
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// printWarnings emits one line per recorded sanity finding.
func printWarnings(f *vi.File) {
	for _, w := range f.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}
