package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mefistotelis/lvrsrc-go/vi"
)

var infoCmd = &cobra.Command{
	Use:   "info <rsrc-file>",
	Short: "Display file information",
	Long:  `Display general information about an RSRC file: type, version, save record flags, libraries and password state.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	f, err := vi.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(output, "File: %s\n", args[0])
	fmt.Fprintf(output, "Type: %s\n", f.FileType)
	fmt.Fprintf(output, "Blocks: %d\n", len(f.Blocks()))

	if v, err := f.Vers(); err == nil {
		fmt.Fprintf(output, "Version: %s\n", v.Version)
		if len(v.Text) > 0 {
			fmt.Fprintf(output, "Version Text: %s\n", displayString(v.Text))
		}
		if len(v.Info) > 0 {
			fmt.Fprintf(output, "Version Info: %s\n", displayString(v.Info))
		}
	}

	if sr, err := f.SaveRecord(); err == nil {
		fmt.Fprintf(output, "VI Type: %d\n", sr.VIType)
		fmt.Fprintf(output, "Protected: %v\n", sr.Protected)
		if verbosity > 0 {
			fmt.Fprintf(output, "Exec Flags: 0x%08X\n", sr.ExecFlags)
			fmt.Fprintf(output, "Instrument State: 0x%08X\n", sr.InstrState)
			fmt.Fprintf(output, "Signature: %x\n", sr.VISignature)
		}
	}

	if names, err := f.LibraryNames(); err == nil {
		for _, name := range names {
			fmt.Fprintf(output, "Library: %s\n", displayString(name))
		}
	}

	if list, err := f.TypeList(); err == nil {
		fmt.Fprintf(output, "Type Descriptors: %d\n", len(list.Types))
	}

	if rec, err := f.PasswordRecord(); err == nil {
		if rec.Recognized {
			fmt.Fprintf(output, "Password: %q\n", rec.Password)
		} else {
			fmt.Fprintf(output, "Password MD5: %x\n", rec.PasswordMD5)
		}
		if verbosity > 0 {
			fmt.Fprintf(output, "Hash 1: %x\n", rec.Hash1)
			fmt.Fprintf(output, "Hash 2: %x\n", rec.Hash2)
		}
	}

	printWarnings(f)
	return nil
}
