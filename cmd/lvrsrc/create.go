package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mefistotelis/lvrsrc-go/rsrc"
	"github.com/mefistotelis/lvrsrc-go/vi"
)

var createOut string

var createCmd = &cobra.Command{
	Use:   "create <extracted-dir>",
	Short: "Rebuild an RSRC file from an extracted directory",
	Long: `Rebuild an RSRC file from a directory produced by the extract
command: the manifest decides block order and the section files supply
the content, which is re-encoded with each block's coding.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createOut, "out", "O", "", "path of the file to create (required)")
	createCmd.MarkFlagRequired("out")
}

func runCreate(cmd *cobra.Command, args []string) error {
	dir := args[0]
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}

	f := vi.NewFileIdent(rsrc.MakeIdent(m.FileType))
	for _, mb := range m.Blocks {
		id := rsrc.MakeIdent(mb.Ident)
		for _, ms := range mb.Sections {
			content, err := os.ReadFile(filepath.Join(dir, ms.File))
			if err != nil {
				return fmt.Errorf("block %s section %d: %w", id, ms.Index, err)
			}
			var name []byte
			if ms.Name != "" {
				name = []byte(ms.Name)
			}
			f.SetSection(id, ms.Index, name, content)
		}
	}

	if err := f.Save(createOut); err != nil {
		return err
	}
	fmt.Fprintf(output, "Created %s with %d blocks\n", createOut, len(m.Blocks))
	return nil
}
