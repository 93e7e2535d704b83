package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mefistotelis/lvrsrc-go/vi"
)

// manifest records what is needed to rebuild an RSRC file from an
// extracted directory.
type manifest struct {
	FileType string          `json:"fileType"`
	Blocks   []manifestBlock `json:"blocks"`
}

type manifestBlock struct {
	Ident    string            `json:"ident"`
	Sections []manifestSection `json:"sections"`
}

type manifestSection struct {
	Index int32  `json:"index"`
	Name  string `json:"name,omitempty"`
	File  string `json:"file"`
}

const manifestName = "manifest.json"

var extractDir string

var extractCmd = &cobra.Command{
	Use:   "extract <rsrc-file>",
	Short: "Extract all block sections to a directory",
	Long: `Extract every block section of an RSRC file into a directory, with
decoded content in one file per section and a manifest listing them.
The create command rebuilds a file from such a directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractDir, "dir", "d", "", "target directory (default: input name without extension)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	f, err := vi.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	dir := extractDir
	if dir == "" {
		base := filepath.Base(args[0])
		dir = base[:len(base)-len(filepath.Ext(base))]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	m := manifest{FileType: f.TypeIdent().String()}
	for _, b := range f.Blocks() {
		mb := manifestBlock{Ident: b.Ident.String()}
		for _, s := range b.Sections {
			data, err := s.Content()
			if err != nil {
				return fmt.Errorf("block %s section %d: %w", b.Ident, s.Index, err)
			}
			name := fmt.Sprintf("%s_%d.bin", b.Ident.Pretty(), s.Index)
			if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
				return err
			}
			ms := manifestSection{Index: s.Index, File: name}
			if s.Name != nil {
				ms.Name = string(s.Name)
			}
			mb.Sections = append(mb.Sections, ms)
			if verbosity > 0 {
				fmt.Fprintf(output, "%s: %d bytes\n", name, len(data))
			}
		}
		m.Blocks = append(m.Blocks, mb)
	}

	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestName), data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(output, "Extracted %d blocks to %s\n", len(m.Blocks), dir)
	printWarnings(f)
	return nil
}
