package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mefistotelis/lvrsrc-go/rsrc"
	"github.com/mefistotelis/lvrsrc-go/vi"
)

var (
	dumpSection int32
	dumpJSON    bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump <rsrc-file> <block>",
	Short: "Dump one block section",
	Long: `Dump the decoded content of one block section.

By default the raw decoded bytes are written to the output. With --json
known blocks (VCTP, vers, LIBN, BDPW, LVSR) are decoded into a readable
structure first.`,
	Args: cobra.ExactArgs(2),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().Int32VarP(&dumpSection, "section", "s", 0, "section index to dump")
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "decode known blocks into JSON")
}

func runDump(cmd *cobra.Command, args []string) error {
	f, err := vi.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	id := rsrc.ParsePrettyIdent(args[1])
	b := f.Block(id)
	if b == nil {
		return fmt.Errorf("no block %q in file", args[1])
	}
	s := b.Section(dumpSection)
	if s == nil {
		return fmt.Errorf("block %s has no section %d", id, dumpSection)
	}

	if dumpJSON {
		v, err := dumpView(f, id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(output)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return err
		}
		printWarnings(f)
		return nil
	}

	data, err := s.Content()
	if err != nil {
		return err
	}
	if _, err := output.Write(data); err != nil {
		return err
	}
	printWarnings(f)
	return nil
}

// dumpView decodes the blocks that have a typed view into a structure
// that serializes cleanly.
func dumpView(f *vi.File, id rsrc.Ident) (any, error) {
	switch id.String() {
	case "VCTP":
		list, err := f.TypeList()
		if err != nil {
			return nil, err
		}
		type typeEntry struct {
			Index int32  `json:"index"`
			Type  string `json:"type"`
			Label string `json:"label,omitempty"`
		}
		var out struct {
			Types   []typeEntry `json:"types"`
			TypeMap []uint32    `json:"typeMap"`
		}
		for _, t := range list.Types {
			out.Types = append(out.Types, typeEntry{
				Index: t.Index,
				Type:  t.Full.String(),
				Label: displayString(t.Label),
			})
		}
		out.TypeMap = list.TypeMap
		return out, nil
	case "vers":
		v, err := f.Vers()
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"version": v.Version.String(),
			"text":    displayString(v.Text),
			"info":    displayString(v.Info),
		}, nil
	case "LIBN":
		names, err := f.LibraryNames()
		if err != nil {
			return nil, err
		}
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = displayString(n)
		}
		return out, nil
	case "BDPW":
		rec, err := f.PasswordRecord()
		if err != nil {
			return nil, err
		}
		out := map[string]string{
			"passwordMD5": fmt.Sprintf("%x", rec.PasswordMD5),
			"hash1":       fmt.Sprintf("%x", rec.Hash1),
			"hash2":       fmt.Sprintf("%x", rec.Hash2),
		}
		if rec.Recognized {
			out["password"] = rec.Password
		}
		return out, nil
	case "LVSR", "LVIN":
		sr, err := f.SaveRecord()
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"version":   sr.Version.String(),
			"viType":    sr.VIType,
			"protected": sr.Protected,
			"execFlags": fmt.Sprintf("0x%08X", sr.ExecFlags),
			"signature": fmt.Sprintf("%x", sr.VISignature),
		}, nil
	}
	return nil, fmt.Errorf("block %s has no JSON view", id)
}
