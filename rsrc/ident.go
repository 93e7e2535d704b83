// Package rsrc reads and writes the outer RSRC container used by compiled
// LabVIEW files (.vi, .ctl, .llb and friends).
package rsrc

import "strings"

// Ident is a 4-byte block or file-type identifier.
type Ident [4]byte

// MakeIdent builds an Ident from a string, padding with spaces.
func MakeIdent(s string) Ident {
	var id Ident
	copy(id[:], s)
	for i := len(s); i < 4; i++ {
		id[i] = ' '
	}
	return id
}

func (id Ident) String() string {
	return string(id[:])
}

// Pretty returns a filesystem-safe representation of the identifier.
// '#' becomes "sh" per LabVIEW convention, other non-alphanumeric bytes
// are dropped.
func (id Ident) Pretty() string {
	var b strings.Builder
	for _, c := range id[:] {
		switch {
		case c == '#':
			b.WriteString("sh")
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ParsePrettyIdent reverses Pretty: strings longer than 4 bytes have "sh"
// collapsed back to '#', and the result is space-padded to 4 bytes.
func ParsePrettyIdent(s string) Ident {
	if len(s) > 4 {
		s = strings.ReplaceAll(s, "sh", "#")
	}
	return MakeIdent(s)
}

// FileType categorizes the RSRC file by its 4-byte type identifier.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeControl
	FileTypeDLog
	FileTypeClassLib
	FileTypeProject
	FileTypeLibrary
	FileTypeLLB
	FileTypeMenuPalette
	FileTypeTemplateControl
	FileTypeTemplateVI
	FileTypeXcontrol
	FileTypeVI
)

var fileTypeIdents = map[FileType]Ident{
	FileTypeControl:         MakeIdent("LVCC"),
	FileTypeDLog:            MakeIdent("LVDL"),
	FileTypeClassLib:        MakeIdent("CLIB"),
	FileTypeProject:         MakeIdent("LVPJ"),
	FileTypeLibrary:         MakeIdent("LIBR"),
	FileTypeLLB:             MakeIdent("LVAR"),
	FileTypeMenuPalette:     MakeIdent("LMNU"),
	FileTypeTemplateControl: MakeIdent("sVCC"),
	FileTypeTemplateVI:      MakeIdent("sVIN"),
	FileTypeXcontrol:        MakeIdent("LVXC"),
	FileTypeVI:              MakeIdent("LVIN"),
}

var fileTypeExts = map[FileType]string{
	FileTypeControl:         "ctl",
	FileTypeDLog:            "dlog",
	FileTypeClassLib:        "lvclass",
	FileTypeProject:         "lvproj",
	FileTypeLibrary:         "lvlib",
	FileTypeLLB:             "llb",
	FileTypeMenuPalette:     "mnu",
	FileTypeTemplateControl: "ctt",
	FileTypeTemplateVI:      "vit",
	FileTypeXcontrol:        "xctl",
	FileTypeVI:              "vi",
}

// RecognizeFileType maps a 4-byte type identifier to a FileType.
func RecognizeFileType(id Ident) FileType {
	for ft, ftid := range fileTypeIdents {
		if ftid == id {
			return ft
		}
	}
	return FileTypeUnknown
}

// TypeIdent returns the 4-byte identifier for a FileType, or the zero Ident
// for FileTypeUnknown.
func (ft FileType) TypeIdent() Ident {
	return fileTypeIdents[ft]
}

// Ext returns the conventional file extension of the type.
func (ft FileType) Ext() string {
	if ext, ok := fileTypeExts[ft]; ok {
		return ext
	}
	return "rsrc"
}

func (ft FileType) String() string {
	switch ft {
	case FileTypeControl:
		return "Control"
	case FileTypeDLog:
		return "DLog"
	case FileTypeClassLib:
		return "ClassLib"
	case FileTypeProject:
		return "Project"
	case FileTypeLibrary:
		return "Library"
	case FileTypeLLB:
		return "LLB"
	case FileTypeMenuPalette:
		return "MenuPalette"
	case FileTypeTemplateControl:
		return "TemplateControl"
	case FileTypeTemplateVI:
		return "TemplateVI"
	case FileTypeXcontrol:
		return "Xcontrol"
	case FileTypeVI:
		return "VI"
	default:
		return "Unknown"
	}
}
