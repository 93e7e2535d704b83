package vi

import (
	"errors"
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/rsrc"
)

var (
	// ErrBlockMissing is returned when a lookup requires a block the
	// file does not carry.
	ErrBlockMissing = errors.New("vi: block missing")

	// ErrSectionMissing is returned when a block exists but holds no
	// section with the requested index.
	ErrSectionMissing = errors.New("vi: section missing")

	// ErrSanityCheckFailed is returned in strict mode when a decoder
	// recorded structural findings that are normally mere warnings.
	ErrSanityCheckFailed = errors.New("vi: sanity check failed")

	// ErrUnsupportedVariant is returned when a version or flag
	// combination has no known decode rule.
	ErrUnsupportedVariant = errors.New("vi: unsupported variant")
)

// ParseError describes a decode failure inside one block section. It
// wraps the underlying cause so sentinel checks keep working through
// errors.Is.
type ParseError struct {
	Block   rsrc.Ident
	Section int32
	Offset  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	s := fmt.Sprintf("vi: block %s section %d", e.Block, e.Section)
	if e.Offset > 0 {
		s += fmt.Sprintf(" offset %d", e.Offset)
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(block rsrc.Ident, section int32, message string, err error) *ParseError {
	return &ParseError{Block: block, Section: section, Message: message, Err: err}
}

// Warning is one non-fatal structural finding recorded during decode.
type Warning struct {
	Block   rsrc.Ident
	Section int32
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("block %s section %d: %s", w.Block, w.Section, w.Message)
}
