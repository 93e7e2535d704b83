package datafill

import (
	"fmt"

	"github.com/mefistotelis/lvrsrc-go/internal/lvver"
	"github.com/mefistotelis/lvrsrc-go/internal/stream"
	"github.com/mefistotelis/lvrsrc-go/internal/td"
)

// Type map flag bits that change how a data space cluster is filled.
const (
	tmFlagSkipNext = 0x0200
)

// isSpecialElement reports whether the cluster element at the given
// position stores a value under the current type map flags. The
// position that counts moved between versions.
func (d *Decoder) isSpecialElement(pos int) bool {
	if d.TMFlags&0x0004 != 0 {
		if !d.Version.AtLeastStage(10, 0, 0, lvver.StageAlpha) {
			return pos == 2
		}
		return pos == 1
	}
	if d.TMFlags&0x0010 != 0 {
		return pos == 1 || pos == 2 || pos == 3
	} else if d.TMFlags&0x0020 != 0 {
		return pos == 3
	} else if d.TMFlags&0x0040 != 0 {
		return pos == 2
	}
	return false
}

// DecodeSpecialCluster reads the values of a data space cluster whose
// type map flags mark it as special: only flag-selected elements carry
// stored values.
func (d *Decoder) DecodeSpecialCluster(r *stream.Reader, t *td.Type) (*Fill, error) {
	var c Cluster
	skipNext := d.TMFlags&tmFlagSkipNext != 0
	for pos, cli := range t.Clients() {
		if !d.isSpecialElement(pos) {
			continue
		}
		if skipNext {
			skipNext = false
			continue
		}
		sub := d.List.Resolve(cli)
		if sub == nil {
			return nil, fmt.Errorf("datafill: cluster element type %d unresolved: %w",
				cli.Index, ErrUnsupportedFill)
		}
		f, err := d.Decode(r, sub)
		if err != nil {
			return nil, err
		}
		c.Elems = append(c.Elems, f)
	}
	return &Fill{Type: t, Value: c}, nil
}
