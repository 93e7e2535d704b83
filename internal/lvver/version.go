// Package lvver handles LabVIEW version codes and version-gated format checks.
package lvver

import "fmt"

// Stage is the development stage recorded in a version code.
type Stage uint8

const (
	StageUnknown Stage = iota
	StageDevelopment
	StageAlpha
	StageBeta
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageDevelopment:
		return "development"
	case StageAlpha:
		return "alpha"
	case StageBeta:
		return "beta"
	case StageRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Version is a decoded LabVIEW version code. Major and Build are stored
// BCD-encoded in the 32-bit code; the decoded struct keeps plain values.
type Version struct {
	Major  uint8
	Minor  uint8
	Bugfix uint8
	Stage  Stage
	Flags  uint8
	Build  uint8
}

// Decode unpacks a 32-bit version code.
func Decode(vcode uint32) Version {
	return Version{
		Major:  uint8((vcode>>28)&0x0F)*10 + uint8((vcode>>24)&0x0F),
		Minor:  uint8(vcode>>20) & 0x0F,
		Bugfix: uint8(vcode>>16) & 0x0F,
		Stage:  Stage(vcode>>13) & 0x07,
		Flags:  uint8(vcode>>8) & 0x1F,
		Build:  uint8((vcode>>4)&0x0F)*10 + uint8(vcode&0x0F),
	}
}

// Encode packs the version back into a 32-bit code.
func (v Version) Encode() uint32 {
	var vcode uint32
	vcode |= uint32(v.Major/10&0x0F) << 28
	vcode |= uint32(v.Major%10&0x0F) << 24
	vcode |= uint32(v.Minor&0x0F) << 20
	vcode |= uint32(v.Bugfix&0x0F) << 16
	vcode |= uint32(v.Stage&0x07) << 13
	vcode |= uint32(v.Flags&0x1F) << 8
	vcode |= uint32(v.Build/10&0x0F) << 4
	vcode |= uint32(v.Build % 10 & 0x0F)
	return vcode
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d %s build %d", v.Major, v.Minor, v.Bugfix, v.Stage, v.Build)
}

// AtLeast reports whether the version is greater than or equal to the given
// major.minor.bugfix, compared field by field with minor taking precedence
// over stage and stage over bugfix.
func (v Version) AtLeast(major, minor, bugfix uint8) bool {
	return v.atLeast(major, &minor, &bugfix, nil)
}

// AtLeastStage is AtLeast with a development stage bound applied before the
// bugfix comparison.
func (v Version) AtLeastStage(major, minor, bugfix uint8, stage Stage) bool {
	return v.atLeast(major, &minor, &bugfix, &stage)
}

// AtLeastMajor compares the major field only.
func (v Version) AtLeastMajor(major uint8) bool {
	return v.atLeast(major, nil, nil, nil)
}

func (v Version) atLeast(major uint8, minor, bugfix *uint8, stage *Stage) bool {
	if v.Major != major {
		return v.Major > major
	}
	if minor != nil && v.Minor != *minor {
		return v.Minor > *minor
	}
	if stage != nil && v.Stage != *stage {
		return v.Stage > *stage
	}
	if bugfix != nil && v.Bugfix != *bugfix {
		return v.Bugfix > *bugfix
	}
	return true
}

// Before is the negation of AtLeast, for readability at call sites that gate
// on older layouts.
func (v Version) Before(major, minor, bugfix uint8) bool {
	return !v.AtLeast(major, minor, bugfix)
}
