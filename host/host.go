// Package host describes the runtime versions whose bytecode the editor understands.
//
// A Profile is selected once per edit from a Version and fixes every
// version-dependent choice: the line table layout, the unit in which jump
// operands are expressed and whether an exception table exists.
package host

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/bcedit/errors"
)

// LineFormat selects the layout of the offset to line table.
type LineFormat uint8

const (
	// Lnotab is the legacy layout: (byte delta, line delta) pairs keyed by run start.
	Lnotab LineFormat = iota + 1
	// Linetable is the range layout: (range length, line delta) pairs with a no-line marker.
	Linetable
	// Positions is the varint layout with one entry per group of up to 8 code units.
	Positions
)

func (f LineFormat) String() string {
	switch f {
	case Lnotab:
		return "lnotab"
	case Linetable:
		return "linetable"
	case Positions:
		return "positions"
	default:
		return "LineFormat(" + strconv.Itoa(int(f)) + ")"
	}
}

// Version is a host runtime version.
type Version struct {
	Major int
	Minor int
}

// Version thresholds at which the binary layouts changed.
var (
	MinSupported     = Version{3, 8}
	RangedLines      = Version{3, 10}
	UnitAddressing   = Version{3, 10}
	ExceptionTables  = Version{3, 11}
	PositionsLines   = Version{3, 11}
	InlinePaddingMin = Version{3, 11}
)

// ParseVersion parses "major.minor".
func ParseVersion(s string) (Version, error) {
	maj, min, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Version{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Value(s).
			Detail("version %q is not of the form major.minor", s).
			Build()
	}
	major, err := strconv.Atoi(maj)
	if err != nil {
		return Version{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "major version")
	}
	minor, err := strconv.Atoi(min)
	if err != nil {
		return Version{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "minor version")
	}
	return Version{Major: major, Minor: minor}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v precedes o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Minor < o.Minor
}

// AtLeast reports whether v is o or later.
func (v Version) AtLeast(o Version) bool {
	return !v.Less(o)
}

// Profile holds the version-dependent encoding choices.
type Profile struct {
	Version    Version
	LineFormat LineFormat
	// Unit is the number of bytes one jump operand step covers.
	Unit int
	// ExceptionTable is set when code objects carry a separate exception table.
	ExceptionTable bool
	// InlinePadding is set when opcodes may be followed by reserved padding slots.
	InlinePadding bool
}

// ProfileFor selects the profile for v.
func ProfileFor(v Version) (Profile, error) {
	if v.Major != MinSupported.Major || v.Less(MinSupported) {
		return Profile{}, errors.UnsupportedVersion(v.String())
	}

	p := Profile{
		Version:    v,
		LineFormat: Lnotab,
		Unit:       1,
	}
	if v.AtLeast(RangedLines) {
		p.LineFormat = Linetable
	}
	if v.AtLeast(UnitAddressing) {
		p.Unit = 2
	}
	if v.AtLeast(PositionsLines) {
		p.LineFormat = Positions
	}
	p.ExceptionTable = v.AtLeast(ExceptionTables)
	p.InlinePadding = v.AtLeast(InlinePaddingMin)
	return p, nil
}

// MustProfile is like ProfileFor but panics on unsupported versions.
func MustProfile(major, minor int) Profile {
	p, err := ProfileFor(Version{Major: major, Minor: minor})
	if err != nil {
		panic(err)
	}
	return p
}

// ToOffset converts a jump operand to a byte distance.
func (p Profile) ToOffset(arg uint32) int {
	return int(arg) * p.UnitBytes()
}

// UnitBytes returns Unit, defaulting to one slot when unset.
func (p Profile) UnitBytes() int {
	if p.Unit <= 0 {
		return 2
	}
	return p.Unit
}
