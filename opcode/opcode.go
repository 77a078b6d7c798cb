// Package opcode holds the per-opcode facts the editor needs from the host:
// which opcodes are jumps and how their operand is interpreted, which opcode
// is the extension prefix and how many padding slots follow each opcode.
package opcode

import (
	"fmt"

	"github.com/wippyai/bcedit/errors"
)

// SlotSize is the width of one instruction slot in bytes.
const SlotSize = 2

// Info describes one opcode.
type Info struct {
	Name string
	// Jump marks opcodes whose operand designates a jump target.
	Jump bool
	// Relative jumps count from the end of the instruction, absolute ones from offset 0.
	Relative bool
	// Backward relative jumps subtract their operand.
	Backward bool
	// Unconditional jumps never fall through to the next instruction.
	Unconditional bool
	// Terminal opcodes (returns, raises) have no successor at all.
	Terminal bool
	// Padding is the number of reserved slots that follow the opcode.
	Padding int
	defined bool
}

// Table is an opcode table for one host version.
type Table struct {
	infos    [256]Info
	ext      [256]bool
	extended byte
	cache    byte
	byName   map[string]byte
}

// New creates a table with the given extension prefix and padding slot opcodes.
func New(extended, cache byte) *Table {
	t := &Table{
		extended: extended,
		cache:    cache,
		byName:   make(map[string]byte),
	}
	t.ext[extended] = true
	return t
}

// Define registers an opcode.
func (t *Table) Define(op byte, info Info) *Table {
	info.defined = true
	t.infos[op] = info
	if info.Name != "" {
		t.byName[info.Name] = op
	}
	return t
}

// AddExtensionAlias marks op as an alternate spelling of the extension prefix.
func (t *Table) AddExtensionAlias(op byte) *Table {
	t.ext[op] = true
	return t
}

// Extended returns the opcode used when emitting extension prefixes.
func (t *Table) Extended() byte {
	return t.extended
}

// Cache returns the opcode used when emitting padding slots.
func (t *Table) Cache() byte {
	return t.cache
}

// IsExtension reports whether op is an extension prefix.
func (t *Table) IsExtension(op byte) bool {
	return t.ext[op]
}

// Info returns the description of op.
func (t *Table) Info(op byte) (Info, bool) {
	info := t.infos[op]
	return info, info.defined
}

// IsJump reports whether op is a jump opcode.
func (t *Table) IsJump(op byte) bool {
	return t.infos[op].Jump
}

// Padding returns the number of padding slots following op.
func (t *Table) Padding(op byte) int {
	return t.infos[op].Padding
}

// HasPadding reports whether any opcode is followed by padding slots.
func (t *Table) HasPadding() bool {
	for _, info := range t.infos {
		if info.Padding > 0 {
			return true
		}
	}
	return false
}

// Falls reports whether control can continue to the next instruction after op.
func (t *Table) Falls(op byte) bool {
	info := t.infos[op]
	return !info.Terminal && !(info.Jump && info.Unconditional)
}

// Lookup returns the opcode with the given name.
func (t *Table) Lookup(name string) (byte, bool) {
	op, ok := t.byName[name]
	return op, ok
}

// MustLookup is like Lookup but panics for unknown names.
func (t *Table) MustLookup(name string) byte {
	op, ok := t.byName[name]
	if !ok {
		panic(fmt.Sprintf("opcode: unknown opcode %q", name))
	}
	return op
}

// Name returns a printable name for op.
func (t *Table) Name(op byte) string {
	if info := t.infos[op]; info.Name != "" {
		return info.Name
	}
	if t.ext[op] {
		return "EXTENDED_ARG"
	}
	return fmt.Sprintf("<%d>", op)
}

// Validate checks the table for contradictory definitions.
func (t *Table) Validate() error {
	for op := 0; op < 256; op++ {
		info := t.infos[op]
		if !info.defined {
			continue
		}
		switch {
		case info.Padding < 0:
			return errors.New(errors.PhaseConfig, errors.KindInvalidData).
				Path("opcode", info.Name).
				Value(info.Padding).
				Detail("negative padding").
				Build()
		case info.Backward && !info.Relative:
			return errors.InvalidData(errors.PhaseConfig, []string{"opcode", info.Name},
				"backward jumps must be relative")
		case (info.Relative || info.Unconditional) && !info.Jump:
			return errors.InvalidData(errors.PhaseConfig, []string{"opcode", info.Name},
				"jump attributes on a non-jump opcode")
		case t.ext[op]:
			return errors.InvalidData(errors.PhaseConfig, []string{"opcode", info.Name},
				"opcode is also an extension prefix")
		}
	}
	return nil
}
