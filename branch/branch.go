// Package branch models jump instructions during relocation.
//
// A Branch stores where it is (Offset, Length) and where it goes (Target).
// Its operand is never stored: Arg derives it from the current offset,
// length and target, so any number of Adjust calls can be applied before
// the branch is re-encoded with Code.
package branch

import (
	"fmt"

	"github.com/wippyai/bcedit/errors"
	"github.com/wippyai/bcedit/host"
	"github.com/wippyai/bcedit/instr"
	"github.com/wippyai/bcedit/opcode"
)

// Branch is one jump instruction.
type Branch struct {
	Offset int
	Length int
	Target int
	Opcode byte
	// Relative branches count from the end of the instruction and its padding.
	Relative bool
	// Backward relative branches jump toward lower offsets.
	Backward bool

	pad      int
	extended byte
	profile  host.Profile
}

// New creates a branch for the jump instruction op at offset with the given operand.
func New(offset, length int, op byte, arg uint32, table *opcode.Table, profile host.Profile) (*Branch, error) {
	info, ok := table.Info(op)
	if !ok || !info.Jump {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			At(offset).
			Value(op).
			Detail("%s is not a jump opcode", table.Name(op)).
			Build()
	}
	if length < opcode.SlotSize || length%opcode.SlotSize != 0 || length > instr.Length(0, instr.MaxExt) {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidInput).
			At(offset).
			Value(length).
			Detail("invalid instruction length %d", length).
			Build()
	}

	b := &Branch{
		Offset:   offset,
		Length:   length,
		Opcode:   op,
		Relative: info.Relative,
		Backward: info.Backward,
		pad:      info.Padding * opcode.SlotSize,
		extended: table.Extended(),
		profile:  profile,
	}

	delta := profile.ToOffset(arg)
	switch {
	case !b.Relative:
		b.Target = delta
	case b.Backward:
		b.Target = b.base() - delta
	default:
		b.Target = b.base() + delta
	}
	return b, nil
}

// FromInstruction creates a branch from a decoded jump instruction.
func FromInstruction(in instr.Instruction, table *opcode.Table, profile host.Profile) (*Branch, error) {
	return New(in.Offset, in.Length, in.Opcode, in.Arg, table, profile)
}

// FromInstructions returns a branch for every jump in insts, in offset order.
func FromInstructions(insts []instr.Instruction, table *opcode.Table, profile host.Profile) ([]*Branch, error) {
	var out []*Branch
	for _, in := range insts {
		if !table.IsJump(in.Opcode) {
			continue
		}
		b, err := FromInstruction(in, table, profile)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// FromCode decodes code and returns its branches in offset order.
func FromCode(code []byte, table *opcode.Table, profile host.Profile) ([]*Branch, error) {
	insts, err := instr.Decode(code, table)
	if err != nil {
		return nil, err
	}
	return FromInstructions(insts, table, profile)
}

// base is the offset relative jumps count from.
func (b *Branch) base() int {
	return b.Offset + b.Length + b.pad
}

// Arg returns the operand that encodes the current target from the current position.
// A negative result means the target is on the wrong side of a relative branch.
func (b *Branch) Arg() int {
	unit := b.profile.UnitBytes()
	switch {
	case !b.Relative:
		return b.Target / unit
	case b.Backward:
		return (b.base() - b.Target) / unit
	default:
		return (b.Target - b.base()) / unit
	}
}

// Adjust accounts for size bytes inserted at offset at.
//
// Code inserted at the branch's own offset precedes it, so the branch moves.
// Code inserted at the target is reached by the jump, so the target stays.
func (b *Branch) Adjust(at, size int) {
	if at <= b.Offset {
		b.Offset += size
	}
	if at < b.Target {
		b.Target += size
	}
}

// AdjustLength grows the branch until its operand fits and returns the
// number of bytes added. Branches never shrink.
//
// The added prefix slots go in front of the branch at Offset, so a target
// past the branch moves with the code that follows it.
func (b *Branch) AdjustLength() int {
	grown := 0
	for {
		arg := b.Arg()
		if arg < 0 {
			return grown
		}
		need := instr.Length(uint64(arg), 0)
		if need <= b.Length {
			return grown
		}
		delta := need - b.Length
		if b.Target > b.Offset {
			b.Target += delta
		}
		grown += delta
		b.Length = need
	}
}

// Code encodes the branch with exactly Length bytes.
func (b *Branch) Code() ([]byte, error) {
	arg := b.Arg()
	if arg < 0 {
		return nil, errors.New(errors.PhaseEncode, errors.KindInvalidData).
			At(b.Offset).
			Value(arg).
			Detail("target %d is behind a forward branch", b.Target).
			Build()
	}
	minExt := b.Length/opcode.SlotSize - 1
	if instr.ExtNeeded(uint64(arg)) > minExt {
		return nil, errors.New(errors.PhaseEncode, errors.KindOverflow).
			At(b.Offset).
			Value(arg).
			Detail("operand needs %d bytes, branch has %d", instr.Length(uint64(arg), 0), b.Length).
			Build()
	}
	return instr.EncodeArg(b.extended, b.Opcode, uint64(arg), minExt)
}

func (b *Branch) String() string {
	kind := "abs"
	if b.Relative {
		kind = "rel"
		if b.Backward {
			kind = "rel-"
		}
	}
	return fmt.Sprintf("branch(%d+%d %s -> %d)", b.Offset, b.Length, kind, b.Target)
}
