// Package instr encodes and decodes variable-width instructions.
//
// Every instruction occupies one or more 2-byte slots of (opcode, operand
// byte). Operands wider than 8 bits are carried by extension prefix slots
// placed before the real opcode, most significant byte first. Some opcodes
// are followed by reserved padding slots which are not instructions.
package instr

import (
	"io"
	"iter"

	"github.com/wippyai/bcedit/errors"
	"github.com/wippyai/bcedit/opcode"
)

// MaxExt is the largest number of extension prefixes an operand may need.
const MaxExt = 3

// Instruction is one decoded instruction.
type Instruction struct {
	// Offset is the position of the first slot, extension prefixes included.
	Offset int
	// Length counts the prefix slots and the final slot, not the padding.
	Length int
	Opcode byte
	Arg    uint32
}

// End returns the offset just past the instruction's final slot.
func (i Instruction) End() int {
	return i.Offset + i.Length
}

// Ext returns the number of extension prefixes the instruction was encoded with.
func (i Instruction) Ext() int {
	return i.Length/opcode.SlotSize - 1
}

// ExtNeeded returns the number of extension prefixes needed to represent arg.
func ExtNeeded(arg uint64) int {
	switch {
	case arg > 0xFFFFFF:
		return 3
	case arg > 0xFFFF:
		return 2
	case arg > 0xFF:
		return 1
	default:
		return 0
	}
}

// Length returns the encoded length of arg with at least minExt prefixes.
func Length(arg uint64, minExt int) int {
	return opcode.SlotSize * (1 + max(ExtNeeded(arg), minExt))
}

// EncodeArg encodes op with arg, emitting at least minExt extension prefixes.
// Padding slots are not included.
func EncodeArg(extended, op byte, arg uint64, minExt int) ([]byte, error) {
	if arg > 0xFFFFFFFF {
		return nil, errors.EncodingOverflow(errors.PhaseEncode, arg, 32)
	}
	if minExt < 0 || minExt > MaxExt {
		return nil, errors.New(errors.PhaseEncode, errors.KindOverflow).
			Value(minExt).
			Detail("%d extension prefixes requested, at most %d allowed", minExt, MaxExt).
			Build()
	}

	ext := max(ExtNeeded(arg), minExt)
	out := make([]byte, 0, opcode.SlotSize*(ext+1))
	for i := ext; i > 0; i-- {
		out = append(out, extended, byte(arg>>(8*i)))
	}
	return append(out, op, byte(arg)), nil
}

// Codec encodes instructions for one opcode table.
type Codec struct {
	table *opcode.Table
}

// NewCodec creates a codec bound to table.
func NewCodec(table *opcode.Table) *Codec {
	return &Codec{table: table}
}

// Table returns the codec's opcode table.
func (c *Codec) Table() *opcode.Table {
	return c.table
}

// Encode encodes op with arg followed by the padding slots the opcode reserves.
func (c *Codec) Encode(op byte, arg uint64, minExt int) ([]byte, error) {
	out, err := EncodeArg(c.table.Extended(), op, arg, minExt)
	if err != nil {
		return nil, err
	}
	for i := c.table.Padding(op); i > 0; i-- {
		out = append(out, c.table.Cache(), 0)
	}
	return out, nil
}

// Decoder scans an instruction stream left to right.
type Decoder struct {
	code  []byte
	table *opcode.Table
	pos   int
}

// NewDecoder creates a decoder over code.
func NewDecoder(code []byte, table *opcode.Table) *Decoder {
	return &Decoder{code: code, table: table}
}

// Offset returns the position of the next slot to be scanned.
func (d *Decoder) Offset() int {
	return d.pos
}

// Next returns the next instruction, or io.EOF at the end of the stream.
func (d *Decoder) Next() (Instruction, error) {
	if len(d.code)%opcode.SlotSize != 0 {
		return Instruction{}, errors.MalformedStream(errors.PhaseDecode, len(d.code)-1,
			"stream length is not a whole number of slots")
	}

	start := d.pos
	var acc uint32
	for ext := 0; d.pos < len(d.code); ext++ {
		op, arg := d.code[d.pos], d.code[d.pos+1]
		d.pos += opcode.SlotSize

		if d.table.IsExtension(op) {
			if ext == MaxExt {
				return Instruction{}, errors.MalformedStream(errors.PhaseDecode, start,
					"more than 3 extension prefixes")
			}
			acc = (acc | uint32(arg)) << 8
			continue
		}

		in := Instruction{
			Offset: start,
			Length: d.pos - start,
			Opcode: op,
			Arg:    acc | uint32(arg),
		}
		if pad := d.table.Padding(op); pad > 0 {
			if d.pos+pad*opcode.SlotSize > len(d.code) {
				return Instruction{}, errors.New(errors.PhaseDecode, errors.KindMalformed).
					At(in.Offset).
					Value(pad).
					Detail("%d padding slots of %s run past the end of the stream", pad, d.table.Name(op)).
					Build()
			}
			d.pos += pad * opcode.SlotSize
		}
		return in, nil
	}

	if d.pos > start {
		return Instruction{}, errors.MalformedStream(errors.PhaseDecode, start,
			"extension prefix without a terminating opcode")
	}
	return Instruction{}, io.EOF
}

// All returns an iterator over the remaining instructions.
// Iteration stops after the first error.
func (d *Decoder) All() iter.Seq2[Instruction, error] {
	return func(yield func(Instruction, error) bool) {
		for {
			in, err := d.Next()
			if err == io.EOF {
				return
			}
			if !yield(in, err) || err != nil {
				return
			}
		}
	}
}

// Decode decodes the whole stream.
func Decode(code []byte, table *opcode.Table) ([]Instruction, error) {
	d := NewDecoder(code, table)
	out := make([]Instruction, 0, len(code)/opcode.SlotSize)
	for in, err := range d.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}
