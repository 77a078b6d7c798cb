// Package exctable encodes and decodes the exception table: the list of code
// ranges protected by a handler.
//
// Every entry is four big-endian varints (see package varint): start,
// length and target in code units, then depth<<1|lasti. The first byte of
// an entry carries varint.EntryStart.
package exctable

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	"github.com/wippyai/bcedit/errors"
	"github.com/wippyai/bcedit/opcode"
	"github.com/wippyai/bcedit/varint"
)

// Unit is the number of bytes in one code unit of the table.
const Unit = opcode.SlotSize

// maxValue is the largest value a table varint may hold.
const maxValue = 1<<30 - 1

// Entry is one protected range [Start, End) and its handler.
type Entry struct {
	Start  int
	End    int
	Target int
	Depth  int
	Lasti  bool
}

// Adjust accounts for size bytes inserted at offset at. Code inserted at the
// start of a range is not protected by it; code inserted at the handler
// start runs as part of the handler.
func (e *Entry) Adjust(at, size int) {
	if at <= e.Start {
		e.Start += size
	}
	if at < e.End {
		e.End += size
	}
	if at < e.Target {
		e.Target += size
	}
}

// Adjust applies Entry.Adjust to every entry.
func Adjust(entries []Entry, at, size int) {
	for i := range entries {
		entries[i].Adjust(at, size)
	}
}

// Grow accounts for the instruction at offset at becoming size bytes longer.
// Ranges and handlers that start at the instruction keep starting at it.
func (e *Entry) Grow(at, size int) {
	if e.Start > at {
		e.Start += size
	}
	if e.End > at {
		e.End += size
	}
	if e.Target > at {
		e.Target += size
	}
}

// HandlerDepth is the stack depth on entry to the handler.
func (e Entry) HandlerDepth() int {
	d := e.Depth + 1
	if e.Lasti {
		d++
	}
	return d
}

func (e Entry) String() string {
	lasti := ""
	if e.Lasti {
		lasti = " lasti"
	}
	return fmt.Sprintf("[%d,%d) -> %d [%d]%s", e.Start, e.End, e.Target, e.Depth, lasti)
}

// Decode parses an exception table.
func Decode(table []byte) ([]Entry, error) {
	var entries []Entry
	r := bytes.NewReader(table)
	for r.Len() > 0 {
		pos := len(table) - r.Len()

		var vals [4]uint32
		for i := range vals {
			v, start, err := varint.ReadBE(r)
			if err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return nil, errors.New(errors.PhaseDecode, errors.KindMalformed).
					Path("exceptions", fmt.Sprint(len(entries))).
					At(pos).
					Cause(err).
					Detail("bad varint in exception entry").
					Build()
			}
			if start != (i == 0) {
				return nil, errors.MalformedStream(errors.PhaseDecode, pos, "entry start marker out of place")
			}
			vals[i] = v
		}

		start := int(vals[0]) * Unit
		entries = append(entries, Entry{
			Start:  start,
			End:    start + int(vals[1])*Unit,
			Target: int(vals[2]) * Unit,
			Depth:  int(vals[3] >> 1),
			Lasti:  vals[3]&1 != 0,
		})
	}
	return entries, nil
}

// Encode builds an exception table. Each entry must be well formed; ordering
// is checked by Validate.
func Encode(entries []Entry) ([]byte, error) {
	var out []byte
	for i, e := range entries {
		if err := checkEntry(i, e); err != nil {
			return nil, err
		}
		dl := uint32(e.Depth) << 1
		if e.Lasti {
			dl |= 1
		}
		out = varint.AppendBE(out, uint32(e.Start/Unit), varint.EntryStart)
		out = varint.AppendBE(out, uint32((e.End-e.Start)/Unit), 0)
		out = varint.AppendBE(out, uint32(e.Target/Unit), 0)
		out = varint.AppendBE(out, dl, 0)
	}
	return out, nil
}

// Validate reports every malformed entry and every pair of entries that are
// out of order or overlap.
func Validate(entries []Entry) error {
	var result *multierror.Error
	for i, e := range entries {
		if err := checkEntry(i, e); err != nil {
			result = multierror.Append(result, err)
		}
		if i == 0 {
			continue
		}
		if prev := entries[i-1]; e.Start < prev.End {
			result = multierror.Append(result, invalid(i, e, fmt.Sprintf("range %s overlaps or precedes %s", e, prev)))
		}
	}
	return result.ErrorOrNil()
}

func checkEntry(i int, e Entry) error {
	switch {
	case e.Start < 0 || e.End <= e.Start:
		return invalid(i, e, fmt.Sprintf("empty or negative range %s", e))
	case e.Start%Unit != 0 || e.End%Unit != 0 || e.Target%Unit != 0:
		return invalid(i, e, fmt.Sprintf("range %s is not unit aligned", e))
	case e.Target < 0 || e.Depth < 0:
		return invalid(i, e, fmt.Sprintf("negative target or depth in %s", e))
	case e.End/Unit > maxValue || e.Target/Unit > maxValue || e.Depth > maxValue>>1:
		return errors.New(errors.PhaseValidate, errors.KindOverflow).
			Path("exceptions", fmt.Sprint(i)).
			At(e.Start).
			Value(e).
			Detail("%s does not fit the table encoding", e).
			Build()
	}
	return nil
}

func invalid(i int, e Entry, detail string) error {
	return errors.New(errors.PhaseValidate, errors.KindInvalidData).
		Path("exceptions", fmt.Sprint(i)).
		At(e.Start).
		Value(e).
		Detail("%s", detail).
		Build()
}
