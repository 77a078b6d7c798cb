// Package lines encodes and decodes the offset to source line tables of the
// three host layouts selected by host.LineFormat.
package lines

import (
	"fmt"

	"github.com/wippyai/bcedit/errors"
	"github.com/wippyai/bcedit/host"
)

// Entry maps the code range [Start, End) to a source line.
// Ranges without a line have HasLine unset.
type Entry struct {
	Start   int
	End     int
	Line    int
	HasLine bool
}

// At returns an entry for [start, end) on line.
func At(start, end, line int) Entry {
	return Entry{Start: start, End: end, Line: line, HasLine: true}
}

// NoLine returns an entry for [start, end) without a line.
func NoLine(start, end int) Entry {
	return Entry{Start: start, End: end}
}

// Adjust accounts for size bytes inserted at offset at. Code inserted at
// the start of a range belongs to that range.
func (e *Entry) Adjust(at, size int) {
	if e.Start > at {
		e.Start += size
	}
	if e.End > at {
		e.End += size
	}
}

func (e Entry) sameLine(o Entry) bool {
	return e.HasLine == o.HasLine && (!e.HasLine || e.Line == o.Line)
}

func (e Entry) String() string {
	if !e.HasLine {
		return fmt.Sprintf("[%d,%d) -", e.Start, e.End)
	}
	return fmt.Sprintf("[%d,%d) %d", e.Start, e.End, e.Line)
}

// Adjust applies Entry.Adjust to every entry.
func Adjust(entries []Entry, at, size int) {
	for i := range entries {
		entries[i].Adjust(at, size)
	}
}

// Decode parses table into maximal runs of equal line. codeLen is the length
// of the code the table describes; the legacy layout needs it to close the
// last run.
func Decode(format host.LineFormat, table []byte, firstLine, codeLen int) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)
	switch format {
	case host.Lnotab:
		entries, err = decodeLnotab(table, firstLine, codeLen)
	case host.Linetable:
		entries, err = decodeLinetable(table, firstLine)
	case host.Positions:
		entries, err = decodePositions(table, firstLine)
	default:
		return nil, errors.Unsupported(errors.PhaseDecode, "line format "+format.String())
	}
	if err != nil {
		return nil, err
	}
	return Coalesce(entries), nil
}

// Encode builds a table in the given layout. Entries must be ordered and
// must not overlap.
func Encode(format host.LineFormat, firstLine int, entries []Entry) ([]byte, error) {
	if err := check(entries); err != nil {
		return nil, err
	}
	switch format {
	case host.Lnotab:
		return encodeLnotab(firstLine, entries), nil
	case host.Linetable:
		return encodeLinetable(firstLine, fill(entries)), nil
	case host.Positions:
		for _, e := range entries {
			if e.Start%2 != 0 || e.End%2 != 0 {
				return nil, errors.New(errors.PhaseEncode, errors.KindInvalidData).
					At(e.Start).
					Value(e).
					Detail("range %s is not slot aligned", e).
					Build()
			}
		}
		return encodePositions(firstLine, fill(entries)), nil
	default:
		return nil, errors.Unsupported(errors.PhaseEncode, "line format "+format.String())
	}
}

// Coalesce merges adjacent entries with the same line and drops empty ones.
func Coalesce(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.End <= e.Start {
			continue
		}
		if n := len(out); n > 0 && out[n-1].End == e.Start && out[n-1].sameLine(e) {
			out[n-1].End = e.End
			continue
		}
		out = append(out, e)
	}
	return out
}

func check(entries []Entry) error {
	prev := 0
	for i, e := range entries {
		if e.Start < prev || e.End < e.Start {
			return errors.New(errors.PhaseEncode, errors.KindInvalidData).
				Path("lines", fmt.Sprint(i)).
				At(e.Start).
				Value(e).
				Detail("range %s is out of order", e).
				Build()
		}
		prev = e.End
	}
	return nil
}

// fill covers gaps between ranges with entries without a line, since the
// ranged layouts describe every code unit.
func fill(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	prev := 0
	for _, e := range entries {
		if e.Start > prev {
			out = append(out, NoLine(prev, e.Start))
		}
		out = append(out, e)
		prev = e.End
	}
	return out
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) more() bool {
	return r.pos < len(r.buf)
}

func (r *reader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errors.MalformedStream(errors.PhaseDecode, r.pos, "line table is truncated")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}
