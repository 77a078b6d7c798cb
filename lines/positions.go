package lines

import (
	"github.com/wippyai/bcedit/errors"
	"github.com/wippyai/bcedit/varint"
)

// Entry codes of the positions layout.
const (
	codeNone     = 15
	codeLong     = 14
	codeNoColumn = 13
	codeOneLine  = 10

	maxUnits = 8
)

func header(code, units int) byte {
	return byte(0x80 | code<<3 | (units - 1))
}

func encodePositions(firstLine int, entries []Entry) []byte {
	var out []byte
	prevLine := firstLine
	for _, e := range entries {
		for units := (e.End - e.Start) / 2; units > 0; {
			n := min(units, maxUnits)
			units -= n
			if !e.HasLine {
				out = append(out, header(codeNone, n))
				continue
			}
			out = append(out, header(codeNoColumn, n))
			out = varint.AppendSvarint(out, int32(e.Line-prevLine))
			prevLine = e.Line
		}
	}
	return out
}

func decodePositions(table []byte, firstLine int) ([]Entry, error) {
	var entries []Entry
	r := &reader{buf: table}
	addr, line := 0, firstLine
	for r.more() {
		pos := r.pos
		b, _ := r.ReadByte()
		if b&0x80 == 0 {
			return nil, errors.MalformedStream(errors.PhaseDecode, pos, "positions entry without a start bit")
		}
		code := int(b>>3) & 0xf
		end := addr + (int(b&7)+1)*2

		hasLine := true
		switch {
		case code == codeNone:
			hasLine = false
		case code == codeLong:
			dn, err := varint.ReadSvarint(r)
			if err != nil {
				return nil, wrapVarint(pos, err)
			}
			line += int(dn)
			for range 3 {
				if _, err := varint.ReadVarint(r); err != nil {
					return nil, wrapVarint(pos, err)
				}
			}
		case code == codeNoColumn:
			dn, err := varint.ReadSvarint(r)
			if err != nil {
				return nil, wrapVarint(pos, err)
			}
			line += int(dn)
		case code >= codeOneLine:
			line += code - codeOneLine
			if err := skip(r, 2); err != nil {
				return nil, err
			}
		default:
			if err := skip(r, 1); err != nil {
				return nil, err
			}
		}

		if hasLine {
			entries = append(entries, At(addr, end, line))
		} else {
			entries = append(entries, NoLine(addr, end))
		}
		addr = end
	}
	return entries, nil
}

func skip(r *reader, n int) error {
	for range n {
		if _, err := r.ReadByte(); err != nil {
			return err
		}
	}
	return nil
}

func wrapVarint(pos int, err error) error {
	return errors.New(errors.PhaseDecode, errors.KindMalformed).
		At(pos).
		Cause(err).
		Detail("bad varint in positions entry").
		Build()
}
