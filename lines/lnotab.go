package lines

import "github.com/wippyai/bcedit/errors"

func encodeLnotab(firstLine int, entries []Entry) []byte {
	var out []byte
	prevStart, prevLine := 0, firstLine
	for _, e := range entries {
		if !e.HasLine {
			continue
		}
		ds := e.Start - prevStart
		dn := e.Line - prevLine
		if ds == 0 && dn == 0 {
			continue
		}

		for ds > 255 {
			out = append(out, 255, 0)
			ds -= 255
		}
		for dn > 127 {
			out = append(out, byte(ds), 127)
			ds = 0
			dn -= 127
		}
		for dn < -128 {
			out = append(out, byte(ds), 0x80)
			ds = 0
			dn += 128
		}
		out = append(out, byte(ds), byte(dn))

		prevStart, prevLine = e.Start, e.Line
	}
	return out
}

func decodeLnotab(table []byte, firstLine, codeLen int) ([]Entry, error) {
	if len(table)%2 != 0 {
		return nil, errors.MalformedStream(errors.PhaseDecode, len(table)-1, "lnotab has an odd length")
	}

	type start struct{ addr, line int }
	var starts []start

	addr, line := 0, firstLine
	last, seen := 0, false
	for i := 0; i < len(table); i += 2 {
		if inc := int(table[i]); inc != 0 {
			if !seen || line != last {
				starts = append(starts, start{addr, line})
				last, seen = line, true
			}
			addr += inc
		}
		line += int(int8(table[i+1]))
	}
	if !seen || line != last {
		starts = append(starts, start{addr, line})
	}

	entries := make([]Entry, 0, len(starts))
	for i, s := range starts {
		end := codeLen
		if i+1 < len(starts) {
			end = starts[i+1].addr
		}
		entries = append(entries, At(s.addr, end, s.line))
	}
	return entries, nil
}
