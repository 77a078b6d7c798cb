package lines

import "github.com/wippyai/bcedit/errors"

const noLineDelta = -128

func encodeLinetable(firstLine int, entries []Entry) []byte {
	var out []byte
	prevEnd, prevLine := 0, firstLine
	for _, e := range entries {
		de := e.End - prevEnd
		prevEnd = e.End

		if !e.HasLine {
			for de > 254 {
				out = append(out, 254, 0x80)
				de -= 254
			}
			out = append(out, byte(de), 0x80)
			continue
		}

		dn := e.Line - prevLine
		prevLine = e.Line
		for dn > 127 {
			out = append(out, 0, 127)
			dn -= 127
		}
		for dn < -127 {
			out = append(out, 0, 0x81)
			dn += 127
		}
		for de > 254 {
			out = append(out, 254, byte(dn))
			dn = 0
			de -= 254
		}
		out = append(out, byte(de), byte(dn))
	}
	return out
}

func decodeLinetable(table []byte, firstLine int) ([]Entry, error) {
	if len(table)%2 != 0 {
		return nil, errors.MalformedStream(errors.PhaseDecode, len(table)-1, "linetable has an odd length")
	}

	var entries []Entry
	addr, line := 0, firstLine
	for i := 0; i < len(table); i += 2 {
		end := addr + int(table[i])
		e := NoLine(addr, end)
		if dn := int(int8(table[i+1])); dn != noLineDelta {
			line += dn
			e = At(addr, end, line)
		}
		if end > addr {
			entries = append(entries, e)
		}
		addr = end
	}
	return entries, nil
}
