// Package varint implements the two variable-length integer layouts used by
// the host's code metadata tables.
//
// The little-endian form (AppendVarint, AppendSvarint) stores 6-bit groups,
// least significant first, with 0x40 set on every byte but the last. It is
// used by the positions line table.
//
// The big-endian form (AppendBE) stores 6-bit groups, most significant
// first, with the same 0x40 continuation flag. Its top bit is free and is
// used by the exception table to mark the first byte of an entry.
package varint

import (
	"errors"
	"io"
)

const (
	// Continue is set on every byte of a value except the last.
	Continue = 0x40
	// EntryStart marks the first byte of an exception table entry.
	EntryStart = 0x80
	// Mask selects the payload bits of a byte.
	Mask = 0x3f

	maxGroups = 6 // ceil(32/6)
)

// ErrOverflow is returned when a value exceeds 32 bits.
var ErrOverflow = errors.New("varint: overflow")

// AppendVarint appends v in the little-endian 6-bit form.
func AppendVarint(buf []byte, v uint32) []byte {
	for v >= Continue {
		buf = append(buf, Continue|byte(v&Mask))
		v >>= 6
	}
	return append(buf, byte(v))
}

// AppendSvarint appends v zig-zag mapped: v<<1 for v >= 0, (-v)<<1|1 otherwise.
func AppendSvarint(buf []byte, v int32) []byte {
	return AppendVarint(buf, Zigzag(v))
}

// Zigzag maps a signed value to the unsigned form used by AppendSvarint.
func Zigzag(v int32) uint32 {
	if v < 0 {
		return uint32(-int64(v))<<1 | 1
	}
	return uint32(v) << 1
}

// Unzigzag reverses Zigzag.
func Unzigzag(u uint32) int32 {
	if u&1 != 0 {
		return int32(-int64(u >> 1))
	}
	return int32(u >> 1)
}

// ReadVarint reads a value in the little-endian 6-bit form.
func ReadVarint(r io.ByteReader) (uint32, error) {
	var result uint64
	var shift uint
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if i == maxGroups {
			return 0, ErrOverflow
		}
		result |= uint64(b&Mask) << shift
		if b&Continue == 0 {
			break
		}
		shift += 6
	}
	if result > 0xFFFFFFFF {
		return 0, ErrOverflow
	}
	return uint32(result), nil
}

// ReadSvarint reads a zig-zag mapped value.
func ReadSvarint(r io.ByteReader) (int32, error) {
	u, err := ReadVarint(r)
	if err != nil {
		return 0, err
	}
	return Unzigzag(u), nil
}

// AppendBE appends v in the big-endian 6-bit form, or-ing mark into the first byte.
func AppendBE(buf []byte, v uint32, mark byte) []byte {
	var groups [maxGroups]byte
	n := 0
	for {
		groups[n] = byte(v & Mask)
		n++
		v >>= 6
		if v == 0 {
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		b := groups[i]
		if i > 0 {
			b |= Continue
		}
		if i == n-1 {
			b |= mark
		}
		buf = append(buf, b)
	}
	return buf
}

// WriteBE returns v in the big-endian 6-bit form without a mark.
func WriteBE(v uint32) []byte {
	return AppendBE(nil, v, 0)
}

// ReadBE reads a big-endian value and reports whether its first byte carried EntryStart.
func ReadBE(r io.ByteReader) (uint32, bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, false, err
	}
	start := b&EntryStart != 0
	result := uint64(b & Mask)
	for n := 1; b&Continue != 0; n++ {
		if n == maxGroups {
			return 0, start, ErrOverflow
		}
		b, err = r.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, start, err
		}
		result = result<<6 | uint64(b&Mask)
	}
	if result > 0xFFFFFFFF {
		return 0, start, ErrOverflow
	}
	return uint32(result), start, nil
}
