package varint

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendVarint(t *testing.T) {
	tests := []struct {
		expected []byte
		input    uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{42}, 42},
		{[]byte{0x3f}, 63},
		{[]byte{0x40, 0x01}, 64},
		{[]byte{0x48, 0x03}, 200},
		{[]byte{0x7f, 0x3f}, 4095},
		{[]byte{0x40, 0x40, 0x01}, 4096},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, AppendVarint(nil, tt.input), "AppendVarint(%d)", tt.input)
	}
}

func TestAppendVarint_Appends(t *testing.T) {
	buf := []byte{0xAA}
	buf = AppendVarint(buf, 200)
	assert.Equal(t, []byte{0xAA, 0x48, 0x03}, buf)
}

func TestAppendSvarint(t *testing.T) {
	assert.Equal(t, []byte{0x20}, AppendSvarint(nil, 0x10))
	assert.Equal(t, []byte{0x21}, AppendSvarint(nil, -0x10))
	assert.Equal(t, []byte{0x3e}, AppendSvarint(nil, 31))
	assert.Equal(t, []byte{0x3f}, AppendSvarint(nil, -31))
	assert.Equal(t, []byte{0x00}, AppendSvarint(nil, 0))

	assert.Equal(t, AppendVarint(nil, 200<<1), AppendSvarint(nil, 200))
	assert.Equal(t, AppendVarint(nil, 200<<1|1), AppendSvarint(nil, -200))
}

func TestVarintRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 42, 63, 64, 200, 4095, 4096, 65539, 1 << 24, 0xFFFFFFFF} {
		got, err := ReadVarint(bytes.NewReader(AppendVarint(nil, v)))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	for _, v := range []int32{0, 1, -1, 31, -31, 200, -200, 1 << 20, -(1 << 20)} {
		got, err := ReadSvarint(bytes.NewReader(AppendSvarint(nil, v)))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestReadVarint_Errors(t *testing.T) {
	_, err := ReadVarint(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)

	_, err = ReadVarint(bytes.NewReader([]byte{0x48}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadVarint(bytes.NewReader([]byte{0x7f, 0x7f, 0x7f, 0x7f, 0x7f, 0x7f, 0x01}))
	assert.ErrorIs(t, err, ErrOverflow)
}

// parseHost mirrors the host's reference reader for the big-endian form.
func parseHost(data []byte) uint32 {
	i := 0
	b := data[i]
	val := uint32(b & 63)
	for b&64 != 0 {
		val <<= 6
		i++
		b = data[i]
		val |= uint32(b & 63)
	}
	return val
}

func TestWriteBE(t *testing.T) {
	for _, n := range []uint32{0, 42, 63, 200, 65539} {
		assert.Equal(t, n, parseHost(WriteBE(n)), "WriteBE(%d)", n)
	}

	assert.Equal(t, []byte{0x00}, WriteBE(0))
	assert.Equal(t, []byte{0x3f}, WriteBE(63))
	assert.Equal(t, []byte{0x43, 0x08}, WriteBE(200))
	assert.Equal(t, []byte{0x50, 0x40, 0x03}, WriteBE(65539))
}

func TestReadBE(t *testing.T) {
	for _, n := range []uint32{0, 42, 63, 200, 65539, 1<<30 - 1, 0xFFFFFFFF} {
		got, start, err := ReadBE(bytes.NewReader(WriteBE(n)))
		require.NoError(t, err)
		assert.False(t, start)
		assert.Equal(t, n, got)
	}
}

func TestAppendBE_Mark(t *testing.T) {
	buf := AppendBE(nil, 200, EntryStart)
	assert.Equal(t, []byte{0xc3, 0x08}, buf)

	got, start, err := ReadBE(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.True(t, start)
	assert.Equal(t, uint32(200), got)

	buf = AppendBE(nil, 5, EntryStart)
	assert.Equal(t, []byte{0x85}, buf)
}

func TestReadBE_Errors(t *testing.T) {
	_, _, err := ReadBE(bytes.NewReader(nil))
	assert.ErrorIs(t, err, io.EOF)

	_, _, err = ReadBE(bytes.NewReader([]byte{0x43}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, _, err = ReadBE(bytes.NewReader([]byte{0x7f, 0x7f, 0x7f, 0x7f, 0x7f, 0x7f, 0x01}))
	assert.ErrorIs(t, err, ErrOverflow)
}
