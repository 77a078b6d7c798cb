package opcode

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bcerrors "github.com/wippyai/bcedit/errors"
)

func TestLoad(t *testing.T) {
	tbl, err := Load(filepath.Join("testdata", "minimal.toml"))
	require.NoError(t, err)

	assert.Equal(t, byte(144), tbl.Extended())
	assert.Equal(t, byte(0), tbl.Cache())
	assert.True(t, tbl.IsExtension(144))
	assert.True(t, tbl.IsExtension(105))
	assert.False(t, tbl.IsExtension(110))

	jf := tbl.MustLookup("JUMP_FORWARD")
	assert.Equal(t, byte(110), jf)
	assert.True(t, tbl.IsJump(jf))
	assert.False(t, tbl.Falls(jf))

	info, ok := tbl.Info(tbl.MustLookup("JUMP_BACKWARD"))
	require.True(t, ok)
	assert.True(t, info.Relative)
	assert.True(t, info.Backward)

	assert.Equal(t, 5, tbl.Padding(tbl.MustLookup("LOAD_GLOBAL")))
	assert.False(t, tbl.Falls(tbl.MustLookup("RETURN_VALUE")))
	assert.True(t, tbl.Falls(tbl.MustLookup("LOAD_CONST")))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "absent.toml"))
	assert.Error(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind bcerrors.Kind
	}{
		{
			name: "syntax",
			data: "extended_arg = [",
			kind: bcerrors.KindInvalidData,
		},
		{
			name: "opcode out of range",
			data: "extended_arg = 144\n[[opcode]]\nname = \"X\"\ncode = 300\n",
			kind: bcerrors.KindOutOfBounds,
		},
		{
			name: "duplicate",
			data: "extended_arg = 144\n[[opcode]]\nname = \"A\"\ncode = 1\n[[opcode]]\nname = \"B\"\ncode = 1\n",
			kind: bcerrors.KindInvalidData,
		},
		{
			name: "backward absolute",
			data: "extended_arg = 144\n[[opcode]]\nname = \"J\"\ncode = 1\njump = true\nbackward = true\n",
			kind: bcerrors.KindInvalidData,
		},
		{
			name: "relative non-jump",
			data: "extended_arg = 144\n[[opcode]]\nname = \"J\"\ncode = 1\nrelative = true\n",
			kind: bcerrors.KindInvalidData,
		},
		{
			name: "opcode shadows prefix",
			data: "extended_arg = 144\n[[opcode]]\nname = \"J\"\ncode = 144\n",
			kind: bcerrors.KindInvalidData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			var e *bcerrors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.kind, e.Kind)
		})
	}
}

func TestName(t *testing.T) {
	tbl := New(144, 0).Define(9, Info{Name: "NOP"})
	assert.Equal(t, "NOP", tbl.Name(9))
	assert.Equal(t, "EXTENDED_ARG", tbl.Name(144))
	assert.Equal(t, "<77>", tbl.Name(77))

	_, ok := tbl.Lookup("MISSING")
	assert.False(t, ok)
	assert.Panics(t, func() { tbl.MustLookup("MISSING") })
}
