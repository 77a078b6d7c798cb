package opcode

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/wippyai/bcedit/errors"
)

// File is the TOML representation of an opcode table.
type File struct {
	Host            string      `toml:"host"`
	Extended        int         `toml:"extended_arg"`
	ExtendedAliases []int       `toml:"extended_arg_aliases"`
	Cache           int         `toml:"cache"`
	Opcodes         []FileEntry `toml:"opcode"`
}

// FileEntry is one [[opcode]] block.
type FileEntry struct {
	Name          string `toml:"name"`
	Code          int    `toml:"code"`
	Jump          bool   `toml:"jump"`
	Relative      bool   `toml:"relative"`
	Backward      bool   `toml:"backward"`
	Unconditional bool   `toml:"unconditional"`
	Terminal      bool   `toml:"terminal"`
	Padding       int    `toml:"padding"`
}

// Load reads an opcode table from a TOML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes an opcode table from TOML.
func Parse(data []byte) (*Table, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "opcode table")
	}
	return f.Table()
}

// Table builds the opcode table described by f.
func (f *File) Table() (*Table, error) {
	if err := checkByte("extended_arg", f.Extended); err != nil {
		return nil, err
	}
	if err := checkByte("cache", f.Cache); err != nil {
		return nil, err
	}

	t := New(byte(f.Extended), byte(f.Cache))
	for _, alias := range f.ExtendedAliases {
		if err := checkByte("extended_arg_aliases", alias); err != nil {
			return nil, err
		}
		t.AddExtensionAlias(byte(alias))
	}

	for _, e := range f.Opcodes {
		if err := checkByte(e.Name, e.Code); err != nil {
			return nil, err
		}
		if _, dup := t.Info(byte(e.Code)); dup {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
				Path("opcode", e.Name).
				Value(e.Code).
				Detail("opcode %d defined twice", e.Code).
				Build()
		}
		t.Define(byte(e.Code), Info{
			Name:          e.Name,
			Jump:          e.Jump,
			Relative:      e.Relative,
			Backward:      e.Backward,
			Unconditional: e.Unconditional,
			Terminal:      e.Terminal,
			Padding:       e.Padding,
		})
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	Logger().Debug("opcode table loaded",
		zap.String("host", f.Host),
		zap.Int("opcodes", len(f.Opcodes)),
		zap.Int("extended_arg", f.Extended))
	return t, nil
}

func checkByte(field string, v int) error {
	if v < 0 || v > 255 {
		return errors.New(errors.PhaseConfig, errors.KindOutOfBounds).
			Path(field).
			Value(v).
			Detail("opcode %d outside 0..255", v).
			Build()
	}
	return nil
}
