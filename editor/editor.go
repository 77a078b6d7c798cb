// Package editor inserts instructions into compiled code and rebuilds the
// code's metadata.
//
// An Editor is created from the raw code and its tables. Insert splices
// payloads in, shifting every jump, line range and exception range.
// Finish widens jumps whose operands no longer fit, re-encodes them, and
// produces the new line table, exception table and stack size.
//
//	ed, err := editor.New(code, editor.Options{Opcodes: table, Profile: profile})
//	if err != nil {
//		return err
//	}
//	if err := ed.Insert(offset, probe); err != nil {
//		return err
//	}
//	result, err := ed.Finish()
package editor

import (
	"fmt"
	"io"
	"slices"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/wippyai/bcedit/branch"
	"github.com/wippyai/bcedit/errors"
	"github.com/wippyai/bcedit/exctable"
	"github.com/wippyai/bcedit/host"
	"github.com/wippyai/bcedit/instr"
	"github.com/wippyai/bcedit/lines"
	"github.com/wippyai/bcedit/opcode"
	"github.com/wippyai/bcedit/stack"
)

// Code is compiled code together with its metadata tables.
type Code struct {
	Bytes          []byte
	FirstLine      int
	LineTable      []byte
	ExceptionTable []byte
	StackSize      int
}

// Options configures an Editor.
type Options struct {
	// Opcodes describes the host's instruction set. Required.
	Opcodes *opcode.Table
	// Profile selects the host's encodings. Required.
	Profile host.Profile
	// Effects enables stack size recomputation when set.
	Effects stack.Effects
}

// Result is the edited code.
type Result struct {
	Code
	// Inserts holds the final offsets of the inserted payloads.
	Inserts []int
}

// Editor accumulates insertions into one piece of code.
// It is not safe for concurrent use.
type Editor struct {
	opts       Options
	code       []byte
	firstLine  int
	stackSize  int
	branches   []*branch.Branch
	lines      []lines.Entry
	exceptions []exctable.Entry
	inserts    []int
	floor      int
}

// New decodes code and prepares it for editing. code is not modified.
func New(code Code, opts Options) (*Editor, error) {
	if opts.Opcodes == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, 0, "no opcode table")
	}
	if opts.Profile.LineFormat == 0 || opts.Profile.Unit == 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, 0, "no host profile")
	}
	if !opts.Profile.InlinePadding && opts.Opcodes.HasPadding() {
		return nil, errors.InvalidInput(errors.PhaseConfig, 0,
			"opcode table has padding slots, host "+opts.Profile.Version.String()+" has none")
	}

	insts, err := instr.Decode(code.Bytes, opts.Opcodes)
	if err != nil {
		return nil, err
	}
	branches, err := branch.FromInstructions(insts, opts.Opcodes, opts.Profile)
	if err != nil {
		return nil, err
	}
	lineEntries, err := lines.Decode(opts.Profile.LineFormat, code.LineTable, code.FirstLine, len(code.Bytes))
	if err != nil {
		return nil, err
	}

	var exceptions []exctable.Entry
	switch {
	case opts.Profile.ExceptionTable:
		if exceptions, err = exctable.Decode(code.ExceptionTable); err != nil {
			return nil, err
		}
	case len(code.ExceptionTable) > 0:
		return nil, errors.Unsupported(errors.PhaseDecode,
			"exception table for host "+opts.Profile.Version.String())
	}

	Logger().Debug("editor created",
		zap.Int("code_len", len(code.Bytes)),
		zap.Int("branches", len(branches)),
		zap.Int("lines", len(lineEntries)),
		zap.Int("exceptions", len(exceptions)))

	return &Editor{
		opts:       opts,
		code:       slices.Clone(code.Bytes),
		firstLine:  code.FirstLine,
		stackSize:  code.StackSize,
		branches:   branches,
		lines:      lineEntries,
		exceptions: exceptions,
	}, nil
}

// Len returns the current code length.
func (e *Editor) Len() int {
	return len(e.code)
}

// Inserts returns the current offsets of the inserted payloads.
func (e *Editor) Inserts() []int {
	return slices.Clone(e.inserts)
}

// Branches returns the tracked jumps in their current positions.
func (e *Editor) Branches() []branch.Branch {
	out := make([]branch.Branch, len(e.branches))
	for i, b := range e.branches {
		out[i] = *b
	}
	return out
}

// Lines returns the line ranges in their current positions.
func (e *Editor) Lines() []lines.Entry {
	return slices.Clone(e.lines)
}

// Exceptions returns the exception ranges in their current positions.
func (e *Editor) Exceptions() []exctable.Entry {
	return slices.Clone(e.exceptions)
}

// Insert splices payload into the code at offset, which must be an
// instruction boundary of the current code at or after the end of the
// previous insertion. Payloads are whole instructions without jumps,
// including their padding slots; instr.Codec encodes them that way.
func (e *Editor) Insert(offset int, payload []byte) error {
	if offset < e.floor || offset > len(e.code) {
		return errors.InvalidInput(errors.PhaseRelocate, offset,
			fmt.Sprintf("insertion must be within [%d, %d]", e.floor, len(e.code)))
	}
	if err := e.checkPayload(payload); err != nil {
		return err
	}
	if ok, err := e.boundary(offset); err != nil {
		return err
	} else if !ok {
		return errors.InvalidInput(errors.PhaseRelocate, offset, "insertion inside an instruction")
	}
	if len(payload) == 0 {
		return nil
	}

	e.code = slices.Insert(e.code, offset, payload...)
	for _, b := range e.branches {
		b.Adjust(offset, len(payload))
	}
	lines.Adjust(e.lines, offset, len(payload))
	exctable.Adjust(e.exceptions, offset, len(payload))
	e.inserts = append(e.inserts, offset)
	e.floor = offset + len(payload)

	Logger().Debug("payload inserted",
		zap.Int("offset", offset),
		zap.Int("size", len(payload)))
	return nil
}

func (e *Editor) checkPayload(payload []byte) error {
	insts, err := instr.Decode(payload, e.opts.Opcodes)
	if err != nil {
		return errors.Wrap(errors.PhaseRelocate, errors.KindInvalidInput, err, "payload is not a valid instruction sequence")
	}
	for _, in := range insts {
		if e.opts.Opcodes.IsJump(in.Opcode) {
			return errors.InvalidInput(errors.PhaseRelocate, in.Offset,
				"payload contains jump "+e.opts.Opcodes.Name(in.Opcode))
		}
	}
	return nil
}

func (e *Editor) boundary(offset int) (bool, error) {
	if offset == len(e.code) {
		return true, nil
	}
	d := instr.NewDecoder(e.code, e.opts.Opcodes)
	for {
		in, err := d.Next()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if in.Offset >= offset {
			return in.Offset == offset, nil
		}
	}
}

// Validate checks that every tracked jump still matches the code and lands
// on an instruction, and that the exception ranges are well formed.
func (e *Editor) Validate() error {
	var result *multierror.Error

	starts := make(map[int]bool)
	for in, err := range instr.NewDecoder(e.code, e.opts.Opcodes).All() {
		if err != nil {
			return err
		}
		starts[in.Offset] = true
	}
	starts[len(e.code)] = true

	for i, b := range e.branches {
		path := []string{"branches", fmt.Sprint(i)}
		if !starts[b.Offset] || b.Offset+b.Length > len(e.code) || e.code[b.Offset+b.Length-opcode.SlotSize] != b.Opcode {
			result = multierror.Append(result, errors.InvalidData(errors.PhaseValidate, path,
				fmt.Sprintf("%s does not match the code", b)))
			continue
		}
		if !starts[b.Target] {
			result = multierror.Append(result, errors.InvalidData(errors.PhaseValidate, path,
				fmt.Sprintf("%s does not land on an instruction", b)))
		}
	}
	if err := exctable.Validate(e.exceptions); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Finish relocates every jump and builds the edited code. The editor is
// left untouched, so Finish may be called again after more insertions.
func (e *Editor) Finish() (*Result, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	w := e.snapshot()
	if err := w.relocate(); err != nil {
		return nil, err
	}
	for _, b := range w.branches {
		enc, err := b.Code()
		if err != nil {
			return nil, err
		}
		copy(w.code[b.Offset:b.Offset+b.Length], enc)
	}

	if end := lastEnd(w.lines); end < len(w.code) {
		w.lines = append(w.lines, lines.NoLine(end, len(w.code)))
	}
	lineTable, err := lines.Encode(e.opts.Profile.LineFormat, e.firstLine, w.lines)
	if err != nil {
		return nil, err
	}
	var exceptionTable []byte
	if e.opts.Profile.ExceptionTable {
		if exceptionTable, err = exctable.Encode(w.exceptions); err != nil {
			return nil, err
		}
	}

	stackSize := e.stackSize
	if e.opts.Effects != nil {
		a := &stack.Analyzer{Opcodes: e.opts.Opcodes, Profile: e.opts.Profile, Effects: e.opts.Effects}
		roots := make([]stack.Root, len(w.exceptions))
		for i, x := range w.exceptions {
			roots[i] = stack.Root{Offset: x.Target, Depth: x.HandlerDepth()}
		}
		depth, err := a.MaxDepth(w.code, roots...)
		if err != nil {
			return nil, err
		}
		stackSize = max(stackSize, depth)
	}

	Logger().Debug("edit finished",
		zap.Int("code_len", len(w.code)),
		zap.Int("grown", len(w.code)-len(e.code)),
		zap.Int("inserts", len(w.inserts)),
		zap.Int("stack_size", stackSize))

	return &Result{
		Code: Code{
			Bytes:          w.code,
			FirstLine:      e.firstLine,
			LineTable:      lineTable,
			ExceptionTable: exceptionTable,
			StackSize:      stackSize,
		},
		Inserts: w.inserts,
	}, nil
}

func lastEnd(entries []lines.Entry) int {
	if len(entries) == 0 {
		return 0
	}
	return entries[len(entries)-1].End
}

// work is a private copy of the editor state that relocation mutates.
type work struct {
	code       []byte
	branches   []*branch.Branch
	lines      []lines.Entry
	exceptions []exctable.Entry
	inserts    []int
}

func (e *Editor) snapshot() *work {
	w := &work{
		code:       slices.Clone(e.code),
		branches:   make([]*branch.Branch, len(e.branches)),
		lines:      slices.Clone(e.lines),
		exceptions: slices.Clone(e.exceptions),
		inserts:    slices.Clone(e.inserts),
	}
	for i, b := range e.branches {
		c := *b
		w.branches[i] = &c
	}
	return w
}

// relocate widens branches until every operand fits. Widening one branch
// moves code under others, so each growth requeues every other branch.
func (w *work) relocate() error {
	queue := slices.Clone(w.branches)
	queued := make(map[*branch.Branch]bool, len(queue))
	for _, b := range queue {
		queued[b] = true
	}

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		queued[b] = false

		if b.Arg() < 0 {
			return errors.New(errors.PhaseRelocate, errors.KindInvalidData).
				At(b.Offset).
				Value(b.Target).
				Detail("%s cannot reach its target", b).
				Build()
		}
		grown := b.AdjustLength()
		if grown == 0 {
			continue
		}
		// The widened branch keeps its offset: the new prefix slots go in
		// front of its old encoding, and everything after moves.
		w.code = slices.Insert(w.code, b.Offset, make([]byte, grown)...)
		for _, c := range w.branches {
			if c != b {
				c.Adjust(b.Offset, grown)
			}
		}
		lines.Adjust(w.lines, b.Offset, grown)
		for i := range w.exceptions {
			w.exceptions[i].Grow(b.Offset, grown)
		}
		for i, ins := range w.inserts {
			if ins > b.Offset {
				w.inserts[i] += grown
			}
		}

		Logger().Debug("branch widened",
			zap.Int("offset", b.Offset),
			zap.Int("target", b.Target),
			zap.Int("length", b.Length),
			zap.Int("grown", grown))

		for _, c := range w.branches {
			if c != b && !queued[c] {
				queue = append(queue, c)
				queued[c] = true
			}
		}
	}
	return nil
}

// Rewrite is shorthand for New, Insert at each offset in order, and Finish.
// offsets and payloads are in the coordinates of the original code.
func Rewrite(code Code, opts Options, offsets []int, payloads [][]byte) (*Result, error) {
	if len(offsets) != len(payloads) {
		return nil, errors.InvalidInput(errors.PhaseConfig, 0, "offsets and payloads differ in length")
	}
	ed, err := New(code, opts)
	if err != nil {
		return nil, err
	}
	shift := 0
	for i, off := range offsets {
		if err := ed.Insert(off+shift, payloads[i]); err != nil {
			return nil, err
		}
		shift += len(payloads[i])
	}
	return ed.Finish()
}
