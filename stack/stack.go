// Package stack computes the maximum operand stack depth of an instruction stream.
//
// Each instruction is a node with up to two successors: the next instruction
// (unless the opcode is terminal or an unconditional jump) and the jump target.
// Depths at entry are propagated with a worklist and only ever raised, so the
// walk terminates on loops.
package stack

import (
	"github.com/wippyai/bcedit/branch"
	"github.com/wippyai/bcedit/errors"
	"github.com/wippyai/bcedit/host"
	"github.com/wippyai/bcedit/instr"
	"github.com/wippyai/bcedit/opcode"
)

// Root is an additional entry point, such as an exception handler, with the
// depth the stack has when control arrives there.
type Root struct {
	Offset int
	Depth  int
}

// Analyzer computes stack depths for one host.
type Analyzer struct {
	Opcodes *opcode.Table
	Profile host.Profile
	Effects Effects
}

type edge struct {
	to     int
	effect int
}

// MaxDepth returns the maximum depth reachable from offset 0 and from roots.
func (a *Analyzer) MaxDepth(code []byte, roots ...Root) (int, error) {
	insts, err := instr.Decode(code, a.Opcodes)
	if err != nil {
		return 0, err
	}
	if len(insts) == 0 {
		return 0, nil
	}

	index := make(map[int]int, len(insts))
	for i, in := range insts {
		index[in.Offset] = i
	}

	succ := make([][]edge, len(insts))
	peak := make([]int, len(insts))
	for i, in := range insts {
		fall, ok := a.Effects.StackEffect(in.Opcode, in.Arg, false)
		if !ok {
			return 0, errors.New(errors.PhaseAnalyze, errors.KindInvalidInput).
				At(in.Offset).
				Value(in.Opcode).
				Detail("no stack effect for %s", a.Opcodes.Name(in.Opcode)).
				Build()
		}
		peak[i] = fall

		if a.Opcodes.Falls(in.Opcode) && i+1 < len(insts) {
			succ[i] = append(succ[i], edge{to: i + 1, effect: fall})
		}
		if a.Opcodes.IsJump(in.Opcode) {
			b, err := branch.FromInstruction(in, a.Opcodes, a.Profile)
			if err != nil {
				return 0, err
			}
			j, ok := index[b.Target]
			if !ok {
				return 0, errors.New(errors.PhaseAnalyze, errors.KindInvalidData).
					At(in.Offset).
					Value(b.Target).
					Detail("jump target %d is not an instruction", b.Target).
					Build()
			}
			eff, ok := a.Effects.StackEffect(in.Opcode, in.Arg, true)
			if !ok {
				return 0, errors.New(errors.PhaseAnalyze, errors.KindInvalidInput).
					At(in.Offset).
					Value(in.Opcode).
					Detail("no branch stack effect for %s", a.Opcodes.Name(in.Opcode)).
					Build()
			}
			succ[i] = append(succ[i], edge{to: j, effect: eff})
			peak[i] = max(peak[i], eff)
		}
	}

	depth := make([]int, len(insts))
	for i := range depth {
		depth[i] = -1
	}

	var work []int
	enter := func(i, d int) {
		if d > depth[i] {
			depth[i] = d
			work = append(work, i)
		}
	}

	enter(0, 0)
	for _, r := range roots {
		i, ok := index[r.Offset]
		if !ok {
			return 0, errors.New(errors.PhaseAnalyze, errors.KindInvalidData).
				At(r.Offset).
				Detail("entry point is not an instruction").
				Build()
		}
		enter(i, r.Depth)
	}

	maxDepth := 0
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]

		d := depth[i]
		maxDepth = max(maxDepth, d, d+peak[i])
		for _, e := range succ[i] {
			nd := d + e.effect
			if nd < 0 {
				return 0, errors.New(errors.PhaseAnalyze, errors.KindInvalidData).
					At(insts[i].Offset).
					Value(nd).
					Detail("stack underflow after %s", a.Opcodes.Name(insts[i].Opcode)).
					Build()
			}
			enter(e.to, nd)
		}
	}
	return maxDepth, nil
}

// MaxDepth is shorthand for an Analyzer bound to opcodes, profile and effects.
func MaxDepth(code []byte, opcodes *opcode.Table, profile host.Profile, effects Effects) (int, error) {
	a := &Analyzer{Opcodes: opcodes, Profile: profile, Effects: effects}
	return a.MaxDepth(code)
}
