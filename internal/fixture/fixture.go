// Package fixture provides small opcode and stack effect tables shaped like
// real host tables, for tests across the module.
package fixture

import (
	"github.com/wippyai/bcedit/host"
	"github.com/wippyai/bcedit/opcode"
	"github.com/wippyai/bcedit/stack"
)

// Shared opcode numbers.
const (
	Cache            byte = 0
	PopTop           byte = 1
	PushNull         byte = 2
	Nop              byte = 9
	GetIter          byte = 68
	ReturnValue      byte = 83
	ForIter          byte = 93
	LoadConst        byte = 100
	LoadName         byte = 101
	ExtendedArgQuick byte = 105
	JumpForward      byte = 110
	JumpAbsolute     byte = 113
	PopJumpIfFalse   byte = 114
	PopJumpIfTrue    byte = 115
	LoadGlobal       byte = 116
	BinaryOp         byte = 122
	LoadFast         byte = 124
	StoreFast        byte = 125
	CallFunction     byte = 131
	JumpBackward     byte = 140
	ExtendedArg      byte = 144
	Resume           byte = 151
	Precall          byte = 166
	Call             byte = 171
)

func common(t *opcode.Table) *opcode.Table {
	return t.
		Define(PopTop, opcode.Info{Name: "POP_TOP"}).
		Define(Nop, opcode.Info{Name: "NOP"}).
		Define(GetIter, opcode.Info{Name: "GET_ITER"}).
		Define(ReturnValue, opcode.Info{Name: "RETURN_VALUE", Terminal: true}).
		Define(ForIter, opcode.Info{Name: "FOR_ITER", Jump: true, Relative: true}).
		Define(LoadConst, opcode.Info{Name: "LOAD_CONST"}).
		Define(LoadName, opcode.Info{Name: "LOAD_NAME"}).
		Define(JumpForward, opcode.Info{Name: "JUMP_FORWARD", Jump: true, Relative: true, Unconditional: true}).
		Define(LoadFast, opcode.Info{Name: "LOAD_FAST"}).
		Define(StoreFast, opcode.Info{Name: "STORE_FAST"})
}

// Legacy returns a table for hosts with absolute jumps and no padding.
func Legacy() *opcode.Table {
	return common(opcode.New(ExtendedArg, Cache)).
		Define(JumpAbsolute, opcode.Info{Name: "JUMP_ABSOLUTE", Jump: true, Unconditional: true}).
		Define(PopJumpIfFalse, opcode.Info{Name: "POP_JUMP_IF_FALSE", Jump: true}).
		Define(PopJumpIfTrue, opcode.Info{Name: "POP_JUMP_IF_TRUE", Jump: true}).
		Define(LoadGlobal, opcode.Info{Name: "LOAD_GLOBAL"}).
		Define(CallFunction, opcode.Info{Name: "CALL_FUNCTION"})
}

// Padded returns a table for hosts with backward jumps and padding slots.
func Padded() *opcode.Table {
	return common(opcode.New(ExtendedArg, Cache)).
		AddExtensionAlias(ExtendedArgQuick).
		Define(PushNull, opcode.Info{Name: "PUSH_NULL"}).
		Define(PopJumpIfFalse, opcode.Info{Name: "POP_JUMP_FORWARD_IF_FALSE", Jump: true, Relative: true}).
		Define(PopJumpIfTrue, opcode.Info{Name: "POP_JUMP_FORWARD_IF_TRUE", Jump: true, Relative: true}).
		Define(LoadGlobal, opcode.Info{Name: "LOAD_GLOBAL", Padding: 5}).
		Define(BinaryOp, opcode.Info{Name: "BINARY_OP", Padding: 1}).
		Define(JumpBackward, opcode.Info{Name: "JUMP_BACKWARD", Jump: true, Relative: true, Backward: true, Unconditional: true}).
		Define(Resume, opcode.Info{Name: "RESUME"}).
		Define(Precall, opcode.Info{Name: "PRECALL", Padding: 1}).
		Define(Call, opcode.Info{Name: "CALL", Padding: 4})
}

// PaddedJumps is Padded with a padding slot after FOR_ITER, so its jump
// counts from the end of the padding.
func PaddedJumps() *opcode.Table {
	return Padded().
		Define(ForIter, opcode.Info{Name: "FOR_ITER", Jump: true, Relative: true, Padding: 1})
}

// Effects returns stack effects for the opcodes of Legacy and Padded.
func Effects() *stack.Table {
	return stack.NewTable().
		Set(PopTop, -1).
		Set(PushNull, 1).
		Set(Nop, 0).
		Set(GetIter, 0).
		Set(ReturnValue, -1).
		SetJump(ForIter, 1, -1).
		Set(LoadConst, 1).
		Set(LoadName, 1).
		Set(JumpForward, 0).
		Set(JumpAbsolute, 0).
		Set(JumpBackward, 0).
		Set(PopJumpIfFalse, -1).
		Set(PopJumpIfTrue, -1).
		SetFunc(LoadGlobal, func(arg uint32, _ bool) int {
			return 1 + int(arg&1)
		}).
		Set(BinaryOp, -1).
		Set(LoadFast, 1).
		Set(StoreFast, -1).
		Set(Resume, 0).
		SetFunc(CallFunction, func(arg uint32, _ bool) int {
			return -int(arg)
		}).
		SetFunc(Precall, func(uint32, bool) int { return 0 }).
		SetFunc(Call, func(arg uint32, _ bool) int {
			return -int(arg) - 1
		})
}

// Profile returns the profile for the given version.
func Profile(major, minor int) host.Profile {
	return host.MustProfile(major, minor)
}
