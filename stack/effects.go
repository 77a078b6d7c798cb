package stack

// Effects reports the net stack effect of executing op with arg.
// jump selects the effect along the branch edge of a jump opcode.
type Effects interface {
	StackEffect(op byte, arg uint32, jump bool) (int, bool)
}

// EffectFunc computes an operand-dependent effect.
type EffectFunc func(arg uint32, jump bool) int

type entry struct {
	fn      EffectFunc
	fall    int
	branch  int
	defined bool
}

// Table is a static per-opcode Effects implementation.
type Table struct {
	entries [256]entry
}

// NewTable creates an empty effect table.
func NewTable() *Table {
	return &Table{}
}

// Set registers an effect that is the same along every edge.
func (t *Table) Set(op byte, effect int) *Table {
	t.entries[op] = entry{fall: effect, branch: effect, defined: true}
	return t
}

// SetJump registers separate fallthrough and branch effects.
func (t *Table) SetJump(op byte, fall, branch int) *Table {
	t.entries[op] = entry{fall: fall, branch: branch, defined: true}
	return t
}

// SetFunc registers an operand-dependent effect.
func (t *Table) SetFunc(op byte, fn EffectFunc) *Table {
	t.entries[op] = entry{fn: fn, defined: true}
	return t
}

// StackEffect implements Effects.
func (t *Table) StackEffect(op byte, arg uint32, jump bool) (int, bool) {
	e := t.entries[op]
	switch {
	case !e.defined:
		return 0, false
	case e.fn != nil:
		return e.fn(arg, jump), true
	case jump:
		return e.branch, true
	default:
		return e.fall, true
	}
}
