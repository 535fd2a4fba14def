package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/neksis-lang/neksis/pkg/bytecode"
)

// State is the VM's coarse lifecycle, mirroring the teacher's Halted bool
// generalized to four states: Ready, Running, and the two terminal states
// Halted and Faulted.
type State int

const (
	Ready State = iota
	Running
	Halted
	Faulted
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// VM executes a bytecode.Module: one shared operand stack plus a stack of
// call frames, fetching and decoding one instruction at a time the way
// the teacher's CPU.Step decodes one instruction per call.
type VM struct {
	module *bytecode.Module
	ip     int
	stack  []Value
	frames []frame

	State State
	Err   error

	// Budget is a countdown decremented on every instruction fetch; the
	// fetch that brings it to zero faults with ErrBudgetExceeded instead of
	// executing, so at most Budget-1 instructions run. It is a cooperative
	// cancellation point for a host that embeds the VM. Zero means
	// unlimited.
	Budget int

	Stdout io.Writer
	Stdin  io.Reader

	stdinReader *bufio.Reader
}

// ErrBudgetExceeded is the fault Step (and so Run) reports when the Budget
// countdown reaches zero before the program halts on its own.
var ErrBudgetExceeded = fmt.Errorf("instruction budget exceeded")

// New creates a VM ready to run m, starting at m.Entry. Stdout/Stdin
// default to os.Stdout/os.Stdin when left nil.
func New(m *bytecode.Module) *VM {
	return &VM{
		module: m,
		State:  Ready,
		Stdout: os.Stdout,
		Stdin:  os.Stdin,
	}
}

// Run drives the VM to completion: Halted on a normal return from the
// entry function, or Faulted on a runtime error or exhausted Budget.
func (m *VM) Run() error {
	if m.State == Ready {
		if err := m.Start(); err != nil {
			return err
		}
	}
	for m.State == Running {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return m.Err
}

// Start pushes the entry function's frame and moves the VM to Running
// without executing any instructions, so a caller can then drive it one
// Step at a time (the ebiten inspector does exactly this).
func (m *VM) Start() error {
	idx := m.module.FindFunction(m.module.Entry)
	if idx < 0 {
		return m.fault(fmt.Errorf("entry function %q not found", m.module.Entry))
	}
	fn := m.module.Functions[idx]
	m.ip = fn.Entry
	m.frames = []frame{{returnIP: -1, funcIdx: idx, locals: make([]Value, fn.LocalCount), stackBase: 0}}
	m.State = Running
	return nil
}

// IP returns the current instruction pointer, for a debugger to correlate
// against a Disassembler's offsets.
func (m *VM) IP() int { return m.ip }

// Stack returns the live operand stack. Callers must not retain it past
// the next Step call.
func (m *VM) Stack() []Value { return m.stack }

// Locals returns the current call frame's local slots, or nil if the VM
// has no active frame.
func (m *VM) Locals() []Value {
	if len(m.frames) == 0 {
		return nil
	}
	return m.curFrame().locals
}

// Depth reports the current call-frame depth.
func (m *VM) Depth() int { return len(m.frames) }

// Result returns the value main's RETURN left on the stack after the VM
// halted. It is only meaningful once State == Halted; the entry frame's
// ret() truncates the stack to its own stackBase (0) before RETURN pushes
// the returned value back on, so exactly one value remains.
func (m *VM) Result() Value {
	if m.State != Halted || len(m.stack) == 0 {
		return Void
	}
	return m.stack[len(m.stack)-1]
}

// ExitCode reports the process exit code spec.md assigns main's return
// value: the Int it returned on a normal halt, or 1 on a runtime fault.
func (m *VM) ExitCode() int {
	if m.State == Faulted {
		return 1
	}
	if r := m.Result(); r.Kind == KInt {
		return int(r.I)
	}
	return 0
}

func (m *VM) fault(err error) error {
	m.State = Faulted
	m.Err = err
	return err
}

func (m *VM) push(v Value) { m.stack = append(m.stack, v) }

func (m *VM) pop() Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *VM) curFrame() *frame { return &m.frames[len(m.frames)-1] }

func (m *VM) readU8() byte {
	b := m.module.Code[m.ip]
	m.ip++
	return b
}

func (m *VM) readU16() uint16 {
	v := uint16(m.module.Code[m.ip])<<8 | uint16(m.module.Code[m.ip+1])
	m.ip += 2
	return v
}

// Step executes exactly one instruction. It is exported so a debugger can
// single-step the VM (the ebiten inspector drives this directly).
func (m *VM) Step() error {
	if m.State != Running {
		return nil
	}
	if m.Budget > 0 {
		m.Budget--
		if m.Budget == 0 {
			return m.fault(ErrBudgetExceeded)
		}
	}

	op := bytecode.Op(m.module.Code[m.ip])
	m.ip++

	switch op {
	case bytecode.PUSH_CONST:
		idx := m.readU16()
		m.push(valueFromConst(m.module.Constants[idx]))
	case bytecode.PUSH_TRUE:
		m.push(Bool(true))
	case bytecode.PUSH_FALSE:
		m.push(Bool(false))
	case bytecode.PUSH_VOID:
		m.push(Void)

	case bytecode.LOAD_LOCAL:
		slot := m.readU8()
		m.push(m.curFrame().locals[slot])
	case bytecode.STORE_LOCAL:
		slot := m.readU8()
		m.curFrame().locals[slot] = m.pop()

	case bytecode.ADD_I:
		r, l := m.pop(), m.pop()
		m.push(Int(l.I + r.I))
	case bytecode.SUB_I:
		r, l := m.pop(), m.pop()
		m.push(Int(l.I - r.I))
	case bytecode.MUL_I:
		r, l := m.pop(), m.pop()
		m.push(Int(l.I * r.I))
	case bytecode.DIV_I:
		r, l := m.pop(), m.pop()
		if r.I == 0 {
			return m.fault(fmt.Errorf("division by zero"))
		}
		m.push(Int(l.I / r.I))
	case bytecode.MOD_I:
		r, l := m.pop(), m.pop()
		if r.I == 0 {
			return m.fault(fmt.Errorf("division by zero"))
		}
		m.push(Int(l.I % r.I))
	case bytecode.NEG_I:
		v := m.pop()
		m.push(Int(-v.I))

	case bytecode.ADD_F:
		r, l := m.pop(), m.pop()
		m.push(Float(l.F + r.F))
	case bytecode.SUB_F:
		r, l := m.pop(), m.pop()
		m.push(Float(l.F - r.F))
	case bytecode.MUL_F:
		r, l := m.pop(), m.pop()
		m.push(Float(l.F * r.F))
	case bytecode.DIV_F:
		r, l := m.pop(), m.pop()
		m.push(Float(l.F / r.F))
	case bytecode.NEG_F:
		v := m.pop()
		m.push(Float(-v.F))

	case bytecode.CONCAT_STR:
		r, l := m.pop(), m.pop()
		m.push(Str(l.S + r.S))

	case bytecode.EQ:
		r, l := m.pop(), m.pop()
		m.push(Bool(valuesEqual(l, r)))
	case bytecode.NE:
		r, l := m.pop(), m.pop()
		m.push(Bool(!valuesEqual(l, r)))
	case bytecode.LT_I:
		r, l := m.pop(), m.pop()
		m.push(Bool(l.I < r.I))
	case bytecode.LE_I:
		r, l := m.pop(), m.pop()
		m.push(Bool(l.I <= r.I))
	case bytecode.GT_I:
		r, l := m.pop(), m.pop()
		m.push(Bool(l.I > r.I))
	case bytecode.GE_I:
		r, l := m.pop(), m.pop()
		m.push(Bool(l.I >= r.I))
	case bytecode.LT_F:
		r, l := m.pop(), m.pop()
		m.push(Bool(l.F < r.F))
	case bytecode.LE_F:
		r, l := m.pop(), m.pop()
		m.push(Bool(l.F <= r.F))
	case bytecode.GT_F:
		r, l := m.pop(), m.pop()
		m.push(Bool(l.F > r.F))
	case bytecode.GE_F:
		r, l := m.pop(), m.pop()
		m.push(Bool(l.F >= r.F))

	case bytecode.NOT:
		v := m.pop()
		m.push(Bool(!v.B))

	case bytecode.JUMP:
		target := m.readU16()
		m.ip = int(target)
	case bytecode.JUMP_IF_FALSE:
		target := m.readU16()
		if !m.pop().B {
			m.ip = int(target)
		}
	case bytecode.JUMP_IF_TRUE:
		target := m.readU16()
		if m.pop().B {
			m.ip = int(target)
		}

	case bytecode.CALL:
		idx := int(m.readU16())
		argc := int(m.readU8())
		m.call(idx, argc)
	case bytecode.RETURN:
		v := m.pop()
		if err := m.ret(); err != nil {
			return err
		}
		m.push(v)
	case bytecode.RETURN_VOID:
		if err := m.ret(); err != nil {
			return err
		}
		m.push(Void)

	case bytecode.CALL_INTRINSIC:
		id := bytecode.IntrinsicID(m.readU8())
		argc := int(m.readU8())
		if err := m.callIntrinsic(id, argc); err != nil {
			return m.fault(err)
		}

	case bytecode.POP:
		m.pop()
	case bytecode.DUP:
		m.push(m.stack[len(m.stack)-1])

	default:
		return m.fault(fmt.Errorf("unknown opcode %d at %d", op, m.ip-1))
	}
	return nil
}

func valuesEqual(l, r Value) bool {
	if l.Kind != r.Kind {
		return false
	}
	switch l.Kind {
	case KInt:
		return l.I == r.I
	case KFloat:
		return l.F == r.F
	case KBool:
		return l.B == r.B
	case KString:
		return l.S == r.S
	default:
		return true // two Voids are always equal
	}
}

func (m *VM) call(funcIdx, argc int) {
	fn := m.module.Functions[funcIdx]
	locals := make([]Value, fn.LocalCount)
	args := m.stack[len(m.stack)-argc:]
	copy(locals[:argc], args)
	m.stack = m.stack[:len(m.stack)-argc]

	m.frames = append(m.frames, frame{
		returnIP:  m.ip,
		funcIdx:   funcIdx,
		locals:    locals,
		stackBase: len(m.stack),
	})
	m.ip = fn.Entry
}

// ret pops the current call frame and resumes the caller. Popping the
// entry function's own frame halts the VM instead of returning to a
// nonexistent caller.
func (m *VM) ret() error {
	f := m.curFrame()
	m.stack = m.stack[:f.stackBase]
	returnIP := f.returnIP
	m.frames = m.frames[:len(m.frames)-1]
	if returnIP < 0 {
		m.State = Halted
		return nil
	}
	m.ip = returnIP
	return nil
}

func (m *VM) callIntrinsic(id bytecode.IntrinsicID, argc int) error {
	if int(id) >= len(intrinsicTable) || intrinsicTable[id] == nil {
		return fmt.Errorf("unregistered intrinsic id %d", id)
	}
	args := append([]Value(nil), m.stack[len(m.stack)-argc:]...)
	m.stack = m.stack[:len(m.stack)-argc]
	result, err := intrinsicTable[id](m, args)
	if err != nil {
		return err
	}
	m.push(result)
	return nil
}
