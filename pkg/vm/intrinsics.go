package vm

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/neksis-lang/neksis/pkg/bytecode"
)

// intrinsicFunc is a host callback a CALL_INTRINSIC instruction may
// invoke. args has already been arity-checked by the compiler; a callback
// only needs to validate the runtime tags it actually cares about.
type intrinsicFunc func(m *VM, args []Value) (Value, error)

// intrinsicTable is indexed by bytecode.IntrinsicID, mirroring the
// teacher's fixed-size Peripherals slot array: the VM dispatches through
// a small integer ID rather than switching on the intrinsic's name.
var intrinsicTable = [...]intrinsicFunc{
	bytecode.IntrinsicPrint:    intrinsicPrint,
	bytecode.IntrinsicPrintln:  intrinsicPrintln,
	bytecode.IntrinsicReadLine: intrinsicReadLine,
	bytecode.IntrinsicAbs:      intrinsicAbs,
	bytecode.IntrinsicLen:      intrinsicLen,
	bytecode.IntrinsicToString: intrinsicToString,
}

func intrinsicPrint(m *VM, args []Value) (Value, error) {
	fmt.Fprint(m.Stdout, args[0].S)
	return Void, nil
}

func intrinsicPrintln(m *VM, args []Value) (Value, error) {
	fmt.Fprintln(m.Stdout, args[0].S)
	return Void, nil
}

// intrinsicReadLine acquires the VM's bufio.Reader on first use and never
// re-allocates it, so a program calling read_line in a loop reuses one
// buffer instead of dropping bytes between calls.
func intrinsicReadLine(m *VM, args []Value) (Value, error) {
	if m.stdinReader == nil {
		m.stdinReader = bufio.NewReader(m.Stdin)
	}
	line, err := m.stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return Str(""), nil // EOF: an empty line, not a runtime fault
	}
	return Str(strings.TrimRight(line, "\r\n")), nil
}

func intrinsicAbs(m *VM, args []Value) (Value, error) {
	v := args[0]
	switch v.Kind {
	case KInt:
		if v.I < 0 {
			return Int(-v.I), nil
		}
		return v, nil
	case KFloat:
		if v.F < 0 {
			return Float(-v.F), nil
		}
		return v, nil
	default:
		return Value{}, fmt.Errorf("abs: expected Int or Float, got %s", v.Kind)
	}
}

func intrinsicLen(m *VM, args []Value) (Value, error) {
	return Int(int64(len(args[0].S))), nil
}

func intrinsicToString(m *VM, args []Value) (Value, error) {
	return Str(args[0].String()), nil
}

func (k Kind) String() string {
	switch k {
	case KInt:
		return "Int"
	case KFloat:
		return "Float"
	case KBool:
		return "Bool"
	case KString:
		return "String"
	case KVoid:
		return "Void"
	default:
		return "<invalid kind>"
	}
}
