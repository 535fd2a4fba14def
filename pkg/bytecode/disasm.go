package bytecode

import (
	"fmt"
	"io"
	"strconv"
)

// Disassembler formats a Module's instruction stream as a readable,
// assembly-style dump, one function at a time.
type Disassembler struct {
	w io.Writer
}

func NewDisassembler(w io.Writer) *Disassembler {
	return &Disassembler{w: w}
}

// Disassemble dumps every function in m in function-table order.
func (d *Disassembler) Disassemble(m *Module) error {
	for i, fn := range m.Functions {
		if i > 0 {
			fmt.Fprintln(d.w)
		}
		if err := d.disassembleFunc(m, fn); err != nil {
			return err
		}
	}
	return nil
}

func (d *Disassembler) disassembleFunc(m *Module, fn FuncEntry) error {
	fmt.Fprintf(d.w, "func %s (params=%d, locals=%d) entry=%d\n", fn.Name, fn.ParamCount, fn.LocalCount, fn.Entry)

	end := len(m.Code)
	for _, other := range m.Functions {
		if other.Entry > fn.Entry && other.Entry < end {
			end = other.Entry
		}
	}

	code := m.Code
	for ip := fn.Entry; ip < end; {
		offset := ip
		op := Op(code[ip])
		ip++
		operands, err := decodeOperands(m, op, code, &ip)
		if err != nil {
			return err
		}
		fmt.Fprintf(d.w, "%04d %-16s", offset, op)
		if operands != "" {
			fmt.Fprintf(d.w, " %s", operands)
		}
		fmt.Fprintln(d.w)
	}
	return nil
}

func decodeOperands(m *Module, op Op, code []byte, ip *int) (string, error) {
	switch op {
	case PUSH_CONST:
		idx, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		if int(idx) >= len(m.Constants) {
			return "", fmt.Errorf("const index out of range: %d", idx)
		}
		return fmt.Sprintf("%d ; const[%d]=%s", idx, idx, formatConst(m.Constants[idx])), nil
	case LOAD_LOCAL, STORE_LOCAL:
		slot, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", slot), nil
	case JUMP, JUMP_IF_FALSE, JUMP_IF_TRUE:
		target, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", target), nil
	case CALL:
		idx, err := readU16(code, ip)
		if err != nil {
			return "", err
		}
		argc, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		name := "<invalid>"
		if int(idx) < len(m.Functions) {
			name = m.Functions[idx].Name
		}
		return fmt.Sprintf("%d %d ; func[%d]=%s", idx, argc, idx, name), nil
	case CALL_INTRINSIC:
		id, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		argc, err := readU8(code, ip)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d %d", id, argc), nil
	default:
		return "", nil
	}
}

func formatConst(v any) string {
	switch val := v.(type) {
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case string:
		return strconv.Quote(val)
	default:
		return "<unknown>"
	}
}

func readU8(code []byte, ip *int) (byte, error) {
	if *ip >= len(code) {
		return 0, fmt.Errorf("unexpected end of bytecode")
	}
	v := code[*ip]
	*ip++
	return v, nil
}

func readU16(code []byte, ip *int) (uint16, error) {
	if *ip+1 >= len(code) {
		return 0, fmt.Errorf("unexpected end of bytecode")
	}
	v := uint16(code[*ip])<<8 | uint16(code[*ip+1])
	*ip += 2
	return v, nil
}
