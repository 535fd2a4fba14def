// Package vm implements the stack-based virtual machine that executes a
// bytecode.Module: a fetch-decode-execute loop over an operand stack and
// a stack of call frames, plus the intrinsic host-callback table.
package vm

import "strconv"

// Kind tags a runtime Value with which of the five variants it holds.
type Kind byte

const (
	KInt Kind = iota
	KFloat
	KBool
	KString
	KVoid
)

// Value is the VM's tagged runtime value — the dynamic counterpart of
// compiler.Type. Every operand on the stack and every local slot holds
// exactly one of these.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	B    bool
	S    string
}

func Int(i int64) Value     { return Value{Kind: KInt, I: i} }
func Float(f float64) Value { return Value{Kind: KFloat, F: f} }
func Bool(b bool) Value     { return Value{Kind: KBool, B: b} }
func Str(s string) Value    { return Value{Kind: KString, S: s} }

var Void = Value{Kind: KVoid}

// String renders v the way the to_string intrinsic does: integers and
// floats in their usual decimal form, booleans as true/false, strings
// unquoted.
func (v Value) String() string {
	switch v.Kind {
	case KInt:
		return strconv.FormatInt(v.I, 10)
	case KFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KBool:
		return strconv.FormatBool(v.B)
	case KString:
		return v.S
	case KVoid:
		return "void"
	default:
		return "<invalid value>"
	}
}

func valueFromConst(c any) Value {
	switch v := c.(type) {
	case int64:
		return Int(v)
	case float64:
		return Float(v)
	case bool:
		return Bool(v)
	case string:
		return Str(v)
	default:
		return Void
	}
}
