package compiler

import "fmt"

// Kind is the closed variant set of type terms spec.md §3 defines.
type Kind int

const (
	KUnknown Kind = iota // pre-inference placeholder; never present post-analysis
	KInt
	KFloat
	KBool
	KString
	KVoid
	KFunction
)

// Type is a type term. Function is the only composite case.
type Type struct {
	Kind     Kind
	Params   []Type // only meaningful when Kind == KFunction
	Return   *Type  // only meaningful when Kind == KFunction
}

var (
	TInt     = Type{Kind: KInt}
	TFloat   = Type{Kind: KFloat}
	TBool    = Type{Kind: KBool}
	TString  = Type{Kind: KString}
	TVoid    = Type{Kind: KVoid}
	TUnknown = Type{Kind: KUnknown}
)

func TFunc(params []Type, ret Type) Type {
	return Type{Kind: KFunction, Params: params, Return: &ret}
}

func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind != KFunction {
		return true
	}
	if len(t.Params) != len(other.Params) {
		return false
	}
	for i := range t.Params {
		if !t.Params[i].Equal(other.Params[i]) {
			return false
		}
	}
	return t.Return.Equal(*other.Return)
}

func (t Type) String() string {
	switch t.Kind {
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
	case KUnknown:
		return "Unknown"
	case KFunction:
		s := "fn("
		for i, p := range t.Params {
			if i > 0 {
				s += ", "
			}
			s += p.String()
		}
		return s + ") -> " + t.Return.String()
	default:
		return fmt.Sprintf("Type(%d)", int(t.Kind))
	}
}

// typeFromToken maps a parsed type-name token to its Type term.
func typeFromToken(tt TokenType) (Type, bool) {
	switch tt {
	case TYPE_INT:
		return TInt, true
	case TYPE_FLOAT:
		return TFloat, true
	case TYPE_BOOL:
		return TBool, true
	case TYPE_STRING:
		return TString, true
	case TYPE_VOID:
		return TVoid, true
	default:
		return TUnknown, false
	}
}
