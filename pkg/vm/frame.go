package vm

// frame is one call frame: where to resume the caller, and this call's
// local-variable slots (parameters occupy the first ParamCount of them).
type frame struct {
	returnIP  int
	funcIdx   int
	locals    []Value
	stackBase int // operand stack depth when this frame was pushed
}
