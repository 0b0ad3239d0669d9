// Package ir defines the linear P-code instruction set shared by the code
// generator (pkg/compiler) and the virtual machine (pkg/vm). It is the one
// representation that survives from a compilation into an execution: the
// AST and symbol table are both discarded once an Instruction slice has
// been produced.
package ir

import "fmt"

// Op identifies a P-code operation.
type Op uint8

const (
	LIT Op = iota // push A
	LOD           // push S[base(L)+A]
	STO           // S[base(L)+A] := pop()
	CAL           // call procedure at A, statically enclosed L levels up
	INT           // reserve A frame slots (T += A)
	JMP           // unconditional jump to A
	JPC           // pop; jump to A if the popped value is zero
	OPR           // arithmetic/comparison/return, selected by A (see Operator)
	RED           // push an integer read from the input channel
	WRT           // A=0: pop and write a value; A=1: write a bare newline
)

var opNames = [...]string{
	LIT: "LIT",
	LOD: "LOD",
	STO: "STO",
	CAL: "CAL",
	INT: "INT",
	JMP: "JMP",
	JPC: "JPC",
	OPR: "OPR",
	RED: "RED",
	WRT: "WRT",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Operator enumerates the OPR subcodes carried in an OPR instruction's A field.
type Operator int64

const (
	OprRet Operator = iota // return to caller
	OprNeg                 // unary negate
	OprAdd
	OprSub
	OprMul
	OprDiv
	OprOdd
	OprEq
	OprNeq
	OprLt
	OprGeq
	OprGt
	OprLeq
)

var operatorNames = [...]string{
	OprRet: "RET",
	OprNeg: "NEG",
	OprAdd: "ADD",
	OprSub: "SUB",
	OprMul: "MUL",
	OprDiv: "DIV",
	OprOdd: "ODD",
	OprEq:  "EQ",
	OprNeq: "NEQ",
	OprLt:  "LT",
	OprGeq: "GEQ",
	OprGt:  "GT",
	OprLeq: "LEQ",
}

func (o Operator) String() string {
	if int(o) >= 0 && int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("Operator(%d)", int64(o))
}

// Instruction is one P-code triple (Op, L, A). L is a non-negative level
// difference walked via static links; A is opcode-dependent (an address,
// a frame offset, an immediate literal, or an Operator subcode for OPR).
type Instruction struct {
	Op Op
	L  int
	A  int64
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s %d %d", i.Op, i.L, i.A)
}

// PlaceholderTarget marks a backpatchable jump/call target that has not
// yet been resolved. Any Instruction surviving code generation with this
// value in A indicates a backpatching bug, never a valid program.
const PlaceholderTarget int64 = -1
