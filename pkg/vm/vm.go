// Package vm executes the P-code a compiler (pkg/compiler) produces: a
// stack machine with three registers (P, B, T) and activation records
// linked by static and dynamic chains.
package vm

import (
	"errors"
	"fmt"

	"pl0/pkg/ir"
)

// DefaultStackLimit is the recommended stack depth ceiling from the
// toolchain's design notes. NewVM uses it unless overridden via
// VM.StackLimit after construction.
const DefaultStackLimit = 4096

// DefaultTraceLen bounds the ring buffer of recently executed
// instructions a debugger can inspect between steps.
const DefaultTraceLen = 64

var (
	ErrArith          = errors.New("arithmetic overflow")
	ErrDivByZero      = errors.New("division by zero")
	ErrStackOverflow  = errors.New("stack overflow")
	ErrCodeFault      = errors.New("instruction fetch out of bounds")
	ErrInputExhausted = errors.New("input exhausted")
)

// ErrorKind classifies a runtime error. It is a separate, disjoint set
// from the compiler's Kind (pkg/compiler's diagnostics are compile-time;
// these are raised only once code is actually executing).
type ErrorKind int

const (
	VMArithError ErrorKind = iota
	VMDivByZero
	VMStackOverflow
	VMCodeFault
	VMInputExhausted
)

var errorKindSentinel = [...]error{
	VMArithError:     ErrArith,
	VMDivByZero:      ErrDivByZero,
	VMStackOverflow:  ErrStackOverflow,
	VMCodeFault:      ErrCodeFault,
	VMInputExhausted: ErrInputExhausted,
}

// Error is a runtime fault raised during Step. It wraps one of the
// package's sentinel errors so callers can use errors.Is.
type Error struct {
	Kind ErrorKind
	Pos  int // instruction index at which the fault occurred
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at instruction %d", errorKindSentinel[e.Kind], e.Pos)
}

func (e *Error) Unwrap() error { return errorKindSentinel[e.Kind] }

// Status is the outcome of a single Step call.
type Status int

const (
	Continue Status = iota
	Halted
	NeedInput
	Errored
)

func (s Status) String() string {
	switch s {
	case Continue:
		return "continue"
	case Halted:
		return "halted"
	case NeedInput:
		return "need-input"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StepResult reports what happened during one Step call.
type StepResult struct {
	Status Status
	Err    *Error // non-nil iff Status == Errored
}

// OutputEvent is one value sent to a VM's output channel by WRT. Newline
// is set for the blank "write" form (WRT with A=1), which carries no
// Value.
type OutputEvent struct {
	Value   int64
	Newline bool
}

// Snapshot is a read-only view of a VM's registers and data stack,
// suitable for a debugger or trace line.
type Snapshot struct {
	PC      int
	BP      int
	SP      int
	Stack   []int64
	LastOp  ir.Instruction
	HasLast bool
}

// VM is a single-threaded stack machine for one compiled program. It is
// not safe for concurrent use.
type VM struct {
	Code []ir.Instruction

	P int // program counter: index of the next instruction to fetch
	B int // base pointer: current frame's base
	T int // stack pointer: index of the top occupied stack slot, -1 when empty

	Stack []int64

	// Input is the one suspension point in the execution model: Step
	// does a non-blocking receive, returning NeedInput rather than
	// blocking when it is empty.
	Input <-chan int64

	// Output is an unbounded buffer WRT appends to; never blocks.
	Output []OutputEvent

	// StackLimit is the maximum value T may reach before VMStackOverflow.
	StackLimit int

	// InstructionCount is the number of instructions successfully
	// executed so far.
	InstructionCount int64

	// Trace is a ring buffer of the last DefaultTraceLen instructions
	// executed, oldest first.
	Trace []ir.Instruction

	halted  bool
	lastOp  ir.Instruction
	hasLast bool
}

// NewVM returns a VM ready to execute code. B and T start as if an
// implicit outer frame had already been entered (SL=DL=RA=0 at
// S[0..2]), so the program's own root-block INT reserves its frame atop
// that header without a corresponding CAL.
func NewVM(code []ir.Instruction, input <-chan int64) *VM {
	return &VM{
		Code:       code,
		P:          0,
		B:          0,
		T:          -1,
		Stack:      make([]int64, 3),
		Input:      input,
		StackLimit: DefaultStackLimit,
	}
}

func (v *VM) ensure(idx int) {
	if idx < len(v.Stack) {
		return
	}
	grown := make([]int64, idx+1)
	copy(grown, v.Stack)
	v.Stack = grown
}

func (v *VM) push(val int64) *Error {
	v.T++
	if v.T > v.StackLimit {
		return &Error{Kind: VMStackOverflow, Pos: v.P}
	}
	v.ensure(v.T)
	v.Stack[v.T] = val
	return nil
}

func (v *VM) pop() int64 {
	val := v.Stack[v.T]
	v.T--
	return val
}

func (v *VM) base(l int) int {
	b := v.B
	for i := 0; i < l; i++ {
		b = int(v.Stack[b])
	}
	return b
}

// Snapshot returns the VM's current register and stack state.
func (v *VM) Snapshot() Snapshot {
	stack := make([]int64, v.T+1)
	copy(stack, v.Stack[:v.T+1])
	return Snapshot{PC: v.P, BP: v.B, SP: v.T, Stack: stack, LastOp: v.lastOp, HasLast: v.hasLast}
}

func (v *VM) recordTrace(instr ir.Instruction) {
	if cap(v.Trace) == 0 {
		v.Trace = make([]ir.Instruction, 0, DefaultTraceLen)
	}
	if len(v.Trace) < DefaultTraceLen {
		v.Trace = append(v.Trace, instr)
		return
	}
	copy(v.Trace, v.Trace[1:])
	v.Trace[DefaultTraceLen-1] = instr
}

// Step executes exactly one instruction. Once Step returns Halted or
// Errored, further calls are no-ops returning Halted; an earlier error is
// not reported again.
func (v *VM) Step() StepResult {
	if v.halted {
		return StepResult{Status: Halted}
	}
	if v.P < 0 || v.P >= len(v.Code) {
		v.halted = true
		return StepResult{Status: Errored, Err: &Error{Kind: VMCodeFault, Pos: v.P}}
	}

	instr := v.Code[v.P]
	v.P++

	res := v.execute(instr)
	if res.Status != NeedInput {
		v.InstructionCount++
		v.lastOp = instr
		v.hasLast = true
		v.recordTrace(instr)
	}
	if res.Status == Halted || res.Status == Errored {
		v.halted = true
	}
	return res
}

func (v *VM) execute(instr ir.Instruction) StepResult {
	switch instr.Op {
	case ir.LIT:
		if err := v.push(instr.A); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.LOD:
		addr := v.base(instr.L) + int(instr.A)
		v.ensure(addr)
		if err := v.push(v.Stack[addr]); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.STO:
		val := v.pop()
		addr := v.base(instr.L) + int(instr.A)
		v.ensure(addr)
		v.Stack[addr] = val

	case ir.CAL:
		sl := int64(v.base(instr.L))
		dl := int64(v.B)
		ra := int64(v.P)
		newB := v.T + 1
		v.ensure(newB + 2)
		v.Stack[newB] = sl
		v.Stack[newB+1] = dl
		v.Stack[newB+2] = ra
		v.B = newB
		v.P = int(instr.A)

	case ir.INT:
		newT := v.T + int(instr.A)
		if newT > v.StackLimit {
			return StepResult{Status: Errored, Err: &Error{Kind: VMStackOverflow, Pos: v.P - 1}}
		}
		v.ensure(newT)
		// The frame's first 3 reserved slots are SL/DL/RA, already written
		// by CAL (or, for the outermost frame, already zero); only the
		// locals above them need clearing.
		for i := v.T + 4; i <= newT; i++ {
			v.Stack[i] = 0
		}
		v.T = newT

	case ir.JMP:
		v.P = int(instr.A)

	case ir.JPC:
		if v.pop() == 0 {
			v.P = int(instr.A)
		}

	case ir.OPR:
		return v.opr(ir.Operator(instr.A))

	case ir.RED:
		select {
		case val, ok := <-v.Input:
			if !ok {
				return StepResult{Status: Errored, Err: &Error{Kind: VMInputExhausted, Pos: v.P - 1}}
			}
			if err := v.push(val); err != nil {
				return StepResult{Status: Errored, Err: err}
			}
		default:
			// Preserve all state (including P, rolled back below) so the
			// same RED is retried once input becomes available.
			v.P--
			return StepResult{Status: NeedInput}
		}

	case ir.WRT:
		if instr.A == 1 {
			v.Output = append(v.Output, OutputEvent{Newline: true})
		} else {
			v.Output = append(v.Output, OutputEvent{Value: v.pop()})
		}

	default:
		return StepResult{Status: Errored, Err: &Error{Kind: VMCodeFault, Pos: v.P - 1}}
	}

	return StepResult{Status: Continue}
}

func (v *VM) opr(op ir.Operator) StepResult {
	pos := v.P - 1
	switch op {
	case ir.OprRet:
		if v.B == 0 {
			return StepResult{Status: Halted}
		}
		newT := v.B - 1
		ra := v.Stack[v.B+2]
		dl := v.Stack[v.B+1]
		v.T = newT
		v.P = int(ra)
		v.B = int(dl)

	case ir.OprNeg:
		a := v.pop()
		if a == minInt64 {
			return StepResult{Status: Errored, Err: &Error{Kind: VMArithError, Pos: pos}}
		}
		if err := v.push(-a); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprAdd:
		b, a := v.pop(), v.pop()
		sum := a + b
		if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
			return StepResult{Status: Errored, Err: &Error{Kind: VMArithError, Pos: pos}}
		}
		if err := v.push(sum); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprSub:
		b, a := v.pop(), v.pop()
		diff := a - b
		if (a >= 0 && b < 0 && diff < 0) || (a < 0 && b > 0 && diff >= 0) {
			return StepResult{Status: Errored, Err: &Error{Kind: VMArithError, Pos: pos}}
		}
		if err := v.push(diff); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprMul:
		b, a := v.pop(), v.pop()
		prod := a * b
		if a != 0 && prod/a != b {
			return StepResult{Status: Errored, Err: &Error{Kind: VMArithError, Pos: pos}}
		}
		if err := v.push(prod); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprDiv:
		b, a := v.pop(), v.pop()
		if b == 0 {
			return StepResult{Status: Errored, Err: &Error{Kind: VMDivByZero, Pos: pos}}
		}
		if a == minInt64 && b == -1 {
			return StepResult{Status: Errored, Err: &Error{Kind: VMArithError, Pos: pos}}
		}
		if err := v.push(a / b); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprOdd:
		a := v.pop()
		if err := v.push(boolInt(a%2 != 0)); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprEq:
		b, a := v.pop(), v.pop()
		if err := v.push(boolInt(a == b)); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprNeq:
		b, a := v.pop(), v.pop()
		if err := v.push(boolInt(a != b)); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprLt:
		b, a := v.pop(), v.pop()
		if err := v.push(boolInt(a < b)); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprGeq:
		b, a := v.pop(), v.pop()
		if err := v.push(boolInt(a >= b)); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprGt:
		b, a := v.pop(), v.pop()
		if err := v.push(boolInt(a > b)); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	case ir.OprLeq:
		b, a := v.pop(), v.pop()
		if err := v.push(boolInt(a <= b)); err != nil {
			return StepResult{Status: Errored, Err: err}
		}

	default:
		return StepResult{Status: Errored, Err: &Error{Kind: VMCodeFault, Pos: pos}}
	}

	return StepResult{Status: Continue}
}

const minInt64 = -1 << 63

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Run steps the VM until it halts, errors, or needs input it does not
// have buffered yet (NeedInput), returning that terminal StepResult.
// Callers driving an interactive input source should re-call Run (or
// Step) once more values have been sent on Input.
func (v *VM) Run() StepResult {
	for {
		res := v.Step()
		if res.Status != Continue {
			return res
		}
	}
}
