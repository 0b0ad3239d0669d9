package compiler

import (
	"testing"

	"pl0/pkg/ir"
	"pl0/pkg/vm"
)

// runProgram drives compiled code to completion on an in-memory VM and
// returns the events it wrote. It fails the test on any runtime error or
// on a NeedInput with no more values queued.
func runProgram(t *testing.T, code []ir.Instruction, input []int64) []vm.OutputEvent {
	t.Helper()
	ch := make(chan int64, len(input))
	for _, v := range input {
		ch <- v
	}
	close(ch)

	machine := vm.NewVM(code, ch)
	res := machine.Run()
	if res.Status == vm.Errored {
		t.Fatalf("VM error: %v", res.Err)
	}
	if res.Status == vm.NeedInput {
		t.Fatalf("VM blocked on read with no more input")
	}
	return machine.Output
}

// runProgramExpectError drives code to completion and requires it to end
// in a runtime error, returning that error.
func runProgramExpectError(t *testing.T, code []ir.Instruction, input []int64) *vm.Error {
	t.Helper()
	ch := make(chan int64, len(input))
	for _, v := range input {
		ch <- v
	}
	close(ch)

	machine := vm.NewVM(code, ch)
	res := machine.Run()
	if res.Status != vm.Errored {
		t.Fatalf("got status %s, want Errored", res.Status)
	}
	return res.Err
}
