package compiler

import (
	"testing"

	"pl0/pkg/vm"
)

func compileClean(t *testing.T, src string) CompileResult {
	t.Helper()
	result := Compile(src, CompileOptions{})
	if result.Diagnostics.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", result.Diagnostics.Items())
	}
	return result
}

func outputValues(t *testing.T, code CompileResult, input []int64) []int64 {
	t.Helper()
	events := runProgram(t, code.Code, input)
	out := make([]int64, 0, len(events))
	for _, e := range events {
		if !e.Newline {
			out = append(out, e.Value)
		}
	}
	return out
}

func equalInt64(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Scenario 1: square via read/write.
func TestE2ESquare(t *testing.T) {
	result := compileClean(t, "program p; var x; begin read(x); write(x*x) end.")
	got := outputValues(t, result, []int64{7})
	want := []int64{49}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// Scenario 2: Fibonacci-like recursive call tree. f(k) writes k once
// k <= 1, otherwise recurses on k-1 then k-2; the output is the pre-order
// sequence of leaves.
const fibProgram = `program p; var n; procedure f(k); begin
	if k <= 1 then write(k)
	else begin call f(k-1); call f(k-2) end
end;
begin read(n); call f(n) end.`

func TestE2EFibonacciTreeN3(t *testing.T) {
	result := compileClean(t, fibProgram)
	got := outputValues(t, result, []int64{3})
	want := []int64{1, 0, 1}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestE2EFibonacciTreeN5(t *testing.T) {
	result := compileClean(t, fibProgram)
	got := outputValues(t, result, []int64{5})
	want := []int64{1, 0, 1, 1, 0, 1, 0, 1}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// Scenario 3: sum of odd numbers from 1 to n.
const sumOfOddsProgram = `program p;
	var n, i, sum;
	begin
		read(n);
		i := 1; sum := 0;
		while i <= n do
		begin
			if odd i then sum := sum + i;
			i := i + 1
		end;
		write(sum)
	end.`

func TestE2ESumOfOdds(t *testing.T) {
	result := compileClean(t, sumOfOddsProgram)
	got := outputValues(t, result, []int64{5})
	want := []int64{9}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// Scenario 4: duplicate declaration yields exactly one SemDuplicate and no
// code.
func TestE2EDuplicateDeclaration(t *testing.T) {
	result := Compile("program p; var a, a; begin end.", CompileOptions{})
	count := 0
	for _, d := range result.Diagnostics.Items() {
		if d.Kind == SemDuplicate {
			count++
		}
	}
	if count != 1 {
		t.Errorf("got %d SemDuplicate diagnostics, want 1", count)
	}
	if result.Code != nil {
		t.Errorf("expected no code to be emitted, got %v", result.Code)
	}
}

// Scenario 5: an undefined call reports exactly one SemUndefined, and a
// sibling statement's own error still surfaces.
func TestE2EUndefinedCallSiblingsStillChecked(t *testing.T) {
	result := Compile("program p; var x; begin call noSuch; x := alsoMissing end.", CompileOptions{})
	undefCount := 0
	for _, d := range result.Diagnostics.Items() {
		if d.Kind == SemUndefined {
			undefCount++
		}
	}
	if undefCount != 2 {
		t.Errorf("got %d SemUndefined diagnostics, want 2 (one per undefined name)", undefCount)
	}
}

// Scenario 6: a doubly nested procedure writes an outer variable via the
// static chain; three loop iterations of step 100 sum to 300.
const staticChainProgram = `program p;
	var total;
	procedure outer;
		var i;
		procedure inner;
		begin
			total := total + 100
		end;
	begin
		i := 0;
		while i < 3 do
		begin
			call inner;
			i := i + 1
		end
	end;
	begin
		total := 0;
		call outer;
		write(total)
	end.`

func TestE2EStaticChainWritesOuterVariable(t *testing.T) {
	result := compileClean(t, staticChainProgram)
	got := outputValues(t, result, nil)
	want := []int64{300}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// Boundary cases.

func TestBoundaryEmptyBody(t *testing.T) {
	result := compileClean(t, "program p; begin end.")
	got := outputValues(t, result, nil)
	if len(got) != 0 {
		t.Errorf("got %v, want no output", got)
	}
}

func TestBoundaryDeepNesting(t *testing.T) {
	// five levels of procedure nesting, innermost writes a constant.
	src := `program p;
		procedure l1;
			procedure l2;
				procedure l3;
					procedure l4;
						procedure l5;
						begin write(5) end;
					begin call l5 end;
				begin call l4 end;
			begin call l3 end;
		begin call l2 end;
		begin call l1 end.`
	result := compileClean(t, src)
	got := outputValues(t, result, nil)
	want := []int64{5}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBoundaryIfWithoutElse(t *testing.T) {
	result := compileClean(t, "program p; var a; begin a := 1; if a = 0 then a := 2; write(a) end.")
	got := outputValues(t, result, nil)
	want := []int64{1}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBoundaryWhileEmptyBody(t *testing.T) {
	result := compileClean(t, "program p; var a; begin a := 0; while a < 0 do begin end; write(a) end.")
	got := outputValues(t, result, nil)
	want := []int64{0}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBoundaryArithmeticJustFits(t *testing.T) {
	result := compileClean(t, "program p; var a; begin a := 9223372036854775807; write(a) end.")
	got := outputValues(t, result, nil)
	want := []int64{9223372036854775807}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBoundaryArithmeticOverflow(t *testing.T) {
	result := compileClean(t, "program p; var a; begin a := 9223372036854775807; a := a + 1; write(a) end.")
	err := runProgramExpectError(t, result.Code, nil)
	if err.Kind != vm.VMArithError {
		t.Errorf("got error kind %v, want VMArithError", err.Kind)
	}
}

func TestBoundaryDivisionByRuntimeZero(t *testing.T) {
	result := compileClean(t, "program p; var a, z; begin z := 0; a := 10 / z; write(a) end.")
	err := runProgramExpectError(t, result.Code, nil)
	if err.Kind != vm.VMDivByZero {
		t.Errorf("got error kind %v, want VMDivByZero", err.Kind)
	}
}

func TestBoundaryReadPastEndOfInput(t *testing.T) {
	result := compileClean(t, "program p; var a, b; begin read(a); read(b); write(a) end.")
	err := runProgramExpectError(t, result.Code, []int64{1})
	if err.Kind != vm.VMInputExhausted {
		t.Errorf("got error kind %v, want VMInputExhausted", err.Kind)
	}
}

func TestBoundaryCallWithZeroArguments(t *testing.T) {
	result := compileClean(t, "program p; procedure f; begin write(9) end; begin call f end.")
	got := outputValues(t, result, nil)
	want := []int64{9}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBoundaryRecursiveCallFromFirstStatement(t *testing.T) {
	// The procedure's only statement is an if whose else-branch calls the
	// procedure itself, so the self-call is reached on the very first
	// statement executed in every invocation but the last.
	src := `program p;
		procedure countdown(n);
		begin
			if n = 0 then write(n) else call countdown(n-1)
		end;
		begin call countdown(3) end.`
	result := compileClean(t, src)
	got := outputValues(t, result, nil)
	want := []int64{0}
	if !equalInt64(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
