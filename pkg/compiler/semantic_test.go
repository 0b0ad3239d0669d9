package compiler

import "testing"

func analyze(t *testing.T, src string) (*Program, *SymbolTable, *Diagnostics) {
	t.Helper()
	diag := &Diagnostics{}
	toks := Lex(src, diag)
	prog := Parse(toks, diag)
	if diag.HasErrors() {
		t.Fatalf("unexpected parse diagnostics: %v", diag.Items())
	}
	st := Analyze(prog, diag)
	return prog, st, diag
}

func kindsOf(diag *Diagnostics) []Kind {
	items := diag.Items()
	out := make([]Kind, len(items))
	for i, d := range items {
		out[i] = d.Kind
	}
	return out
}

func hasKind(diag *Diagnostics, k Kind) bool {
	for _, got := range kindsOf(diag) {
		if got == k {
			return true
		}
	}
	return false
}

func TestAnalyzeCleanProgram(t *testing.T) {
	_, _, diag := analyze(t, `program p;
		var x;
		begin x := 1; write(x) end.`)
	if diag.HasErrors() {
		t.Errorf("unexpected diagnostics: %v", diag.Items())
	}
}

func TestAnalyzeUndefinedIdentifier(t *testing.T) {
	_, _, diag := analyze(t, "program p; begin x := 1 end.")
	if !hasKind(diag, SemUndefined) {
		t.Errorf("got %v, want SemUndefined", kindsOf(diag))
	}
}

func TestAnalyzeDuplicateDeclaration(t *testing.T) {
	_, _, diag := analyze(t, "program p; var x, x; begin end.")
	if !hasKind(diag, SemDuplicate) {
		t.Errorf("got %v, want SemDuplicate", kindsOf(diag))
	}
}

func TestAnalyzeAssignToConstant(t *testing.T) {
	_, _, diag := analyze(t, "program p; const x = 1; begin x := 2 end.")
	if !hasKind(diag, SemAssignToConstant) {
		t.Errorf("got %v, want SemAssignToConstant", kindsOf(diag))
	}
}

func TestAnalyzeCallingAVariable(t *testing.T) {
	_, _, diag := analyze(t, "program p; var x; begin call x end.")
	if !hasKind(diag, SemWrongKind) {
		t.Errorf("got %v, want SemWrongKind", kindsOf(diag))
	}
}

func TestAnalyzeUsingAProcedureAsAValue(t *testing.T) {
	_, _, diag := analyze(t, "program p; var y; procedure f; begin end; begin y := f end.")
	if !hasKind(diag, SemWrongKind) {
		t.Errorf("got %v, want SemWrongKind", kindsOf(diag))
	}
}

func TestAnalyzeArityMismatch(t *testing.T) {
	_, _, diag := analyze(t, "program p; procedure f(a, b); begin end; begin call f(1) end.")
	if !hasKind(diag, SemArityMismatch) {
		t.Errorf("got %v, want SemArityMismatch", kindsOf(diag))
	}
}

func TestAnalyzeConstDivZero(t *testing.T) {
	diag := &Diagnostics{}
	toks := Lex("program p; var x; begin x := 1 / 0 end.", diag)
	prog := Parse(toks, diag)
	Analyze(prog, diag)
	FoldConstants(prog, diag)
	if !hasKind(diag, SemConstDivZero) {
		t.Errorf("got %v, want SemConstDivZero", kindsOf(diag))
	}
}

func TestAnalyzeReadIntoConstantIsWrongKind(t *testing.T) {
	_, _, diag := analyze(t, "program p; const x = 1; begin read(x) end.")
	if !hasKind(diag, SemWrongKind) {
		t.Errorf("got %v, want SemWrongKind", kindsOf(diag))
	}
}

func TestAnalyzeUndefinedCallStillChecksSiblings(t *testing.T) {
	// An undefined call should report exactly one SemUndefined, and the
	// sibling statement's own error should still be reported too.
	_, _, diag := analyze(t, "program p; var x; begin call nope(1); x := missing end.")
	count := 0
	for _, k := range kindsOf(diag) {
		if k == SemUndefined {
			count++
		}
	}
	if count != 2 {
		t.Errorf("got %d SemUndefined diagnostics, want 2 (call site + sibling)", count)
	}
}

func TestAnalyzeSelfRecursionResolves(t *testing.T) {
	_, _, diag := analyze(t, `program p;
		procedure fact(n);
		begin
			if n = 0 then n := 1 else call fact(n)
		end;
		begin call fact(3) end.`)
	if diag.HasErrors() {
		t.Errorf("unexpected diagnostics: %v", diag.Items())
	}
}

func TestAnalyzeMutualRecursionAmongSiblings(t *testing.T) {
	// All procedures in a block are declared before any of their bodies
	// are walked, so p can call q even though q is written afterward.
	_, _, diag := analyze(t, `program prog;
		procedure p; begin call q end;
		procedure q; begin call p end;
		begin call p end.`)
	if diag.HasErrors() {
		t.Errorf("unexpected diagnostics: %v", diag.Items())
	}
}

func TestAnalyzeParamAddressesAreSequential(t *testing.T) {
	prog, _, diag := analyze(t, "program p; procedure f(a, b, c); begin end; begin end.")
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag.Items())
	}
	proc := prog.Block.Procs[0]
	scope := proc.Block.Scope
	for i, name := range proc.Params {
		sym := scope.Names[name]
		if sym.Addr != 3+i {
			t.Errorf("param %q: got addr %d, want %d", name, sym.Addr, 3+i)
		}
	}
}

func TestAnalyzeVarAddressesFollowParams(t *testing.T) {
	prog, _, diag := analyze(t, "program p; procedure f(a); var x, y; begin end; begin end.")
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag.Items())
	}
	proc := prog.Block.Procs[0]
	scope := proc.Block.Scope
	if scope.Names["x"].Addr != 4 || scope.Names["y"].Addr != 5 {
		t.Errorf("got x=%d y=%d, want x=4 y=5", scope.Names["x"].Addr, scope.Names["y"].Addr)
	}
}

func TestAnalyzeRootVarsStartAtThree(t *testing.T) {
	prog, _, diag := analyze(t, "program p; var a, b; begin end.")
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag.Items())
	}
	scope := prog.Block.Scope
	if scope.Names["a"].Addr != 3 || scope.Names["b"].Addr != 4 {
		t.Errorf("got a=%d b=%d, want a=3 b=4", scope.Names["a"].Addr, scope.Names["b"].Addr)
	}
}

func TestAnalyzeNestedProcedureLevels(t *testing.T) {
	prog, _, diag := analyze(t, `program p;
		procedure outer;
			procedure inner;
			begin end;
		begin end;
		begin end.`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag.Items())
	}
	if prog.Block.Scope.Level != 1 {
		t.Errorf("got root level %d, want 1", prog.Block.Scope.Level)
	}
	outer := prog.Block.Procs[0]
	if outer.Block.Scope.Level != 2 {
		t.Errorf("got outer level %d, want 2", outer.Block.Scope.Level)
	}
	inner := outer.Block.Procs[0]
	if inner.Block.Scope.Level != 3 {
		t.Errorf("got inner level %d, want 3", inner.Block.Scope.Level)
	}
}
