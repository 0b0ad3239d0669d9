package compiler

import "pl0/pkg/ir"

// CompileOptions configures a single Compile call.
type CompileOptions struct {
	// Optimize enables both optimizer passes: AST-level constant folding
	// and the post-codegen peephole.
	Optimize bool
}

// CompileResult is the outcome of compiling one source file. Code is
// non-nil exactly when Diagnostics carries no Error-severity entries. AST
// is always populated on a best-effort basis (even a syntactically broken
// program yields a partial tree), for tooling that wants to inspect a
// failed compile. Symbols is nil when scanning or parsing reported an
// error, since semantic analysis does not run in that case.
type CompileResult struct {
	Code        []ir.Instruction
	Diagnostics *Diagnostics
	AST         *Program
	Symbols     *SymbolTable
}

// Compile runs the full pipeline: scan, parse, analyze, optionally
// optimize, and generate. Each phase appends to a single Diagnostics
// collector rather than stopping at the first problem within that phase.
// Semantic analysis is skipped when scanning or parsing reported an error,
// and code generation is skipped entirely once any phase has reported an
// error, since the tree or symbol table it would consume cannot be trusted.
func Compile(source string, opts CompileOptions) CompileResult {
	diag := &Diagnostics{}

	tokens := Lex(source, diag)
	prog := Parse(tokens, diag)

	result := CompileResult{Diagnostics: diag, AST: prog}
	if diag.HasErrors() {
		return result
	}

	st := Analyze(prog, diag)
	result.Symbols = st
	if diag.HasErrors() {
		return result
	}

	if opts.Optimize {
		FoldConstants(prog, diag)
		if diag.HasErrors() {
			return result
		}
	}

	code := Generate(prog, st, diag)
	if diag.HasErrors() {
		return result
	}

	if opts.Optimize {
		code = PeepholeOptimize(code)
	}

	result.Code = code
	return result
}
