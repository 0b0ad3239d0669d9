package compiler

import (
	"fmt"

	"pl0/pkg/ir"
)

// CodeGen walks an analyzed AST and emits a linear sequence of P-code
// instructions, backpatching forward jumps as their targets become known.
type CodeGen struct {
	st   *SymbolTable
	diag *Diagnostics
	code []ir.Instruction

	// calls records every CAL instruction's index alongside the Symbol it
	// targets. A sibling procedure's Entry is only known once its own
	// genBlock call has run, which for a forward or mutually recursive
	// call (one procedure calling a later sibling) happens after the
	// caller's own body has already been emitted. Every CAL is therefore
	// left pointing at PlaceholderTarget and patched in one final pass
	// once the whole tree has been generated and every Entry is known.
	calls []pendingCall
}

type pendingCall struct {
	instr int
	sym   *Symbol
}

func newCodeGen(st *SymbolTable, diag *Diagnostics) *CodeGen {
	return &CodeGen{st: st, diag: diag}
}

// Generate compiles an analyzed program into P-code. It assumes Analyze
// has already run without reporting errors; callers must check
// diag.HasErrors() before calling Generate.
func Generate(prog *Program, st *SymbolTable, diag *Diagnostics) []ir.Instruction {
	cg := newCodeGen(st, diag)
	cg.genBlock(prog.Block, 0, nil)
	for _, c := range cg.calls {
		cg.code[c.instr].A = c.sym.Entry
	}
	return cg.code
}

func (cg *CodeGen) emit(op ir.Op, l int, a int64) int {
	cg.code = append(cg.code, ir.Instruction{Op: op, L: l, A: a})
	return len(cg.code) - 1
}

func (cg *CodeGen) here() int64 { return int64(len(cg.code)) }

func (cg *CodeGen) patch(idx int, target int64) {
	cg.code[idx].A = target
}

// genBlock lowers one nested scope (the program itself, or a procedure
// body) following the schema in the generator's contract: jump over the
// block's nested procedures, generate them, patch the jump to land here,
// allocate the frame, generate the body, and return. arity is the number
// of parameters the block's own frame must relocate on entry (0 for the
// program block). sym is the procedure's own Symbol (nil for the program
// block); its Entry is filled in as soon as the address is known, before
// the body is generated, so a procedure can call itself.
func (cg *CodeGen) genBlock(b *Block, arity int, sym *Symbol) int {
	j := cg.emit(ir.JMP, 0, ir.PlaceholderTarget)

	for _, proc := range b.Procs {
		cg.genBlock(proc.Block, len(proc.Params), proc.Sym)
	}

	cg.patch(j, cg.here())
	entry := len(cg.code)
	if sym != nil {
		sym.Entry = int64(entry)
	}

	locals := len(b.Vars)
	cg.emit(ir.INT, 0, int64(locals+arity+3))

	// Convention (b): the caller has already pushed arity arguments, so
	// the callee relocates them from their negative offsets (just below
	// its own frame base) to the positive parameter offsets 3..3+arity-1.
	for i := 0; i < arity; i++ {
		cg.emit(ir.LOD, 0, int64(i-arity))
		cg.emit(ir.STO, 0, int64(3+i))
	}

	cg.genStmt(b.Body, b.ScopeIdx)
	cg.emit(ir.OPR, 0, int64(ir.OprRet))

	return entry
}

func (cg *CodeGen) resolve(scopeIdx int, name string) (*Symbol, int) {
	sym, levels, ok := cg.st.Resolve(scopeIdx, name)
	if !ok {
		// Analyze already reported SemUndefined for every unresolved name;
		// codegen only ever runs on a diagnostics-clean tree.
		panic(fmt.Sprintf("codegen: unresolved identifier %q reached code generation", name))
	}
	return sym, levels
}

func (cg *CodeGen) genStmt(s Stmt, scopeIdx int) {
	switch n := s.(type) {
	case *AssignStmt:
		cg.genExpr(n.Value, scopeIdx)
		sym, l := cg.resolve(scopeIdx, n.Name)
		cg.emit(ir.STO, l, int64(sym.Addr))

	case *CallStmt:
		for _, arg := range n.Args {
			cg.genExpr(arg, scopeIdx)
		}
		sym, l := cg.resolve(scopeIdx, n.Name)
		idx := cg.emit(ir.CAL, l, ir.PlaceholderTarget)
		cg.calls = append(cg.calls, pendingCall{instr: idx, sym: sym})

	case *ReadStmt:
		for _, name := range n.Names {
			sym, l := cg.resolve(scopeIdx, name)
			cg.emit(ir.RED, 0, 0)
			cg.emit(ir.STO, l, int64(sym.Addr))
		}

	case *WriteStmt:
		if len(n.Values) == 0 {
			// The blank "write"/"write()" form: A=1 flags the VM to emit a
			// bare newline instead of popping a value.
			cg.emit(ir.WRT, 0, 1)
			return
		}
		for _, v := range n.Values {
			cg.genExpr(v, scopeIdx)
			cg.emit(ir.WRT, 0, 0)
		}

	case *CompoundStmt:
		for _, child := range n.Stmts {
			cg.genStmt(child, scopeIdx)
		}

	case *IfStmt:
		cg.genCond(n.Cond, scopeIdx)
		jpc := cg.emit(ir.JPC, 0, ir.PlaceholderTarget)
		cg.genStmt(n.Then, scopeIdx)
		if n.Else != nil {
			jmp := cg.emit(ir.JMP, 0, ir.PlaceholderTarget)
			cg.patch(jpc, cg.here())
			cg.genStmt(n.Else, scopeIdx)
			cg.patch(jmp, cg.here())
		} else {
			cg.patch(jpc, cg.here())
		}

	case *WhileStmt:
		top := cg.here()
		cg.genCond(n.Cond, scopeIdx)
		jpc := cg.emit(ir.JPC, 0, ir.PlaceholderTarget)
		cg.genStmt(n.Do, scopeIdx)
		cg.emit(ir.JMP, 0, top)
		cg.patch(jpc, cg.here())

	case *EmptyStmt:
		// no code

	default:
		panic(fmt.Sprintf("codegen: unhandled statement node %T", s))
	}
}

func (cg *CodeGen) genCond(c Condition, scopeIdx int) {
	switch n := c.(type) {
	case *OddCond:
		cg.genExpr(n.Value, scopeIdx)
		cg.emit(ir.OPR, 0, int64(ir.OprOdd))
	case *CompareCond:
		cg.genExpr(n.Left, scopeIdx)
		cg.genExpr(n.Right, scopeIdx)
		cg.emit(ir.OPR, 0, int64(relOperator(n.Op)))
	default:
		panic(fmt.Sprintf("codegen: unhandled condition node %T", c))
	}
}

func relOperator(op TokenType) ir.Operator {
	switch op {
	case EQ:
		return ir.OprEq
	case NEQ:
		return ir.OprNeq
	case LT:
		return ir.OprLt
	case LEQ:
		return ir.OprLeq
	case GT:
		return ir.OprGt
	case GEQ:
		return ir.OprGeq
	default:
		panic(fmt.Sprintf("codegen: %s is not a relational operator", op))
	}
}

func (cg *CodeGen) genExpr(e Expr, scopeIdx int) {
	switch n := e.(type) {
	case *Literal:
		cg.emit(ir.LIT, 0, n.Value)

	case *Ident:
		if n.Sym.Kind == KindConst {
			cg.emit(ir.LIT, 0, n.Sym.Value)
			return
		}
		sym, l := cg.resolve(scopeIdx, n.Name)
		cg.emit(ir.LOD, l, int64(sym.Addr))

	case *UnaryExpr:
		cg.genExpr(n.Operand, scopeIdx)
		if n.Op == MINUS {
			cg.emit(ir.OPR, 0, int64(ir.OprNeg))
		}

	case *BinaryExpr:
		cg.genExpr(n.Left, scopeIdx)
		cg.genExpr(n.Right, scopeIdx)
		cg.emit(ir.OPR, 0, int64(binOperator(n.Op)))

	default:
		panic(fmt.Sprintf("codegen: unhandled expression node %T", e))
	}
}

func binOperator(op TokenType) ir.Operator {
	switch op {
	case PLUS:
		return ir.OprAdd
	case MINUS:
		return ir.OprSub
	case STAR:
		return ir.OprMul
	case SLASH:
		return ir.OprDiv
	default:
		panic(fmt.Sprintf("codegen: %s is not a binary operator", op))
	}
}
