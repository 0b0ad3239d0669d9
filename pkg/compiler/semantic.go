package compiler

import "fmt"

// analyzer walks the AST built by Parse, builds the scope forest, resolves
// every identifier reference to its declaring Symbol, and reports semantic
// errors. It never mutates the tree's shape, only annotates it (Sym fields,
// Block.Scope).
type analyzer struct {
	st   *SymbolTable
	diag *Diagnostics
}

// Analyze performs semantic analysis on prog in place and returns the
// SymbolTable backing every resolved Symbol. Even when diag.HasErrors(),
// prog's existing annotations are a best effort: unresolved identifiers
// simply carry a nil Sym.
func Analyze(prog *Program, diag *Diagnostics) *SymbolTable {
	st, root := NewSymbolTable()
	a := &analyzer{st: st, diag: diag}
	a.block(prog.Block, root, 3)
	return st
}

// block walks one nested scope, declaring consts, vars, and procedures in
// that order. varBase is the frame offset the block's own locals start at:
// 3 for the program block (no parameters), or 3+arity for a procedure
// block, whose parameters already occupy offsets 3..3+arity-1.
func (a *analyzer) block(b *Block, scopeIdx int, varBase int) {
	b.Scope = a.st.Scope(scopeIdx)
	b.ScopeIdx = scopeIdx

	for i := range b.Consts {
		c := &b.Consts[i]
		sym := &Symbol{Name: c.Name, Kind: KindConst, Level: a.st.Scope(scopeIdx).Level, Value: c.Value}
		if !a.st.Declare(scopeIdx, sym) {
			a.diag.Errorf(SemDuplicate, c.Pos, "%q is already declared in this scope", c.Name)
		}
	}

	for i := range b.Vars {
		v := &b.Vars[i]
		sym := &Symbol{Name: v.Name, Kind: KindVar, Level: a.st.Scope(scopeIdx).Level, Addr: varBase + i}
		if !a.st.Declare(scopeIdx, sym) {
			a.diag.Errorf(SemDuplicate, v.Pos, "%q is already declared in this scope", v.Name)
		}
	}

	// Procedures are declared (name visible, for recursion and mutual
	// forward reference within the same block) before any body is walked.
	for _, proc := range b.Procs {
		sym := &Symbol{Name: proc.Name, Kind: KindProc, Level: a.st.Scope(scopeIdx).Level, Arity: len(proc.Params), ParamNames: proc.Params}
		if !a.st.Declare(scopeIdx, sym) {
			a.diag.Errorf(SemDuplicate, proc.Pos, "%q is already declared in this scope", proc.Name)
		}
		proc.Sym = sym
	}

	for _, proc := range b.Procs {
		childIdx := a.st.OpenChild(scopeIdx)
		for i, param := range proc.Params {
			psym := &Symbol{Name: param, Kind: KindVar, Level: a.st.Scope(childIdx).Level, Addr: 3 + i}
			if !a.st.Declare(childIdx, psym) {
				a.diag.Errorf(SemDuplicate, proc.Pos, "parameter %q is already declared", param)
			}
		}
		a.block(proc.Block, childIdx, 3+len(proc.Params))
	}

	a.statement(b.Body, scopeIdx)
}

func (a *analyzer) statement(s Stmt, scopeIdx int) {
	switch n := s.(type) {
	case *AssignStmt:
		sym, _, ok := a.st.Resolve(scopeIdx, n.Name)
		if !ok {
			a.diag.Errorf(SemUndefined, n.Pos, "undefined identifier %q", n.Name)
		} else {
			n.Sym = sym
			switch sym.Kind {
			case KindConst:
				a.diag.Errorf(SemAssignToConstant, n.Pos, "cannot assign to constant %q", n.Name)
			case KindProc:
				a.diag.Errorf(SemWrongKind, n.Pos, "cannot assign to procedure %q", n.Name)
			}
		}
		a.expr(n.Value, scopeIdx)

	case *CallStmt:
		sym, _, ok := a.st.Resolve(scopeIdx, n.Name)
		if !ok {
			a.diag.Errorf(SemUndefined, n.Pos, "undefined identifier %q", n.Name)
			for _, arg := range n.Args {
				a.expr(arg, scopeIdx)
			}
			return
		}
		n.Sym = sym
		if sym.Kind != KindProc {
			a.diag.Errorf(SemWrongKind, n.Pos, "%q is a %s, not a procedure", n.Name, sym.Kind)
		} else if len(n.Args) != sym.Arity {
			a.diag.Errorf(SemArityMismatch, n.Pos, "%q expects %d argument(s), got %d", n.Name, sym.Arity, len(n.Args))
		}
		for _, arg := range n.Args {
			a.expr(arg, scopeIdx)
		}

	case *ReadStmt:
		n.Syms = make([]*Symbol, len(n.Names))
		for i, name := range n.Names {
			sym, _, ok := a.st.Resolve(scopeIdx, name)
			if !ok {
				a.diag.Errorf(SemUndefined, n.Pos, "undefined identifier %q", name)
				continue
			}
			n.Syms[i] = sym
			if sym.Kind != KindVar {
				a.diag.Errorf(SemWrongKind, n.Pos, "cannot read into %s %q", sym.Kind, name)
			}
		}

	case *WriteStmt:
		for _, v := range n.Values {
			a.expr(v, scopeIdx)
		}

	case *CompoundStmt:
		for _, child := range n.Stmts {
			a.statement(child, scopeIdx)
		}

	case *IfStmt:
		a.condition(n.Cond, scopeIdx)
		a.statement(n.Then, scopeIdx)
		if n.Else != nil {
			a.statement(n.Else, scopeIdx)
		}

	case *WhileStmt:
		a.condition(n.Cond, scopeIdx)
		a.statement(n.Do, scopeIdx)

	case *EmptyStmt:
		// nothing to resolve

	default:
		panic(fmt.Sprintf("semantic: unhandled statement node %T", s))
	}
}

func (a *analyzer) condition(c Condition, scopeIdx int) {
	switch n := c.(type) {
	case *OddCond:
		a.expr(n.Value, scopeIdx)
	case *CompareCond:
		a.expr(n.Left, scopeIdx)
		a.expr(n.Right, scopeIdx)
	default:
		panic(fmt.Sprintf("semantic: unhandled condition node %T", c))
	}
}

func (a *analyzer) expr(e Expr, scopeIdx int) {
	switch n := e.(type) {
	case *Literal:
		// no resolution needed
	case *Ident:
		sym, _, ok := a.st.Resolve(scopeIdx, n.Name)
		if !ok {
			a.diag.Errorf(SemUndefined, n.Pos, "undefined identifier %q", n.Name)
			return
		}
		n.Sym = sym
		if sym.Kind == KindProc {
			a.diag.Errorf(SemWrongKind, n.Pos, "%q is a procedure, not a value", n.Name)
		}
	case *UnaryExpr:
		a.expr(n.Operand, scopeIdx)
	case *BinaryExpr:
		a.expr(n.Left, scopeIdx)
		a.expr(n.Right, scopeIdx)
	default:
		panic(fmt.Sprintf("semantic: unhandled expression node %T", e))
	}
}
