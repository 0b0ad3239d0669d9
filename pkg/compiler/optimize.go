package compiler

import "pl0/pkg/ir"

// FoldConstants performs AST-level constant folding over prog in place:
// arithmetic over integer literals and the identity simplifications x+0,
// x-0, x*1, x*0, x/1. The operand of `odd` is folded, but `odd` itself is
// not reduced to a constant. A literal division by zero is reported as
// SemConstDivZero rather than folded; literal arithmetic that would
// overflow int64 is left unfolded, so the VM reports it at run time.
func FoldConstants(prog *Program, diag *Diagnostics) {
	f := &folder{diag: diag}
	f.block(prog.Block)
}

type folder struct {
	diag *Diagnostics
}

func (f *folder) block(b *Block) {
	for _, proc := range b.Procs {
		f.block(proc.Block)
	}
	b.Body = f.stmt(b.Body)
}

func (f *folder) stmt(s Stmt) Stmt {
	switch n := s.(type) {
	case *AssignStmt:
		n.Value = f.expr(n.Value)
		return n
	case *CallStmt:
		for i, arg := range n.Args {
			n.Args[i] = f.expr(arg)
		}
		return n
	case *ReadStmt:
		return n
	case *WriteStmt:
		for i, v := range n.Values {
			n.Values[i] = f.expr(v)
		}
		return n
	case *CompoundStmt:
		for i, child := range n.Stmts {
			n.Stmts[i] = f.stmt(child)
		}
		return n
	case *IfStmt:
		n.Cond = f.cond(n.Cond)
		n.Then = f.stmt(n.Then)
		if n.Else != nil {
			n.Else = f.stmt(n.Else)
		}
		return n
	case *WhileStmt:
		n.Cond = f.cond(n.Cond)
		n.Do = f.stmt(n.Do)
		return n
	case *EmptyStmt:
		return n
	default:
		return n
	}
}

func (f *folder) cond(c Condition) Condition {
	switch n := c.(type) {
	case *OddCond:
		n.Value = f.expr(n.Value)
		return n
	case *CompareCond:
		n.Left = f.expr(n.Left)
		n.Right = f.expr(n.Right)
		return n
	default:
		return c
	}
}

func (f *folder) expr(e Expr) Expr {
	switch n := e.(type) {
	case *Literal:
		return n
	case *Ident:
		return n
	case *UnaryExpr:
		n.Operand = f.expr(n.Operand)
		if lit, ok := n.Operand.(*Literal); ok && n.Op == MINUS {
			return &Literal{Value: -lit.Value, Pos: lit.Pos}
		}
		return n
	case *BinaryExpr:
		n.Left = f.expr(n.Left)
		n.Right = f.expr(n.Right)
		return f.foldBinary(n)
	default:
		return e
	}
}

func (f *folder) foldBinary(n *BinaryExpr) Expr {
	leftLit, leftOk := n.Left.(*Literal)
	rightLit, rightOk := n.Right.(*Literal)

	if leftOk && rightOk {
		// Overflow checks mirror the VM's OPR ADD/SUB/MUL/DIV, so an
		// overflowing expression is left for the VM to report.
		a, b := leftLit.Value, rightLit.Value
		switch n.Op {
		case PLUS:
			if sum := a + b; !((a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0)) {
				return &Literal{Value: sum, Pos: leftLit.Pos}
			}
		case MINUS:
			if diff := a - b; !((a >= 0 && b < 0 && diff < 0) || (a < 0 && b > 0 && diff >= 0)) {
				return &Literal{Value: diff, Pos: leftLit.Pos}
			}
		case STAR:
			if prod := a * b; a == 0 || prod/a == b {
				return &Literal{Value: prod, Pos: leftLit.Pos}
			}
		case SLASH:
			if b == 0 {
				f.diag.Errorf(SemConstDivZero, n.Pos, "division by zero in constant expression")
				return n
			}
			if !(a == -1<<63 && b == -1) {
				return &Literal{Value: a / b, Pos: leftLit.Pos}
			}
		}
	}

	// Identity simplifications, applicable even when only one side folded.
	switch n.Op {
	case PLUS:
		if rightOk && rightLit.Value == 0 {
			return n.Left
		}
		if leftOk && leftLit.Value == 0 {
			return n.Right
		}
	case MINUS:
		if rightOk && rightLit.Value == 0 {
			return n.Left
		}
	case STAR:
		if rightOk && rightLit.Value == 1 {
			return n.Left
		}
		if leftOk && leftLit.Value == 1 {
			return n.Right
		}
		if (rightOk && rightLit.Value == 0) || (leftOk && leftLit.Value == 0) {
			return &Literal{Value: 0, Pos: n.Pos}
		}
	case SLASH:
		if rightOk && rightLit.Value == 1 {
			return n.Left
		}
	}

	return n
}

// PeepholeOptimize rewrites a generated instruction sequence to a fixed
// point (at most 8 passes): dead code after an unconditional jump is
// dropped and jump-to-jump chains collapse to a single hop. Literal
// push/pop pairs are not removed. Every rewrite that changes
// instruction count runs through a compaction pass that rewrites every
// jump/call target via an old-to-new address map, so indices referenced
// by other instructions stay correct.
func PeepholeOptimize(code []ir.Instruction) []ir.Instruction {
	for pass := 0; pass < 8; pass++ {
		next, changed := peepholePass(code)
		code = next
		if !changed {
			break
		}
	}
	return code
}

func peepholePass(code []ir.Instruction) ([]ir.Instruction, bool) {
	collapsed := collapseJumpChains(code)

	keep := make([]bool, len(collapsed))
	for i := range keep {
		keep[i] = true
	}

	// Drop unreachable instructions immediately following an unconditional
	// jump, up to the next instruction any jump/call targets (a
	// backpatched address must remain a valid landing point).
	targets := jumpTargets(collapsed)
	i := 0
	for i < len(collapsed) {
		if collapsed[i].Op == ir.JMP {
			j := i + 1
			for j < len(collapsed) && !targets[j] {
				keep[j] = false
				j++
			}
			i = j
			continue
		}
		i++
	}

	changed := false
	for _, k := range keep {
		if !k {
			changed = true
			break
		}
	}
	if !changed && sameLength(collapsed, code) {
		return collapsed, !instructionsEqual(collapsed, code)
	}

	return compact(collapsed, keep), true
}

// collapseJumpChains rewrites any JMP/JPC/CAL whose target is itself an
// unconditional JMP to target that JMP's own target instead, following
// the chain to its end.
func collapseJumpChains(code []ir.Instruction) []ir.Instruction {
	out := make([]ir.Instruction, len(code))
	copy(out, code)
	for i := range out {
		switch out[i].Op {
		case ir.JMP, ir.JPC, ir.CAL:
			target := out[i].A
			seen := map[int64]bool{}
			for target >= 0 && target < int64(len(code)) && code[target].Op == ir.JMP && !seen[target] {
				seen[target] = true
				target = code[target].A
			}
			out[i].A = target
		}
	}
	return out
}

func jumpTargets(code []ir.Instruction) []bool {
	targets := make([]bool, len(code)+1)
	for _, instr := range code {
		switch instr.Op {
		case ir.JMP, ir.JPC, ir.CAL:
			if instr.A >= 0 && instr.A <= int64(len(code)) {
				targets[instr.A] = true
			}
		}
	}
	return targets
}

func compact(code []ir.Instruction, keep []bool) []ir.Instruction {
	remap := make([]int64, len(code)+1)
	next := int64(0)
	for i := 0; i < len(code); i++ {
		remap[i] = next
		if keep[i] {
			next++
		}
	}
	remap[len(code)] = next

	out := make([]ir.Instruction, 0, next)
	for i, instr := range code {
		if !keep[i] {
			continue
		}
		switch instr.Op {
		case ir.JMP, ir.JPC, ir.CAL:
			if instr.A >= 0 && instr.A <= int64(len(code)) {
				instr.A = remap[instr.A]
			}
		}
		out = append(out, instr)
	}
	return out
}

func sameLength(a, b []ir.Instruction) bool { return len(a) == len(b) }

func instructionsEqual(a, b []ir.Instruction) bool {
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
