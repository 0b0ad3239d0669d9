package compiler

import (
	"fmt"
	"strings"
)

// Program is the root of a parsed source file: "program name ; block .".
type Program struct {
	Name  string
	Block *Block
	Pos   Position
}

func (p *Program) String() string { return fmt.Sprintf("Program(%s)", p.Name) }

// Block is a nested PL/0 scope: const/var declarations, procedure
// declarations, and a single body statement. Every procedure body and the
// program itself are each a Block.
type Block struct {
	Consts []ConstDecl
	Vars   []VarDecl
	Procs  []*ProcDecl
	Body   Stmt

	// Scope and ScopeIdx are attached by the semantic analyzer: the scope
	// this block declares names into, and its index in the SymbolTable
	// arena the code generator resolves identifiers against.
	Scope    *Scope
	ScopeIdx int
}

func (b *Block) String() string {
	return fmt.Sprintf("Block(consts=%d, vars=%d, procs=%d)", len(b.Consts), len(b.Vars), len(b.Procs))
}

// ConstDecl represents one name in a "const a = 1, b = 2;" declaration.
type ConstDecl struct {
	Name  string
	Value int64
	Pos   Position
}

// VarDecl represents one name in a "var a, b, c;" declaration.
type VarDecl struct {
	Name string
	Pos  Position
}

// ProcDecl represents "procedure name(params); block;".
type ProcDecl struct {
	Name   string
	Params []string
	Block  *Block
	Pos    Position

	// Sym is attached by the semantic analyzer once the procedure has been
	// entered into the enclosing scope.
	Sym *Symbol
}

func (p *ProcDecl) String() string {
	return fmt.Sprintf("ProcDecl(%s(%s))", p.Name, strings.Join(p.Params, ", "))
}

//  Statement nodes

// Stmt is implemented by every PL/0 statement node.
type Stmt interface {
	stmtNode()
	String() string
	position() Position
}

// AssignStmt represents  ident := expr
type AssignStmt struct {
	Name  string
	Value Expr
	Pos   Position

	Sym *Symbol // attached by semantic analysis
}

func (*AssignStmt) stmtNode()            {}
func (s *AssignStmt) position() Position { return s.Pos }
func (s *AssignStmt) String() string     { return fmt.Sprintf("%s := %s", s.Name, s.Value) }

// CallStmt represents  call name(arg1, ..., argk)  (parentheses omitted,
// arity 0, for a parameterless call).
type CallStmt struct {
	Name string
	Args []Expr
	Pos  Position

	Sym *Symbol // attached by semantic analysis
}

func (*CallStmt) stmtNode()            {}
func (s *CallStmt) position() Position { return s.Pos }
func (s *CallStmt) String() string     { return fmt.Sprintf("call %s(%v)", s.Name, s.Args) }

// ReadStmt represents  read(name1, ..., namek), each an assignable target.
type ReadStmt struct {
	Names []string
	Pos   Position

	Syms []*Symbol // attached by semantic analysis, parallel to Names
}

func (*ReadStmt) stmtNode()            {}
func (s *ReadStmt) position() Position { return s.Pos }
func (s *ReadStmt) String() string     { return fmt.Sprintf("read(%s)", strings.Join(s.Names, ", ")) }

// WriteStmt represents  write(expr1, ..., exprk). A zero-length Values
// (the supplemented blank "write" / "write()" form) emits a bare newline.
type WriteStmt struct {
	Values []Expr
	Pos    Position
}

func (*WriteStmt) stmtNode()            {}
func (s *WriteStmt) position() Position { return s.Pos }
func (s *WriteStmt) String() string     { return fmt.Sprintf("write(%v)", s.Values) }

// CompoundStmt represents  begin stmt ; stmt ; ... end
type CompoundStmt struct {
	Stmts []Stmt
	Pos   Position
}

func (*CompoundStmt) stmtNode()            {}
func (s *CompoundStmt) position() Position { return s.Pos }
func (s *CompoundStmt) String() string {
	return fmt.Sprintf("CompoundStmt(len=%d)", len(s.Stmts))
}

// IfStmt represents  if cond then stmt
type IfStmt struct {
	Cond Condition
	Then Stmt
	Else Stmt // may be nil
	Pos  Position
}

func (*IfStmt) stmtNode()            {}
func (s *IfStmt) position() Position { return s.Pos }
func (s *IfStmt) String() string {
	if s.Else != nil {
		return fmt.Sprintf("if %s then %s else %s", s.Cond, s.Then, s.Else)
	}
	return fmt.Sprintf("if %s then %s", s.Cond, s.Then)
}

// WhileStmt represents  while cond do stmt
type WhileStmt struct {
	Cond Condition
	Do   Stmt
	Pos  Position
}

func (*WhileStmt) stmtNode()            {}
func (s *WhileStmt) position() Position { return s.Pos }
func (s *WhileStmt) String() string     { return fmt.Sprintf("while %s do %s", s.Cond, s.Do) }

// EmptyStmt represents the empty statement (e.g. the body of "if c then ;",
// or a statement position panic-mode recovery could not fill).
type EmptyStmt struct {
	Pos Position
}

func (*EmptyStmt) stmtNode()            {}
func (s *EmptyStmt) position() Position { return s.Pos }
func (s *EmptyStmt) String() string     { return "" }

//  Condition

// Condition is either "odd expr" or "expr relop expr".
type Condition interface {
	condNode()
	String() string
}

// OddCond represents  odd expr
type OddCond struct {
	Value Expr
}

func (*OddCond) condNode()        {}
func (c *OddCond) String() string { return fmt.Sprintf("odd %s", c.Value) }

// CompareCond represents  Left relop Right
type CompareCond struct {
	Op    TokenType // one of EQ, NEQ, LT, LEQ, GT, GEQ
	Left  Expr
	Right Expr
}

func (*CompareCond) condNode() {}
func (c *CompareCond) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

//  Expression nodes

// Expr is implemented by every node that produces an integer value.
type Expr interface {
	exprNode()
	String() string
}

// Literal is a compile-time integer constant appearing directly in an
// expression (as opposed to a named const).
type Literal struct {
	Value int64
	Pos   Position
}

func (*Literal) exprNode()        {}
func (l *Literal) String() string { return fmt.Sprintf("%d", l.Value) }

// Ident is a reference to a variable or constant (a procedure name used as
// a value is caught by semantic analysis).
type Ident struct {
	Name string
	Pos  Position

	Sym *Symbol // attached by semantic analysis
}

func (*Ident) exprNode()        {}
func (i *Ident) String() string { return i.Name }

// UnaryExpr represents a leading +/- applied to a term.
type UnaryExpr struct {
	Op      TokenType // PLUS or MINUS
	Operand Expr
}

func (*UnaryExpr) exprNode() {}
func (u *UnaryExpr) String() string {
	return fmt.Sprintf("%s%s", u.Op, u.Operand)
}

// BinaryExpr represents Left Op Right for +, -, *, /.
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
	Pos   Position // position of the operator, for diagnostics (e.g. SemConstDivZero)
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}
