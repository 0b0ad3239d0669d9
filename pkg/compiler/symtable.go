package compiler

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// SymbolKind distinguishes the three declarable name categories.
type SymbolKind int

const (
	KindConst SymbolKind = iota
	KindVar
	KindProc
)

func (k SymbolKind) String() string {
	switch k {
	case KindConst:
		return "const"
	case KindVar:
		return "var"
	case KindProc:
		return "procedure"
	default:
		return fmt.Sprintf("SymbolKind(%d)", int(k))
	}
}

// Symbol is a resolved declaration: a constant value, a variable's
// (level, address) pair, or a procedure's entry point and arity.
type Symbol struct {
	Name  string
	Kind  SymbolKind
	Level int // block nesting depth at which this name was declared (1 = program block)

	// KindConst
	Value int64

	// KindVar
	Addr int // frame-relative offset; locals/params occupy 3..3+n-1, see spec §3(iii)

	// KindProc
	Entry      int64 // backpatched p-code address of the procedure's first instruction
	Arity      int
	ParamNames []string
}

// Scope is one node of the scope forest: the declarations visible in a
// single Block, plus a link to its lexical parent. Scopes are stored in an
// arena (SymbolTable.scopes) and referenced by index so the tree survives
// independent of any particular AST node's lifetime.
type Scope struct {
	Parent int // index into SymbolTable.scopes, or -1 for the program block
	Level  int
	Names  map[string]*Symbol
	Order  []string // declaration order, for deterministic dumps
}

// SymbolTable owns the scope forest built during semantic analysis.
type SymbolTable struct {
	scopes []*Scope
}

// NewSymbolTable returns a table containing only the program-level scope
// (level 1, no parent) and returns its index.
func NewSymbolTable() (*SymbolTable, int) {
	st := &SymbolTable{}
	root := st.newScope(-1, 1)
	return st, root
}

func (st *SymbolTable) newScope(parent, level int) int {
	st.scopes = append(st.scopes, &Scope{
		Parent: parent,
		Level:  level,
		Names:  make(map[string]*Symbol),
	})
	return len(st.scopes) - 1
}

// OpenChild creates a new scope one level deeper than scopeIdx and returns
// its index.
func (st *SymbolTable) OpenChild(scopeIdx int) int {
	parent := st.scopes[scopeIdx]
	return st.newScope(scopeIdx, parent.Level+1)
}

// Declare adds sym to scopeIdx's own names. It returns false if a symbol by
// that name already exists directly in this scope (shadowing an outer scope
// is always fine; redeclaring within the same scope is not).
func (st *SymbolTable) Declare(scopeIdx int, sym *Symbol) bool {
	sc := st.scopes[scopeIdx]
	if _, exists := sc.Names[sym.Name]; exists {
		return false
	}
	sc.Names[sym.Name] = sym
	sc.Order = append(sc.Order, sym.Name)
	return true
}

// Resolve walks scopeIdx and its ancestors looking for name. It returns the
// symbol, the number of scope levels walked up (the L operand for LOD/STO/
// CAL), and whether it was found.
func (st *SymbolTable) Resolve(scopeIdx int, name string) (*Symbol, int, bool) {
	levels := 0
	for idx := scopeIdx; idx != -1; idx = st.scopes[idx].Parent {
		if sym, ok := st.scopes[idx].Names[name]; ok {
			return sym, levels, true
		}
		levels++
	}
	return nil, 0, false
}

// Scope returns the scope at idx.
func (st *SymbolTable) Scope(idx int) *Scope { return st.scopes[idx] }

// Names returns the names declared directly in scopeIdx, in declaration order.
func (st *SymbolTable) Names(scopeIdx int) []string {
	sc := st.scopes[scopeIdx]
	return append([]string(nil), sc.Order...)
}

// sortedNames is used by dump/trace helpers that want a deterministic,
// lexically sorted view regardless of declaration order.
func (st *SymbolTable) sortedNames(scopeIdx int) []string {
	names := st.Names(scopeIdx)
	slices.Sort(names)
	return names
}

// Dump renders every scope's declarations, lexically sorted within each
// scope, as a human-readable symbol table listing for -v tooling output.
func (st *SymbolTable) Dump() string {
	var b strings.Builder
	for idx, sc := range st.scopes {
		fmt.Fprintf(&b, "scope %d (level %d, parent %d):\n", idx, sc.Level, sc.Parent)
		for _, name := range st.sortedNames(idx) {
			sym := sc.Names[name]
			fmt.Fprintf(&b, "  %-12s %s\n", sym.Name, sym.Kind)
		}
	}
	return b.String()
}
