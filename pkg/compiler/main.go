// Package compiler implements a PL/0 front end and code generator: a
// lexer, a recursive-descent parser with panic-mode recovery, a scope
// and symbol table, a semantic analyzer, an optional constant-folding and
// peephole optimizer, and a code generator targeting the P-code described
// in pkg/ir.
//
// Pipeline: PL/0 source → Lex → Parse → Analyze → (Fold) → Generate →
// (Peephole) → []ir.Instruction
package compiler
