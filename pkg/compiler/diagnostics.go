package compiler

import "fmt"

// Severity classifies a Diagnostic as blocking (Error) or informational
// (Warning). Only Error-severity diagnostics suppress code generation.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Kind is the closed set of diagnosable conditions across every compiler
// phase, from scanning through code generation. The VM's own runtime
// errors (pkg/vm) are a separate, disjoint set — see vm.Error.
type Kind int

const (
	LexUnexpectedChar Kind = iota
	LexOverflow

	ParseExpectedToken
	ParseUnexpectedToken
	ParseMissingSemicolon
	ParseMissingDot

	SemUndefined
	SemDuplicate
	SemWrongKind
	SemArityMismatch
	SemAssignToConstant
	SemConstDivZero

	GenAddressOverflow
)

var kindNames = [...]string{
	LexUnexpectedChar:     "unexpected character",
	LexOverflow:           "integer literal overflow",
	ParseExpectedToken:    "expected token",
	ParseUnexpectedToken:  "unexpected token",
	ParseMissingSemicolon: "missing semicolon",
	ParseMissingDot:       "missing terminating dot",
	SemUndefined:          "undefined identifier",
	SemDuplicate:          "duplicate declaration",
	SemWrongKind:          "wrong kind of identifier",
	SemArityMismatch:      "procedure call arity mismatch",
	SemAssignToConstant:   "assignment to constant",
	SemConstDivZero:       "division by zero in constant expression",
	GenAddressOverflow:    "frame address overflow",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Diagnostic is one reported problem, carrying enough to print a
// `file:line:col: kind: message`-style report without consulting source
// again.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Pos      Position
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

// Diagnostics accumulates Diagnostic values across every compiler phase.
// Every phase takes a *Diagnostics and appends to it rather than returning
// on the first problem, so a single pass can report everything it finds.
type Diagnostics struct {
	items []Diagnostic
}

func (d *Diagnostics) Errorf(kind Kind, pos Position, format string, args ...any) {
	d.items = append(d.items, Diagnostic{Severity: Error, Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) Warnf(kind Kind, pos Position, format string, args ...any) {
	d.items = append(d.items, Diagnostic{Severity: Warning, Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.items {
		if item.Severity == Error {
			return true
		}
	}
	return false
}

func (d *Diagnostics) Items() []Diagnostic { return d.items }
