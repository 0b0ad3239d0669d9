package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// opByName backs the text exchange format's string-to-op conversion;
// opNames (ir.go) is indexed by Op and used for String(), this map is its
// inverse for parsing Dump's output back in.
var opByName = map[string]Op{
	"LIT": LIT,
	"LOD": LOD,
	"STO": STO,
	"CAL": CAL,
	"INT": INT,
	"JMP": JMP,
	"JPC": JPC,
	"OPR": OPR,
	"RED": RED,
	"WRT": WRT,
}

// Dump renders code in the persisted P-code exchange format described in
// the toolchain's external interfaces: one instruction per line, tab
// separated, "<index>\t<op>\t<L>\t<A>". This is an interchange format
// only; the runtime representation is always the Instruction slice.
func Dump(code []Instruction) string {
	var b strings.Builder
	for idx, instr := range code {
		fmt.Fprintf(&b, "%d\t%s\t%d\t%d\n", idx, instr.Op, instr.L, instr.A)
	}
	return b.String()
}

// Load parses the text form produced by Dump back into an Instruction
// slice. Round-tripping a valid dump (Load(Dump(code))) always yields a
// slice equal to code.
func Load(text string) ([]Instruction, error) {
	var code []Instruction
	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return nil, fmt.Errorf("pcode line %d: expected 4 tab-separated fields, got %d", lineNo+1, len(fields))
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("pcode line %d: bad index %q: %w", lineNo+1, fields[0], err)
		}
		if idx != len(code) {
			return nil, fmt.Errorf("pcode line %d: out-of-order index %d, expected %d", lineNo+1, idx, len(code))
		}
		op, ok := opByName[fields[1]]
		if !ok {
			return nil, fmt.Errorf("pcode line %d: unknown opcode %q", lineNo+1, fields[1])
		}
		l, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("pcode line %d: bad level %q: %w", lineNo+1, fields[2], err)
		}
		a, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("pcode line %d: bad operand %q: %w", lineNo+1, fields[3], err)
		}
		code = append(code, Instruction{Op: op, L: l, A: a})
	}
	return code, nil
}
