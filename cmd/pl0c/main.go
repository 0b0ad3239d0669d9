// Command pl0c compiles a PL/0 source file to P-code.
//
// Usage:
//
//	pl0c [-o2] [-S out.pcode] <file>
//
// Exit codes: 0 on a clean compile, 1 if the source has error diagnostics, 2 on
// an I/O failure reading the source or writing -S output.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"pl0/pkg/compiler"
	"pl0/pkg/ir"
	"pl0/pkg/utils"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("pl0c", flag.ContinueOnError)
	optimize := fs.Bool("o2", false, "enable constant folding and peephole optimization")
	asmOut := fs.String("S", "", "write the generated P-code text form to this path instead of stdout")
	verbose := fs.Bool("v", false, "log phase timings")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: pl0c [-o2] [-S out.pcode] <file>")
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFor(*verbose),
	}))

	fullPath, _, err := utils.GetPathInfo(fs.Arg(0))
	if err != nil {
		logger.Error("resolving source path", "err", err)
		return 2
	}

	src, err := os.ReadFile(fullPath)
	if err != nil {
		logger.Error("reading source file", "path", fullPath, "err", err)
		return 2
	}

	start := time.Now()
	result := compiler.Compile(string(src), compiler.CompileOptions{Optimize: *optimize})
	logger.Debug("compile finished", "elapsed", time.Since(start), "optimize", *optimize)
	if *verbose && result.Symbols != nil {
		fmt.Fprint(os.Stderr, result.Symbols.Dump())
	}

	if result.Diagnostics.HasErrors() {
		for _, d := range result.Diagnostics.Items() {
			fmt.Fprintf(os.Stderr, "%s: %s: %s (%s)\n", d.Pos, d.Severity, d.Message, d.Kind)
		}
		return 1
	}
	for _, d := range result.Diagnostics.Items() {
		fmt.Fprintf(os.Stderr, "%s: %s: %s (%s)\n", d.Pos, d.Severity, d.Message, d.Kind)
	}

	dump := ir.Dump(result.Code)
	if *asmOut == "" {
		fmt.Print(dump)
		return 0
	}
	if err := os.WriteFile(*asmOut, []byte(dump), 0o644); err != nil {
		logger.Error("writing pcode output", "path", *asmOut, "err", err)
		return 2
	}
	logger.Info("wrote pcode", "path", *asmOut, "instructions", len(result.Code))
	return 0
}

func levelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
