// Command pl0vm executes a compiled P-code file.
//
// Usage:
//
//	pl0vm <file.pcode> [<input-file>]
//
// input-file, if given, supplies whitespace-separated integers consumed in
// order by each `read` in the program. Exit codes: 0 on a normal halt, 3
// on a VM runtime error, 2 on an I/O failure.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"pl0/pkg/ir"
	"pl0/pkg/utils"
	"pl0/pkg/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("pl0vm", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "log step-level detail")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(os.Stderr, "usage: pl0vm <file.pcode> [<input-file>]")
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFor(*verbose),
	}))

	codePath, _, err := utils.GetPathInfo(fs.Arg(0))
	if err != nil {
		logger.Error("resolving pcode path", "err", err)
		return 2
	}
	text, err := os.ReadFile(codePath)
	if err != nil {
		logger.Error("reading pcode file", "path", codePath, "err", err)
		return 2
	}
	code, err := ir.Load(string(text))
	if err != nil {
		logger.Error("parsing pcode", "err", err)
		return 2
	}

	input, err := loadInput(fs)
	if err != nil {
		logger.Error("reading input file", "err", err)
		return 2
	}

	machine := vm.NewVM(code, input)
	logger.Debug("starting run", "instructions", len(code))

	res := machine.Run()
	flushOutput(machine.Output)

	switch res.Status {
	case vm.Halted:
		logger.Debug("halted", "steps", machine.InstructionCount)
		return 0
	case vm.NeedInput:
		logger.Error("program blocked on read with no more input available")
		return 3
	case vm.Errored:
		logger.Error("runtime error", "err", res.Err)
		return 3
	default:
		logger.Error("unexpected terminal status", "status", res.Status)
		return 3
	}
}

func loadInput(fs *flag.FlagSet) (<-chan int64, error) {
	if fs.NArg() < 2 {
		ch := make(chan int64)
		close(ch)
		return ch, nil
	}

	path, _, err := utils.GetPathInfo(fs.Arg(1))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var values []int64
	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		v, err := strconv.ParseInt(scanner.Text(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q in input file: %w", scanner.Text(), err)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	ch := make(chan int64, len(values))
	for _, v := range values {
		ch <- v
	}
	close(ch)
	return ch, nil
}

func flushOutput(events []vm.OutputEvent) {
	for _, e := range events {
		if e.Newline {
			fmt.Println()
			continue
		}
		fmt.Printf("%d ", e.Value)
	}
}

func levelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
