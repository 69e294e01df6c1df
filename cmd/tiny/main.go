// Command tiny compiles and runs Tiny scripts.
//
//	tiny [flags] script.tiny
//
// A tiny.yaml next to the script can override stack sizes, pick the
// stdlib modules to bind, and turn on disassembly.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/hiperiondev/tiny/internal/config"
	"github.com/hiperiondev/tiny/internal/diagnostics"
	"github.com/hiperiondev/tiny/internal/vm"
	"github.com/hiperiondev/tiny/pkg/stdlib"
)

var (
	flagDisasm = flag.Bool("disasm", false, "print the compiled bytecode before running")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tiny [flags] script.tiny")
		os.Exit(2)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(path string) int {
	hc, err := config.LoadHostConfig(filepath.Join(filepath.Dir(path), config.HostConfigFile))
	if err != nil {
		report("%v", err)
		return 1
	}

	state := vm.NewState()
	if err := stdlib.Bind(state, hc.Modules...); err != nil {
		report("%v", err)
		return 1
	}

	if err := state.CompileFile(path); err != nil {
		var diag *diagnostics.Error
		if errors.As(err, &diag) {
			// Compile-time diagnostics come with a source window.
			report("%s", diagnostics.FormatWithSource(diag, state.LastSource()))
		} else {
			report("%v", err)
		}
		return 1
	}

	for _, warning := range state.Warnings() {
		report("warning: %s", warning.Message)
	}

	if *flagDisasm || hc.Disassemble {
		fmt.Fprint(os.Stderr, vm.Disassemble(state.Prog, path))
	}

	thread := vm.NewThreadWithSizes(state, hc.StackSizeOrDefault(), hc.IndirSizeOrDefault())
	defer thread.Destroy()

	if err := thread.Run(); err != nil {
		report("%v", err)
		return 1
	}
	return 0
}

func report(format string, args ...interface{}) {
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if color {
		fmt.Fprint(os.Stderr, "\x1b[31m")
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	if color {
		fmt.Fprint(os.Stderr, "\x1b[0m")
	}
}
