// Package cli is the embeddable entry point of the oolong binary: it
// compiles files, runs the interactive loop, and renders diagnostics.
package cli

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/oolong-lang/oolong/internal/config"
	"github.com/oolong-lang/oolong/internal/diagnostics"
	"github.com/oolong-lang/oolong/internal/vm"
)

// Entry runs the CLI and returns the process exit code.
func Entry(args []string) int {
	flags := flag.NewFlagSet("oolong", flag.ContinueOnError)
	disasm := flags.Bool("d", false, "print the disassembly of compiled code")
	showVersion := flags.Bool("version", false, "print version and exit")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Printf("oolong %s\n", config.Version)
		return 0
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "oolong: %v\n", err)
		return 1
	}

	if flags.NArg() == 0 {
		return repl(cfg)
	}

	return runFile(cfg, flags.Arg(0), *disasm)
}

func runFile(cfg *config.Config, path string, disasm bool) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oolong: %v\n", err)
		return 1
	}

	machine := vm.New()
	machine.RegisterBuiltins()

	name := config.TrimSourceExt(filepath.Base(path))
	module := machine.RegisterModule(name, path)

	fn, err := vm.Compile(machine, module, string(source))
	if err != nil {
		printErr(err)
		return 65
	}

	if disasm || cfg.Debug.PrintCode {
		fmt.Print(vm.Disassemble(fn.Chunk, module.Name))
	}

	return 0
}

func repl(cfg *config.Config) int {
	machine := vm.New()
	machine.RegisterBuiltins()
	machine.SetREPL(true)

	module := machine.RegisterModule("repl", "")

	prompt := cfg.REPL.Prompt
	tty := isatty.IsTerminal(os.Stdout.Fd())
	if tty && cfg.REPL.Color {
		prompt = lipgloss.NewStyle().Bold(true).Render(prompt)
	}

	fmt.Printf("Oolong %s\n", config.Version)

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(prompt)
		if !in.Scan() {
			fmt.Println()
			return 0
		}

		line := in.Text()
		if line == "" {
			continue
		}

		fn, err := vm.Compile(machine, module, line)
		if err != nil {
			printErr(err)
			continue
		}

		fmt.Print(vm.Disassemble(fn.Chunk, module.Name))
	}
}

func printErr(err error) {
	printer := diagnostics.NewPrinter(os.Stderr)
	if list, ok := err.(diagnostics.List); ok {
		printer.PrintAll(list)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}
