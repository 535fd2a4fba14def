// Command neksis compiles and runs a single Neksis source file.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/neksis-lang/neksis/pkg/bytecode"
	"github.com/neksis-lang/neksis/pkg/compiler"
	"github.com/neksis-lang/neksis/pkg/utils"
	"github.com/neksis-lang/neksis/pkg/vm"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <file.nx> [--show-asm]", os.Args[0])
	}
	showAsm := false
	for _, arg := range os.Args[2:] {
		showAsm = showAsm || arg == "--show-asm"
	}

	fullPath, _, err := utils.GetPathInfo(os.Args[1])
	if err != nil {
		log.Fatalf("failed to resolve %s: %v", os.Args[1], err)
	}
	src, err := os.ReadFile(fullPath)
	if err != nil {
		log.Fatalf("failed to read %s: %v", fullPath, err)
	}

	result := compiler.Compile(string(src), compiler.Options{Optimize: true})
	if result.Diagnostics.HasErrors() {
		fmt.Fprintln(os.Stderr, result.Format(fullPath))
		os.Exit(1)
	}

	if showAsm {
		_ = bytecode.NewDisassembler(os.Stdout).Disassemble(result.Module)
		fmt.Println()
	}

	machine := vm.New(result.Module)
	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", fullPath, err)
		os.Exit(1)
	}
	os.Exit(machine.ExitCode())
}
