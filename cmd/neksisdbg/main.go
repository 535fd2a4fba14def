// Command neksisdbg is a live bytecode-VM inspector: it compiles a Neksis
// source file, then steps the VM one instruction at a time (or free-runs
// it) while drawing the current instruction pointer, the current frame's
// locals, the operand stack, and the module's full disassembly.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/neksis-lang/neksis/pkg/bytecode"
	"github.com/neksis-lang/neksis/pkg/compiler"
	"github.com/neksis-lang/neksis/pkg/vm"
)

// stepsPerFrame caps how many instructions free-run mode executes between
// draws, the same fixed-clock-per-frame shape the teacher's Game.Update
// uses to cap CPU.Step calls per tick.
const stepsPerFrame = 200

type inspector struct {
	machine   *vm.VM
	module    *bytecode.Module
	disasm    string
	running   bool
	lastFault error
}

func (g *inspector) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && g.machine.State == vm.Running {
		if err := g.machine.Step(); err != nil {
			g.lastFault = err
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.running = !g.running
	}
	if g.running {
		for i := 0; i < stepsPerFrame && g.machine.State == vm.Running; i++ {
			if err := g.machine.Step(); err != nil {
				g.lastFault = err
				g.running = false
				break
			}
		}
	}
	return nil
}

func (g *inspector) Draw(screen *ebiten.Image) {
	var b strings.Builder
	fmt.Fprintf(&b, "state: %s   ip: %04d   depth: %d\n", g.machine.State, g.machine.IP(), g.machine.Depth())
	if g.lastFault != nil {
		fmt.Fprintf(&b, "fault: %v\n", g.lastFault)
	}
	fmt.Fprintln(&b, "[space] step   [r] toggle free-run")
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "locals:")
	for i, v := range g.machine.Locals() {
		fmt.Fprintf(&b, "  %02d: %s\n", i, v)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "stack (top last):")
	for i, v := range g.machine.Stack() {
		fmt.Fprintf(&b, "  %02d: %s\n", i, v)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "disassembly:")
	fmt.Fprint(&b, g.disasm)

	ebitenutil.DebugPrintAt(screen, b.String(), 8, 8)
}

func (g *inspector) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 720, 720
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <file.nx>", os.Args[0])
	}
	filename := os.Args[1]
	src, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("failed to read %s: %v", filename, err)
	}

	result := compiler.Compile(string(src), compiler.Options{Optimize: true})
	if result.Diagnostics.HasErrors() {
		log.Fatal(result.Format(filename))
	}

	var buf bytes.Buffer
	if err := bytecode.NewDisassembler(&buf).Disassemble(result.Module); err != nil {
		log.Fatalf("disassembly failed: %v", err)
	}

	machine := vm.New(result.Module)
	if err := machine.Start(); err != nil {
		log.Fatalf("failed to start VM: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(720, 720)
	ebiten.SetWindowTitle("neksisdbg — " + filename)

	game := &inspector{machine: machine, module: result.Module, disasm: buf.String()}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
