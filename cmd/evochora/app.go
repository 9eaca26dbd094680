// Package main implements an interactive shell for compiling Evochora
// programs, placing them into a world, and running the deterministic
// tick scheduler against them.
package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/cmd"

	"github.com/evochora/evochora/artifact"
	"github.com/evochora/evochora/vm"
	"github.com/evochora/evochora/world"
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateInterrupted
)

// program is a compiled artifact cached under the name it was compiled
// with, so later place/disasm commands can refer to it by name instead
// of recompiling.
type program struct {
	path string
	art  *artifact.ProgramArtifact
}

// App is the interactive shell: it owns the world, the tick scheduler,
// and the cache of compiled programs referenced by name.
type App struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	lastCmd     *cmd.Selection
	state       state

	settings *settings
	world    *world.Grid
	runtime  *vm.Runtime
	programs map[string]*program
}

// New creates a shell with a freshly built world and runtime, sized and
// seeded from default settings.
func New() *App {
	a := &App{
		state:    stateProcessingCommands,
		settings: newSettings(),
		programs: map[string]*program{},
	}
	a.rebuildWorld()
	return a
}

func (a *App) rebuildWorld() {
	shape := []int{a.settings.WorldWidth, a.settings.WorldHeight}
	a.world = world.New(shape, a.settings.Toroidal)
	a.runtime = vm.NewRuntime(a.world, uint64(a.settings.Seed))
	a.runtime.Observer = &appObserver{app: a}
}

// RunCommands accepts shell commands from a reader and writes results to
// a writer. If interactive, a prompt is displayed while the shell waits
// for the next command.
func (a *App) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	a.input = bufio.NewScanner(r)
	a.output = bufio.NewWriter(w)
	a.interactive = interactive

	if interactive {
		a.println()
		a.println("Evochora interactive shell. Type 'help' for commands.")
	}

	for {
		a.prompt()

		line, err := a.getLine()
		if err != nil {
			break
		}

		if err := a.processCommand(line); err != nil {
			break
		}
	}
}

func (a *App) processCommand(line string) error {
	var c cmd.Selection
	if line != "" {
		var err error
		c, err = cmds.Lookup(line)
		switch {
		case err == cmd.ErrNotFound:
			a.println("Command not found.")
			return nil
		case err == cmd.ErrAmbiguous:
			a.println("Command is ambiguous.")
			return nil
		case err != nil:
			a.printf("ERROR: %v.\n", err)
			return nil
		}
	} else if a.lastCmd != nil {
		c = *a.lastCmd
	}

	if c.Command == nil {
		return nil
	}
	if c.Command.Data == nil && c.Command.Subtree != nil {
		a.displayCommands(c.Command.Subtree, nil)
		return nil
	}

	a.lastCmd = &c

	handler := c.Command.Data.(func(*App, cmd.Selection) error)
	return handler(a, c)
}

// Break interrupts a running simulation.
func (a *App) Break() {
	a.println()

	switch a.state {
	case stateRunning:
		a.state = stateInterrupted
	case stateProcessingCommands:
		a.println("Type 'quit' to exit the application.")
		a.prompt()
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.output, format, args...)
	a.flush()
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.output, args...)
	a.flush()
}

func (a *App) flush() {
	a.output.Flush()
}

func (a *App) getLine() (string, error) {
	if a.input.Scan() {
		return a.input.Text(), nil
	}
	if a.input.Err() != nil {
		return "", a.input.Err()
	}
	return "", io.EOF
}

func (a *App) prompt() {
	if !a.interactive {
		return
	}
	a.printf("evochora> ")
}

func (a *App) displayUsage(c *cmd.Command) {
	if c.Usage != "" {
		a.printf("Usage: %s\n", c.Usage)
	}
}

func (a *App) displayCommands(commands *cmd.Tree, c *cmd.Command) {
	a.printf("%s commands:\n", commands.Title)
	for _, cc := range commands.Commands {
		if cc.Brief != "" {
			a.printf("    %-15s  %s\n", cc.Name, cc.Brief)
		}
	}
	a.println()

	if c != nil && len(c.Shortcuts) > 0 {
		switch {
		case len(c.Shortcuts) > 1:
			a.printf("Shortcuts: %s\n\n", strings.Join(c.Shortcuts, ", "))
		default:
			a.printf("Shortcut: %s\n\n", c.Shortcuts[0])
		}
	}
}
