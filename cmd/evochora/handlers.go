package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/beevik/cmd"
	"github.com/fatih/color"

	"github.com/evochora/evochora/artifact"
	"github.com/evochora/evochora/asm"
	"github.com/evochora/evochora/disasm"
	"github.com/evochora/evochora/vm"
	"github.com/evochora/evochora/world"
)

// fileLoader resolves `.INCLUDE` paths relative to the including file's
// directory, reading from disk.
type fileLoader struct{ baseDir string }

func (l fileLoader) Load(path string) (string, bool) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(l.baseDir, path)
	}
	b, err := os.ReadFile(full)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func (a *App) cmdCompile(c cmd.Selection) error {
	if len(c.Args) == 0 {
		a.displayUsage(c.Command)
		return nil
	}

	filename := c.Args[0]
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if len(c.Args) > 1 {
		name = c.Args[1]
	}

	env := artifact.EnvironmentProperties{
		WorldShape: a.world.Shape(),
		Toroidal:   a.world.Toroidal(),
	}
	loader := fileLoader{baseDir: filepath.Dir(filename)}
	art, diags := asm.Assemble(filename, loader, env)
	for _, d := range diags {
		a.println(d.String())
	}
	if diags.HasErrors() {
		a.println("Compilation failed.")
		return nil
	}

	a.programs[name] = &program{path: filename, art: art}
	a.printf("Compiled %q as %q (program id %s).\n", filename, name, art.ProgramID)
	return nil
}

func (a *App) cmdPlace(c cmd.Selection) error {
	if len(c.Args) < 2 {
		a.displayUsage(c.Command)
		return nil
	}

	p, ok := a.programs[c.Args[0]]
	if !ok {
		a.printf("No compiled program named %q.\n", c.Args[0])
		return nil
	}

	origin, err := parseCoord(c.Args[1], a.world.Dimensions())
	if err != nil {
		a.printf("%v\n", err)
		return nil
	}

	energy := int64(1000)
	if len(c.Args) > 2 {
		v, err := strconv.ParseInt(c.Args[2], 10, 64)
		if err != nil {
			a.printf("%v\n", err)
			return nil
		}
		energy = v
	}

	id := a.runtime.Place(p.art, origin, energy)
	a.printf("Placed %q at %s as organism %d.\n", c.Args[0], origin, id)
	return nil
}

func (a *App) cmdRun(c cmd.Selection) error {
	ticks := a.settings.TickBatch
	if len(c.Args) > 0 {
		n, err := strconv.Atoi(c.Args[0])
		if err != nil {
			a.printf("%v\n", err)
			return nil
		}
		ticks = n
	}

	a.state = stateRunning
	done := 0
	for done < ticks && a.state == stateRunning {
		a.runtime.Tick()
		done++
	}
	a.state = stateProcessingCommands

	a.printf("Ran %d tick(s). tick=%d live=%d fingerprint=%016x\n",
		done, a.runtime.TickCount(), len(a.runtime.LiveIDs()), a.runtime.Fingerprint())
	return nil
}

func (a *App) cmdSnapshot(c cmd.Selection) error {
	ids := a.runtime.LiveIDs()
	a.printf("tick=%d organisms=%d\n", a.runtime.TickCount(), len(ids))
	for _, id := range ids {
		o, ok := a.runtime.Organism(id)
		if !ok {
			continue
		}
		line := fmt.Sprintf("  #%-4d parent=%-4d er=%-8d ip=%s dv=%s", o.ID, o.ParentID, o.ER, o.IP, o.DV)
		if a.settings.Color {
			line = color.GreenString(line)
		}
		a.println(line)
	}

	shape := a.world.Shape()
	if len(shape) == 2 {
		a.printGrid2D(shape)
	}
	return nil
}

// printGrid2D renders cell ownership of a 2-D world as a text grid, one
// character per cell: '.' for an unowned cell (owner 0, whatever its
// content), a digit/letter keyed by owner ids 1-36, '#' for higher ids. Only meaningful for small, 2-D worlds; larger or
// higher-dimensional worlds should use snapshot's organism listing
// instead.
func (a *App) printGrid2D(shape []int) {
	const glyphs = "0123456789abcdefghijklmnopqrstuvwxyz"
	for y := 0; y < shape[1]; y++ {
		var b strings.Builder
		for x := 0; x < shape[0]; x++ {
			owner := a.world.GetOwner(world.Coord{x, y})
			switch {
			case owner == 0:
				b.WriteByte('.')
			case owner-1 < len(glyphs):
				b.WriteByte(glyphs[(owner-1)%len(glyphs)])
			default:
				b.WriteByte('#')
			}
		}
		text := b.String()
		if a.settings.Color {
			text = color.CyanString(text)
		}
		a.println(text)
	}
}

func (a *App) cmdDisasm(c cmd.Selection) error {
	if len(c.Args) == 0 {
		a.displayUsage(c.Command)
		return nil
	}
	p, ok := a.programs[c.Args[0]]
	if !ok {
		a.printf("No compiled program named %q.\n", c.Args[0])
		return nil
	}

	dims := p.art.Env.Dimensions()
	dir := make(world.Coord, dims)
	if dims > 0 {
		dir[0] = 1
	}
	lines := disasm.Disassemble(p.art, dir)
	n := a.settings.DisasmLines
	for i, l := range lines {
		if i >= n {
			a.printf("... (%d more)\n", len(lines)-n)
			break
		}
		text := l.Text
		if l.Label != "" {
			text = l.Label + ": " + text
		}
		if a.settings.Color {
			text = color.YellowString(text)
		}
		a.println(text)
	}
	return nil
}

func (a *App) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		a.println("Variables:")
		a.settings.Display(a.output)

	case 1:
		a.displayUsage(c.Command)

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")

		var err error
		switch a.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting %q not found", key)
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = a.settings.Set(key, v)
			}
		case reflect.String:
			err = a.settings.Set(key, value)
		default:
			var v int64
			v, err = strconv.ParseInt(value, 10, 64)
			if err == nil {
				err = a.settings.Set(key, int(v))
			}
		}

		if err == nil {
			a.println("Setting updated.")
		} else {
			a.printf("%v\n", err)
		}
	}
	return nil
}

func (a *App) cmdReset(c cmd.Selection) error {
	a.rebuildWorld()
	a.println("World and runtime rebuilt from current settings.")
	return nil
}

func (a *App) cmdQuit(c cmd.Selection) error {
	return errors.New("exiting program")
}

func (a *App) cmdHelp(c cmd.Selection) error {
	switch {
	case len(c.Args) == 0:
		a.displayCommands(cmds, nil)
	default:
		s, err := cmds.Lookup(strings.Join(c.Args, " "))
		if err != nil {
			a.printf("%v\n", err)
			return nil
		}
		switch {
		case s.Command.Subtree != nil:
			a.displayCommands(s.Command.Subtree, s.Command)
		default:
			if s.Command.Usage != "" {
				a.printf("Usage: %s\n\n", s.Command.Usage)
			}
			switch {
			case s.Command.Description != "":
				a.printf("Description:\n%s\n\n", indentWrap(3, s.Command.Description))
			case s.Command.Brief != "":
				a.printf("Description:\n%s.\n\n", indentWrap(3, s.Command.Brief))
			}
			if len(s.Command.Shortcuts) > 0 {
				switch {
				case len(s.Command.Shortcuts) > 1:
					a.printf("Shortcuts: %s\n\n", strings.Join(s.Command.Shortcuts, ", "))
				default:
					a.printf("Shortcut: %s\n\n", s.Command.Shortcuts[0])
				}
			}
		}
	}
	return nil
}

// appObserver forwards runtime lifecycle events to the shell so it can
// print birth/death/failure notices as they happen during a run.
type appObserver struct {
	app *App
}

func (ob *appObserver) OnBirth(o *vm.Organism) {
	if ob.app.interactive {
		ob.app.printf("[tick %d] organism %d born at %s (parent %d)\n", ob.app.runtime.TickCount(), o.ID, o.IP, o.ParentID)
	}
}

func (ob *appObserver) OnDeath(o *vm.Organism, tick int) {
	if ob.app.interactive {
		ob.app.printf("[tick %d] organism %d died at %s\n", tick, o.ID, o.IP)
	}
}

func (ob *appObserver) OnInstructionFailed(o *vm.Organism, reason string) {
	if ob.app.interactive {
		ob.app.printf("[tick %d] organism %d instruction failed: %s\n", ob.app.runtime.TickCount(), o.ID, reason)
	}
}
