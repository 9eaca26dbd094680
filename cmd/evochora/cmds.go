package main

import "github.com/beevik/cmd"

var cmds *cmd.Tree

func init() {
	root := cmd.NewTree("evochora")
	root.AddCommand(cmd.Command{
		Name:        "help",
		Description: "Display help for a command.",
		Usage:       "help [<command>]",
		Data:        (*App).cmdHelp,
	})
	root.AddCommand(cmd.Command{
		Name:  "compile",
		Brief: "Compile a source file into a program artifact",
		Description: "Run the assembler on the specified file against the" +
			" current world's shape and toroidal setting, caching the" +
			" resulting artifact under the name given (or the file's base" +
			" name if omitted) for later use by place and disasm.",
		Usage: "compile <filename> [<name>]",
		Data:  (*App).cmdCompile,
	})
	root.AddCommand(cmd.Command{
		Name:  "place",
		Brief: "Place a compiled program into the world",
		Description: "Stamp a previously compiled program's machine code" +
			" and initial world objects into the world at the given origin" +
			" coordinate, creating a new living organism there. An initial" +
			" energy reserve may be specified; it defaults to a generous" +
			" starting value.",
		Usage: "place <name> <coord> [<energy>]",
		Data:  (*App).cmdPlace,
	})
	root.AddCommand(cmd.Command{
		Name:  "run",
		Brief: "Advance the simulation",
		Description: "Advance the runtime by the number of ticks given, or" +
			" by the TickBatch setting (default 1) when none is given. Reports the tick count, live organism count, and" +
			" the runtime fingerprint after the batch completes.",
		Usage: "run [<ticks>]",
		Data:  (*App).cmdRun,
	})
	root.AddCommand(cmd.Command{
		Name:  "snapshot",
		Brief: "Display the current world and organism state",
		Description: "Print every living organism's id, position, energy," +
			" and instruction pointer, followed by a grid rendering of" +
			" occupied cells.",
		Usage: "snapshot",
		Data:  (*App).cmdSnapshot,
	})
	root.AddCommand(cmd.Command{
		Name:  "disasm",
		Brief: "Disassemble a compiled program",
		Description: "Disassemble a previously compiled program back into" +
			" mnemonic source text, resolving labels and register aliases.",
		Usage: "disasm <name>",
		Data:  (*App).cmdDisasm,
	})
	root.AddCommand(cmd.Command{
		Name:  "set",
		Brief: "Set a configuration variable",
		Description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments. Changing world-shape settings takes" +
			" effect the next time the world is reset.",
		Usage: "set [<var> <value>]",
		Data:  (*App).cmdSet,
	})
	root.AddCommand(cmd.Command{
		Name:  "reset",
		Brief: "Rebuild the world and runtime from current settings",
		Description: "Discard all living organisms and rebuild an empty" +
			" world of the configured shape, seeded with the configured" +
			" RNG seed.",
		Usage: "reset",
		Data:  (*App).cmdReset,
	})
	root.AddCommand(cmd.Command{
		Name:        "quit",
		Brief:       "Quit the program",
		Description: "Quit the program.",
		Usage:       "quit",
		Data:        (*App).cmdQuit,
	})

	root.AddShortcut("c", "compile")
	root.AddShortcut("p", "place")
	root.AddShortcut("r", "run")
	root.AddShortcut("snap", "snapshot")
	root.AddShortcut("d", "disasm")
	root.AddShortcut("?", "help")

	cmds = root
}
