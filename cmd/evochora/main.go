// Command evochora is an interactive shell for compiling Evochora
// programs, placing organisms into a world, and running the
// deterministic tick scheduler against them.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/beevik/term"
)

func main() {
	a := New()
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		a.settings.Color = false
	}

	args := os.Args[1:]
	for _, filename := range args {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		a.RunCommands(file, os.Stdout, false)
		file.Close()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(a, c)

	a.RunCommands(os.Stdin, os.Stdout, true)
}

func handleInterrupt(a *App, c chan os.Signal) {
	for {
		<-c
		a.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
