package disasm

import (
	"testing"

	"github.com/evochora/evochora/artifact"
	"github.com/evochora/evochora/asm"
	"github.com/evochora/evochora/world"
)

func env2D() artifact.EnvironmentProperties {
	return artifact.EnvironmentProperties{WorldShape: []int{64, 64}, Toroidal: true}
}

func TestDisassembleResolvesLabelsAndOperands(t *testing.T) {
	art, diags := asm.AssembleSource(`
START: NOP
SETI %DR0, DATA:10
ADDI %DR0, DATA:5
JMPI START
`, env2D())
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	lines := Disassemble(art, world.Coord{1, 0})
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4: %+v", len(lines), lines)
	}
	if lines[0].Label != "START" || lines[0].Text != "NOP" {
		t.Fatalf("line0 = %+v, want label START, text NOP", lines[0])
	}
	if lines[1].Text != "SETI %DR0, DATA:10" {
		t.Fatalf("line1 = %q", lines[1].Text)
	}
	if lines[2].Text != "ADDI %DR0, DATA:5" {
		t.Fatalf("line2 = %q", lines[2].Text)
	}
	if lines[3].Text != "JMPI START" {
		t.Fatalf("line3 = %q, want relative vector resolved back to its label", lines[3].Text)
	}
}

func TestDisassembleFallsBackToVectorLiteralWithoutALabelAtTarget(t *testing.T) {
	art, diags := asm.AssembleSource("SETV %LR0, 3|4\n", env2D())
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	lines := Disassemble(art, world.Coord{1, 0})
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0].Text != "SETV %LR0, 3|4" {
		t.Fatalf("text = %q, want SETV %%LR0, 3|4", lines[0].Text)
	}
}

func TestDisassembleUsesRegAlias(t *testing.T) {
	art, diags := asm.AssembleSource(".REG COUNTER %DR1\nSETI %COUNTER, DATA:0\n", env2D())
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	lines := Disassemble(art, world.Coord{1, 0})
	if len(lines) != 1 || lines[0].Text != "SETI %COUNTER, DATA:0" {
		t.Fatalf("lines = %+v, want SETI %%COUNTER, DATA:0", lines)
	}
}

func TestFormatRendersLabelPrefix(t *testing.T) {
	lines := []Line{
		{Label: "START", Text: "NOP"},
		{Text: "JMPI START"},
	}
	got := Format(lines)
	want := "START: NOP\nJMPI START\n"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}
