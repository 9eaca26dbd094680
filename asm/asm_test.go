package asm

import (
	"testing"

	"github.com/evochora/evochora/artifact"
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/vm"
)

func env2D() artifact.EnvironmentProperties {
	return artifact.EnvironmentProperties{WorldShape: []int{64, 64}, Toroidal: true}
}

func mustAssemble(t *testing.T, src string) *artifact.ProgramArtifact {
	t.Helper()
	art, diags := AssembleSource(src, env2D())
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if art == nil {
		t.Fatalf("expected artifact, got nil")
	}
	return art
}

func cellAt(art *artifact.ProgramArtifact, x, y int) (uint32, bool) {
	for _, cv := range art.MachineCodeLayout {
		if len(cv.Coord) == 2 && cv.Coord[0] == x && cv.Coord[1] == y {
			return cv.Word, true
		}
	}
	for _, cv := range art.InitialWorldObjects {
		if len(cv.Coord) == 2 && cv.Coord[0] == x && cv.Coord[1] == y {
			return cv.Word, true
		}
	}
	return 0, false
}

func TestBasicLayoutAndOperands(t *testing.T) {
	art := mustAssemble(t, `
SETI %DR0, DATA:10
ADDI %DR0, DATA:5
`)
	setiOp, _ := vm.GetInstructionSet().LookupName("SETI")
	addiOp, _ := vm.GetInstructionSet().LookupName("ADDI")

	w, ok := cellAt(art, 0, 0)
	if !ok || molecule.FromInt(w).Value() != int(setiOp.Opcode) {
		t.Fatalf("cell (0,0) = %v, want SETI opcode", w)
	}
	w, ok = cellAt(art, 3, 0)
	if !ok || molecule.FromInt(w).Value() != int(addiOp.Opcode) {
		t.Fatalf("cell (3,0) = %v, want ADDI opcode", w)
	}
	w, ok = cellAt(art, 4, 0)
	if !ok || molecule.FromInt(w).Value() != vm.DRBase {
		t.Fatalf("cell (4,0) register operand = %v, want DR0", w)
	}
	w, ok = cellAt(art, 5, 0)
	m := molecule.FromInt(w)
	if !ok || m.Type() != molecule.Data || m.Value() != 5 {
		t.Fatalf("cell (5,0) immediate = %+v, want DATA:5", m)
	}
}

func TestLabelResolvesToRelativeVector(t *testing.T) {
	art := mustAssemble(t, `
START: NOP
JMPI START
`)
	// JMPI START is laid out at (1,0): opcode cell (1,0), then a 2-cell
	// vector operand at (2,0),(3,0). START is at (0,0) and the vector is
	// measured from the opcode cell, so the relative vector back to it is
	// (-1,0).
	w, ok := cellAt(art, 2, 0)
	if !ok || molecule.FromInt(w).Value() != -1 {
		t.Fatalf("vector x-component = %v, want -1", w)
	}
	w, ok = cellAt(art, 3, 0)
	if !ok || molecule.FromInt(w).Value() != 0 {
		t.Fatalf("vector y-component = %v, want 0", w)
	}
}

func TestDefineSubstitution(t *testing.T) {
	art := mustAssemble(t, `
.DEFINE SPEED DATA:3
SETI %DR0, SPEED
`)
	w, _ := cellAt(art, 2, 0)
	m := molecule.FromInt(w)
	if m.Type() != molecule.Data || m.Value() != 3 {
		t.Fatalf("substituted immediate = %+v, want DATA:3", m)
	}
}

func TestProcWithCallBinding(t *testing.T) {
	art := mustAssemble(t, `
SETI %DR3, DATA:5
CALL INC .WITH %DR3
JMPI SELF
SELF:
.PROC INC .WITH X
ADDI %FPR0, DATA:1
RET
.ENDP
`)
	binding, ok := art.CallSiteBindings[1] // addr 0 = SETI, addr 1 = CALL
	if !ok {
		t.Fatalf("no call site binding recorded")
	}
	if binding.ProcName != "INC" || len(binding.CallerRegs) != 1 || binding.CallerRegs[0] != vm.DRBase+3 {
		t.Fatalf("binding = %+v, want ProcName INC, CallerRegs [DR3]", binding)
	}
	params, ok := art.ProcNameToParamNames["INC"]
	if !ok || len(params) != 1 || params[0] != "X" {
		t.Fatalf("proc params = %v, want [X]", params)
	}
}

func TestCallWithArityMismatchIsDiagnosed(t *testing.T) {
	_, diags := AssembleSource(`
CALL INC .WITH %DR0, %DR1
JMPI SELF
SELF:
.PROC INC .WITH X
RET
.ENDP
`, env2D())
	if !diags.HasErrors() {
		t.Fatalf("expected an arity-mismatch diagnostic")
	}
}

func TestPlaceLiteralSingleCell(t *testing.T) {
	art := mustAssemble(t, `
.PLACE ENERGY:500 3|4
`)
	w, ok := cellAt(art, 3, 4)
	m := molecule.FromInt(w)
	if !ok || m.Type() != molecule.Energy || m.Value() != 500 {
		t.Fatalf("placed cell = %+v, want ENERGY:500", m)
	}
}

func TestPlaceLiteralRange(t *testing.T) {
	art := mustAssemble(t, `
.PLACE DATA:1 0..2|5
`)
	for x := 0; x <= 2; x++ {
		if _, ok := cellAt(art, x, 5); !ok {
			t.Fatalf("expected a placed cell at (%d,5)", x)
		}
	}
	if _, ok := cellAt(art, 3, 5); ok {
		t.Fatalf("range 0..2 should not place a cell at x=3")
	}
}

func TestRegAliasAndScope(t *testing.T) {
	art := mustAssemble(t, `
.REG COUNTER %DR1
.SCOPE LOOP
TOP: SETI %COUNTER, DATA:0
JMPI TOP
.ENDS
`)
	w, _ := cellAt(art, 1, 0)
	if molecule.FromInt(w).Value() != vm.DRBase+1 {
		t.Fatalf("alias did not resolve to DR1")
	}
	// relative jump from (3,0) back to TOP at (0,0) is (-3,0).
	w, ok := cellAt(art, 4, 0)
	if !ok || molecule.FromInt(w).Value() != -3 {
		t.Fatalf("scoped label jump vector = %v, want -3", w)
	}
}

func TestMacroExpansion(t *testing.T) {
	art := mustAssemble(t, `
.MACRO INCR reg
ADDI reg, DATA:1
.ENDM
INCR %DR0
`)
	addiOp, _ := vm.GetInstructionSet().LookupName("ADDI")
	w, ok := cellAt(art, 0, 0)
	if !ok || molecule.FromInt(w).Value() != int(addiOp.Opcode) {
		t.Fatalf("macro body did not expand to ADDI")
	}
}

func TestUnknownMnemonicIsDiagnosed(t *testing.T) {
	_, diags := AssembleSource("BOGUS %DR0\n", env2D())
	if !diags.HasErrors() {
		t.Fatalf("expected a diagnostic for an unknown mnemonic")
	}
}

func TestCompilePurityIsDeterministic(t *testing.T) {
	src := "SETI %DR0, DATA:1\nADDI %DR0, DATA:2\n"
	a1, d1 := AssembleSource(src, env2D())
	a2, d2 := AssembleSource(src, env2D())
	if d1.HasErrors() || d2.HasErrors() {
		t.Fatalf("unexpected diagnostics")
	}
	if a1.ProgramID != a2.ProgramID {
		t.Fatalf("ProgramID not stable across identical compiles: %s vs %s", a1.ProgramID, a2.ProgramID)
	}
}

func TestInclude(t *testing.T) {
	loader := MapLoader{
		"main.asm": ".INCLUDE \"lib.asm\"\nSETI %DR0, DATA:1\n",
		"lib.asm":  "NOP\n",
	}
	art, diags := Assemble("main.asm", loader, env2D())
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if _, ok := cellAt(art, 0, 0); !ok {
		t.Fatalf("included NOP should occupy (0,0)")
	}
	if _, ok := cellAt(art, 1, 0); !ok {
		t.Fatalf("SETI from main should follow the included NOP at (1,0)")
	}
}
