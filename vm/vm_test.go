package vm

import (
	"testing"

	"github.com/evochora/evochora/artifact"
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/world"
)

func opWord(t *testing.T, name string) uint32 {
	t.Helper()
	instr, ok := GetInstructionSet().LookupName(name)
	if !ok {
		t.Fatalf("no such opcode %q", name)
	}
	return molecule.New(molecule.Code, int(instr.Opcode)).ToInt()
}

func regWord(id int) uint32 { return molecule.New(molecule.Data, id).ToInt() }

func immWord(typ molecule.Type, v int) uint32 { return molecule.New(typ, v).ToInt() }

// place lays cells out one per axis-0 step starting at origin, matching
// the default DV=(1,0,...) every newOrganism starts with.
func place(rt *Runtime, origin world.Coord, energy int64, words ...uint32) int {
	cells := make([]artifact.CellValue, len(words))
	for i, w := range words {
		c := make(world.Coord, len(origin))
		c[0] = i
		cells[i] = artifact.CellValue{Coord: c, Word: w}
	}
	art := &artifact.ProgramArtifact{
		ProgramID:         "test",
		MachineCodeLayout: cells,
		Env:               artifact.EnvironmentProperties{WorldShape: rt.World.Shape(), Toroidal: rt.World.Toroidal()},
	}
	return rt.Place(art, origin, energy)
}

func TestArithmeticSetiAddi(t *testing.T) {
	g := world.New([]int{32, 32}, true)
	rt := NewRuntime(g, 1)
	id := place(rt, world.Coord{0, 0}, 100,
		opWord(t, "SETI"), regWord(DRBase+0), immWord(molecule.Data, 10),
		opWord(t, "ADDI"), regWord(DRBase+0), immWord(molecule.Data, 5),
	)
	rt.Tick()
	rt.Tick()

	o, _ := rt.Organism(id)
	v, _ := o.Regs.Get(DRBase + 0)
	if v.IsVector || v.Scalar.Value() != 15 {
		t.Fatalf("DR0 = %+v, want DATA:15", v)
	}
}

func TestConditionalSkip(t *testing.T) {
	g := world.New([]int{32, 32}, true)
	rt := NewRuntime(g, 1)
	id := place(rt, world.Coord{0, 0}, 100,
		opWord(t, "SETI"), regWord(DRBase+0), immWord(molecule.Data, 10),
		opWord(t, "SETI"), regWord(DRBase+1), immWord(molecule.Data, 20),
		opWord(t, "IFR"), regWord(DRBase+0), regWord(DRBase+1),
		opWord(t, "NOP"),
		opWord(t, "NOP"),
	)
	rt.Tick() // SETI DR0
	rt.Tick() // SETI DR1
	rt.Tick() // IFR: equality false -> skip own + following NOP

	o, _ := rt.Organism(id)
	want := world.Coord{10, 0}
	if !o.IP.Equal(want) {
		t.Fatalf("ip = %v, want %v (landing on second NOP)", o.IP, want)
	}
}

func TestPeekEnergyCreditsAndClearsCell(t *testing.T) {
	g := world.New([]int{32, 32}, true)
	rt := NewRuntime(g, 1)
	g.Set(world.Coord{0, 1}, molecule.New(molecule.Energy, 500), 0)

	id := place(rt, world.Coord{0, 0}, 1000,
		opWord(t, "PEKI"), regWord(DRBase+0), immWord(molecule.Data, 0), immWord(molecule.Data, 1),
	)
	rt.Tick()

	o, _ := rt.Organism(id)
	if o.ER != 1499 {
		t.Fatalf("er = %d, want 1499", o.ER)
	}
	v, _ := o.Regs.Get(DRBase + 0)
	if v.IsVector || v.Scalar.Type() != molecule.Energy || v.Scalar.Value() != 500 {
		t.Fatalf("DR0 = %+v, want ENERGY:500", v)
	}
	if !g.Get(world.Coord{0, 1}).IsEmpty() {
		t.Fatalf("cell at (0,1) should be cleared after PEKI")
	}
}

func TestPeekEnergyClampsAtMax(t *testing.T) {
	g := world.New([]int{32, 32}, true)
	rt := NewRuntime(g, 1)
	rt.MaxEnergy = 1000
	g.Set(world.Coord{0, 1}, molecule.New(molecule.Energy, 500), 0)

	id := place(rt, world.Coord{0, 0}, 900,
		opWord(t, "PEKI"), regWord(DRBase+0), immWord(molecule.Data, 0), immWord(molecule.Data, 1),
	)
	rt.Tick()

	o, _ := rt.Organism(id)
	// credit clamps 900+500 to MaxEnergy(1000) before the base cost of 1
	// is deducted, so the final balance is 999, not 1000 - 1.
	if o.ER != 999 {
		t.Fatalf("er = %d, want 999 (clamped to 1000, then base cost 1 deducted)", o.ER)
	}
}

func TestCallRetCopyBack(t *testing.T) {
	g := world.New([]int{32, 32}, true)
	rt := NewRuntime(g, 1)

	origin := world.Coord{0, 0}
	words := []uint32{
		opWord(t, "SETI"), regWord(DRBase + 3), immWord(molecule.Data, 5), // (0,0)-(2,0)
		opWord(t, "CALL"), immWord(molecule.Data, 7), immWord(molecule.Data, 0), // (3,0)-(5,0): vec (7,0)
	}
	cells := make([]artifact.CellValue, len(words))
	for i, w := range words {
		cells[i] = artifact.CellValue{Coord: world.Coord{i, 0}, Word: w}
	}
	proc := []artifact.CellValue{
		{Coord: world.Coord{10, 0}, Word: opWord(t, "ADDI")},
		{Coord: world.Coord{11, 0}, Word: regWord(FPRBase + 0)},
		{Coord: world.Coord{12, 0}, Word: immWord(molecule.Data, 1)},
		{Coord: world.Coord{13, 0}, Word: opWord(t, "RET")},
	}
	cells = append(cells, proc...)

	art := &artifact.ProgramArtifact{
		ProgramID:         "test-call",
		MachineCodeLayout: cells,
		Env:               artifact.EnvironmentProperties{WorldShape: g.Shape(), Toroidal: g.Toroidal()},
		LinearAddressToCoord: map[int]world.Coord{
			0: {3, 0},
		},
		CallSiteBindings: map[int]artifact.CallSiteBinding{
			0: {ProcName: "INC", CallerRegs: []int{DRBase + 3}},
		},
	}
	id := rt.Place(art, origin, 100)

	rt.Tick() // SETI DR3, 5
	rt.Tick() // CALL -> jumps into proc
	rt.Tick() // ADDI FPR0, DATA:1
	rt.Tick() // RET -> copies FPR0 back to DR3

	o, _ := rt.Organism(id)
	v, _ := o.Regs.Get(DRBase + 3)
	if v.IsVector || v.Scalar.Value() != 6 {
		t.Fatalf("DR3 = %+v, want DATA:6", v)
	}
	if len(o.CS) != 0 {
		t.Fatalf("call stack should be empty after RET, got depth %d", len(o.CS))
	}
	for i, pr := range o.Regs.PR {
		if pr.IsVector || pr.Scalar.Value() != 0 {
			t.Fatalf("PR[%d] should be unchanged (zero value), got %+v", i, pr)
		}
	}
}

func TestToroidalWrapOnAdvance(t *testing.T) {
	g := world.New([]int{20, 5}, true)
	rt := NewRuntime(g, 1)
	id := place(rt, world.Coord{19, 0}, 100, opWord(t, "NOP"))

	rt.Tick()

	o, _ := rt.Organism(id)
	want := world.Coord{0, 0}
	if !o.IP.Equal(want) {
		t.Fatalf("ip = %v, want %v after wrapping across the edge", o.IP, want)
	}
}

func TestPokeConflictLowerIDWins(t *testing.T) {
	g := world.New([]int{32, 32}, true)
	rt := NewRuntime(g, 1)

	rt.nextOrganism = 7
	idA := place(rt, world.Coord{0, 0}, 100,
		opWord(t, "POKI"), immWord(molecule.Data, 1), immWord(molecule.Data, 0), immWord(molecule.Data, 1),
	)
	rt.nextOrganism = 11
	idB := place(rt, world.Coord{1, 1}, 100,
		opWord(t, "POKI"), immWord(molecule.Data, 1), immWord(molecule.Data, -1), immWord(molecule.Data, 0),
	)
	if idA != 7 || idB != 11 {
		t.Fatalf("ids = %d,%d, want 7,11", idA, idB)
	}

	rt.Tick()

	cell := g.GetCell(world.Coord{0, 1})
	if cell.Owner != 7 || cell.Mol.Value() != 1 {
		t.Fatalf("cell at (0,1) = %+v, want owner 7 value 1", cell)
	}

	winner, _ := rt.Organism(7)
	loser, _ := rt.Organism(11)
	if winner.InstructionFailed {
		t.Fatalf("winner should not be marked failed")
	}
	if winner.ER != 100-6 {
		t.Fatalf("winner er = %d, want %d (baseCost 1 + preCost 5)", winner.ER, 100-6)
	}
	if !loser.InstructionFailed || loser.FailureReason != "conflict" {
		t.Fatalf("loser should be instruction_failed with reason conflict, got %+v", loser)
	}
	if loser.ER != 100-5 {
		t.Fatalf("loser er = %d, want %d (preCost 5 only, base cost waived)", loser.ER, 100-5)
	}
}

func TestMoleculeRoundTripInvariant(t *testing.T) {
	for _, typ := range []molecule.Type{molecule.Code, molecule.Data, molecule.Energy, molecule.Structure} {
		for _, v := range []int{0, 1, -1, 100, -100, 1<<23 - 1, -(1 << 23)} {
			m := molecule.New(typ, v)
			if got := molecule.FromInt(m.ToInt()); got != m {
				t.Fatalf("round trip failed for (%v,%d): got %+v", typ, v, got)
			}
		}
	}
}

func TestForkDebitsExactlyForkCostPlusChildEnergy(t *testing.T) {
	g := world.New([]int{32, 32}, true)
	rt := NewRuntime(g, 1)
	id := place(rt, world.Coord{0, 0}, 100, opWord(t, "NOP"))

	parent, _ := rt.Organism(id)
	parent.Regs.Set(DRBase+0, ScalarValue(molecule.New(molecule.Data, 20)))
	parent.Regs.Set(DRBase+1, VectorValue(world.Coord{0, 1}))
	parent.Regs.Set(DRBase+2, VectorValue(world.Coord{1, 0}))

	instr, _ := GetInstructionSet().LookupName("FORK")
	before := parent.ER
	out := instr.Exec(rt, parent, []decodedArg{
		cellArg(molecule.New(molecule.Data, DRBase+0)),
		cellArg(molecule.New(molecule.Data, DRBase+1)),
		cellArg(molecule.New(molecule.Data, DRBase+2)),
	})
	if out.claim == nil {
		t.Fatalf("FORK should produce a claim")
	}
	out.claim.commit()

	if before-parent.ER != ForkCost+20 {
		t.Fatalf("parent debited %d, want %d", before-parent.ER, ForkCost+20)
	}
	if len(rt.LiveIDs()) != 2 {
		t.Fatalf("want 2 live organisms after fork, got %d", len(rt.LiveIDs()))
	}
}
