package artifact

import (
	"testing"

	"github.com/evochora/evochora/world"
)

func sampleArtifact() *ProgramArtifact {
	p := &ProgramArtifact{
		Sources: []SourceFile{{Path: "main.evo", Text: "SETI %DR0 DATA:1\n"}},
		MachineCodeLayout: []CellValue{
			{Coord: world.Coord{0, 0}, Word: 1},
			{Coord: world.Coord{1, 0}, Word: 2},
		},
		Env: EnvironmentProperties{WorldShape: []int{10, 10}, Toroidal: true},
	}
	p.ProgramID = ComputeProgramID(p)
	return p
}

func TestComputeProgramIDDeterministic(t *testing.T) {
	a := sampleArtifact()
	b := sampleArtifact()
	if a.ProgramID != b.ProgramID {
		t.Fatalf("expected identical program ids, got %q vs %q", a.ProgramID, b.ProgramID)
	}
}

func TestComputeProgramIDSensitiveToContent(t *testing.T) {
	a := sampleArtifact()
	b := sampleArtifact()
	b.MachineCodeLayout[0].Word = 99
	b.ProgramID = ComputeProgramID(b)
	if a.ProgramID == b.ProgramID {
		t.Fatal("expected program id to change when machine code layout changes")
	}
}

func TestComputeProgramIDOrderIndependent(t *testing.T) {
	a := sampleArtifact()
	b := sampleArtifact()
	b.MachineCodeLayout[0], b.MachineCodeLayout[1] = b.MachineCodeLayout[1], b.MachineCodeLayout[0]
	b.ProgramID = ComputeProgramID(b)
	if a.ProgramID != b.ProgramID {
		t.Fatal("expected program id to be independent of cell insertion order")
	}
}

func TestCoordToLinearAddress(t *testing.T) {
	p := sampleArtifact()
	p.LinearAddressToCoord = map[int]world.Coord{
		0: {0, 0},
		2: {1, 0},
	}
	addr, ok := p.CoordToLinearAddress(world.Coord{1, 0})
	if !ok || addr != 2 {
		t.Fatalf("expected address 2, got %d, ok=%v", addr, ok)
	}
	_, ok = p.CoordToLinearAddress(world.Coord{5, 5})
	if ok {
		t.Fatal("expected lookup for unmapped coord to fail")
	}
}
