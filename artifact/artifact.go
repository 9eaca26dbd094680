// Package artifact defines the immutable compiled-program representation
// shared between the assembler (producer) and the runtime VM (consumer):
// ProgramArtifact, the placement-time environment it was compiled
// against, and the small supporting record types a call-binding pass and
// a source map are made of.
package artifact

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/evochora/evochora/world"
)

// EnvironmentProperties describes the world an artifact is compiled
// against: its shape and whether it wraps. Codegen validates every
// placed coordinate against this before the compile succeeds.
type EnvironmentProperties struct {
	WorldShape []int
	Toroidal   bool
}

// Dimensions returns the number of axes described by the environment.
func (e EnvironmentProperties) Dimensions() int { return len(e.WorldShape) }

// CallSiteBinding is the compiled record of one `CALL NAME .WITH ...`
// site: the ordered caller register ids to copy into the callee's
// fpr[0..k) on entry, and back out again on RET.
type CallSiteBinding struct {
	ProcName   string
	CallerRegs []int // DR/PR register ids, in fpr-slot order
}

// SourceLine maps one linear address back to the source file/line it
// was emitted from, for diagnostics and disassembly.
type SourceLine struct {
	LinearAddress int
	File          string
	Line          int
}

// CellValue pairs a relative coordinate with the packed molecule word
// to be written there at placement time. Coordinates are relative to
// the artifact's placement origin so a compiled program is
// position-independent.
type CellValue struct {
	Coord world.Coord
	Word  uint32
}

// ProgramArtifact is the immutable output of a successful compile: the
// sole input the runtime needs to stamp a program into the world and
// create an Organism for it.
type ProgramArtifact struct {
	// ProgramID is a content hash of the sources, the machine-code
	// layout, the initial world objects and the environment (see
	// ComputeProgramID), used as an identity key (e.g. organism.program_id) and for the compile-purity
	// property: two compiles of the same sources+environment yield the
	// same ProgramID.
	ProgramID string

	// Sources is the ordered list of (path, full text) pairs that were
	// compiled, kept for disassembly/diagnostics and for hashing.
	Sources []SourceFile

	// MachineCodeLayout maps a relative n-D coordinate to the packed
	// CODE/DATA molecule word to write there at placement.
	MachineCodeLayout []CellValue

	// InitialWorldObjects maps a relative n-D coordinate to a molecule
	// placed by `.PLACE`, independent of the code layout.
	InitialWorldObjects []CellValue

	// LabelAddressToName maps a relative linear address (see
	// LinearAddressToCoord) to the label name defined there, for
	// disassembly.
	LabelAddressToName map[int]string

	// RegisterAliasMap maps a `.REG` alias name to the register id it
	// names, for disassembly and diagnostics.
	RegisterAliasMap map[string]int

	// ProcNameToParamNames maps a `.PROC ... WITH` procedure name to its
	// ordered formal parameter names.
	ProcNameToParamNames map[string][]string

	// CallSiteBindings maps the linear address of a CALL instruction to
	// its compiled copy-in/copy-out binding.
	CallSiteBindings map[int]CallSiteBinding

	// LinearAddressToCoord is the inverse of the deterministic
	// linearization used to key LabelAddressToName/CallSiteBindings;
	// LinearAddressToCoord[addr] is a coordinate relative to the
	// placement origin.
	LinearAddressToCoord map[int]world.Coord

	// SourceMap is the linear-address-ordered list of source-line
	// records emitted during codegen.
	SourceMap []SourceLine

	// Env is the EnvironmentProperties this artifact was compiled
	// against; every coordinate above is guaranteed within its shape.
	Env EnvironmentProperties
}

// SourceFile is one compiled source unit: its path and full text, kept
// verbatim for hashing and for disassembly/diagnostics back-reference.
type SourceFile struct {
	Path string
	Text string
}

// CoordToLinearAddress returns the linear address naming coord, or
// (0, false) if coord does not appear in LinearAddressToCoord.
func (p *ProgramArtifact) CoordToLinearAddress(c world.Coord) (int, bool) {
	for addr, rc := range p.LinearAddressToCoord {
		if rc.Equal(c) {
			return addr, true
		}
	}
	return 0, false
}

// ComputeProgramID derives the content-addressed identity hash for the
// artifact's build-time fields. It must be called once, after every
// other field is finalized, to populate ProgramID; the assembler's
// codegen does this for the artifacts it builds.
func ComputeProgramID(p *ProgramArtifact) string {
	h := sha256.New()

	for _, s := range p.Sources {
		h.Write([]byte(s.Path))
		h.Write([]byte{0})
		h.Write([]byte(s.Text))
		h.Write([]byte{0})
	}

	writeCells := func(cells []CellValue) {
		sorted := append([]CellValue(nil), cells...)
		sort.Slice(sorted, func(i, j int) bool { return lessCoord(sorted[i].Coord, sorted[j].Coord) })
		for _, cv := range sorted {
			for _, d := range cv.Coord {
				binary.Write(h, binary.BigEndian, int64(d))
			}
			binary.Write(h, binary.BigEndian, cv.Word)
		}
	}
	writeCells(p.MachineCodeLayout)
	writeCells(p.InitialWorldObjects)

	for _, s := range p.Env.WorldShape {
		binary.Write(h, binary.BigEndian, int64(s))
	}
	if p.Env.Toroidal {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}

func lessCoord(a, b world.Coord) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
