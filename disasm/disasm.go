// Package disasm renders a compiled artifact.ProgramArtifact back into
// mnemonic source text: one line per instruction, operands resolved
// back to register names (builtin or `.REG` alias) and relative-vector
// operands resolved back to the label they point at wherever one sits
// exactly at the target coordinate.
//
// A ProgramArtifact records only the coordinate of each instruction's
// opcode cell (LinearAddressToCoord), not the `.DIR` vector the
// assembler laid it out along — `.DIR` is a layout-time convenience,
// not part of the artifact's position-independent contract. Disassembly
// therefore takes the walking direction as an explicit parameter; a
// caller with no better information should pass the same unit vector
// an organism's DV register starts with (world.UnitVectors(dims)[0]).
package disasm

import (
	"sort"
	"strconv"
	"strings"

	"github.com/evochora/evochora/artifact"
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/vm"
	"github.com/evochora/evochora/world"
)

// Line is one disassembled instruction.
type Line struct {
	Addr  int
	Coord world.Coord
	Label string // label name defined at Coord, if any
	Text  string // "MNEMONIC operand, operand" with no label prefix
}

// cellIndex is a coord.String()-keyed lookup over both of an artifact's
// cell sets, built once per disassembly run.
type cellIndex map[string]uint32

func buildCellIndex(art *artifact.ProgramArtifact) cellIndex {
	idx := make(cellIndex, len(art.MachineCodeLayout)+len(art.InitialWorldObjects))
	for _, cv := range art.MachineCodeLayout {
		idx[cv.Coord.String()] = cv.Word
	}
	for _, cv := range art.InitialWorldObjects {
		idx[cv.Coord.String()] = cv.Word
	}
	return idx
}

func advance(c, dir world.Coord, n int) world.Coord {
	out := make(world.Coord, len(c))
	for i := range c {
		out[i] = c[i] + dir[i]*n
	}
	return out
}

// coordToAddr inverts LinearAddressToCoord, for resolving a relative
// vector's absolute target back to a linear address and thence a label.
func coordToAddr(art *artifact.ProgramArtifact) map[string]int {
	out := make(map[string]int, len(art.LinearAddressToCoord))
	for addr, c := range art.LinearAddressToCoord {
		out[c.String()] = addr
	}
	return out
}

func sortedAliasNames(art *artifact.ProgramArtifact) []string {
	names := make([]string, 0, len(art.RegisterAliasMap))
	for n := range art.RegisterAliasMap {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// registerName renders a register id as its `.REG` alias if the
// artifact defines one for it, falling back to the builtin DR/PR/FPR/LR
// name.
func registerName(art *artifact.ProgramArtifact, aliases []string, id int) string {
	for _, name := range aliases {
		if art.RegisterAliasMap[name] == id {
			return "%" + name
		}
	}
	switch {
	case id >= vm.DRBase && id < vm.DRBase+vm.DRCount:
		return "%DR" + strconv.Itoa(id-vm.DRBase)
	case id >= vm.PRBase && id < vm.PRBase+vm.PRCount:
		return "%PR" + strconv.Itoa(id-vm.PRBase)
	case id >= vm.FPRBase && id < vm.FPRBase+vm.FPRCount:
		return "%FPR" + strconv.Itoa(id-vm.FPRBase)
	case id >= vm.LRBase && id < vm.LRBase+vm.LRCount:
		return "%LR" + strconv.Itoa(id-vm.LRBase)
	default:
		return "%?" + strconv.Itoa(id)
	}
}

func typedLiteral(m molecule.Molecule) string {
	return m.Type().String() + ":" + strconv.Itoa(m.Value())
}

func vectorLiteral(v world.Coord) string {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, "|")
}

// Disassemble renders every instruction in art, in ascending linear
// address order, walking operand cells along dir (len(dir) ==
// art.Env.Dimensions()).
func Disassemble(art *artifact.ProgramArtifact, dir world.Coord) []Line {
	cells := buildCellIndex(art)
	addrs := coordToAddr(art)
	aliases := sortedAliasNames(art)
	dims := art.Env.Dimensions()

	lines := make([]Line, 0, len(art.SourceMap))
	for _, sl := range art.SourceMap {
		coord, ok := art.LinearAddressToCoord[sl.LinearAddress]
		if !ok {
			continue
		}
		text := disassembleOne(art, cells, addrs, aliases, coord, dir, dims)
		lines = append(lines, Line{
			Addr:  sl.LinearAddress,
			Coord: coord,
			Label: art.LabelAddressToName[sl.LinearAddress],
			Text:  text,
		})
	}
	return lines
}

// disassembleOne renders the single instruction whose opcode cell sits
// at coord. It returns a placeholder line for a coordinate that does
// not hold a recognized CODE opcode, rather than failing the whole
// listing over one bad cell.
func disassembleOne(art *artifact.ProgramArtifact, cells cellIndex, addrs map[string]int, aliases []string, coord, dir world.Coord, dims int) string {
	word, ok := cells[coord.String()]
	if !ok {
		return "; <empty>"
	}
	m := molecule.FromInt(word)
	if m.Type() != molecule.Code {
		return "; " + typedLiteral(m)
	}
	instr, ok := vm.GetInstructionSet().Lookup(vm.Opcode(m.Value()))
	if !ok {
		return "; unknown opcode " + strconv.Itoa(m.Value())
	}

	// By ISA convention (see DESIGN.md "Invented ISA conventions"), an
	// "I"-suffixed mnemonic's non-destination ArgCell operands are
	// immediate typed literals; every other ArgCell operand, in every
	// mnemonic, is a register id. An ArgVec operand is always immediate
	// or a label reference — this ISA never inlines a vector register.
	immediateForm := strings.HasSuffix(instr.Name, "I")
	// These "I" forms have no destination: their first operand is the
	// immediate itself.
	firstImmediate := map[string]bool{"PUSI": true, "ADPI": true, "POKI": true}

	operands := make([]string, 0, len(instr.ArgKinds))
	offset := 1
	for i, kind := range instr.ArgKinds {
		if kind == vm.ArgVec {
			vec := make(world.Coord, dims)
			for d := 0; d < dims; d++ {
				w := cells[advance(coord, dir, offset).String()]
				vec[d] = molecule.FromInt(w).Value()
				offset++
			}
			operands = append(operands, vectorOperandText(art, addrs, coord, vec))
			continue
		}
		w := cells[advance(coord, dir, offset).String()]
		offset++
		mm := molecule.FromInt(w)
		if immediateForm && (i > 0 || firstImmediate[instr.Name]) {
			operands = append(operands, typedLiteral(mm))
		} else {
			operands = append(operands, registerName(art, aliases, mm.Value()))
		}
	}

	if len(operands) == 0 {
		return instr.Name
	}
	return instr.Name + " " + strings.Join(operands, ", ")
}

// vectorOperandText resolves a relative vector back to the label it
// names a jump/call to, when one sits exactly at the absolute target;
// otherwise it renders the raw vector literal.
func vectorOperandText(art *artifact.ProgramArtifact, addrs map[string]int, instrCoord, rel world.Coord) string {
	target := make(world.Coord, len(instrCoord))
	for i := range instrCoord {
		target[i] = instrCoord[i] + rel[i]
	}
	if addr, ok := addrs[target.String()]; ok {
		if name, ok := art.LabelAddressToName[addr]; ok {
			return name
		}
	}
	return vectorLiteral(rel)
}

// Format renders lines as assembler-like source text, one instruction
// per output line with its label (if any) as a leading "NAME:" prefix.
func Format(lines []Line) string {
	var b strings.Builder
	for _, l := range lines {
		if l.Label != "" {
			b.WriteString(l.Label)
			b.WriteString(": ")
		}
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
