package asm

import (
	"github.com/evochora/evochora/artifact"
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/vm"
	"github.com/evochora/evochora/world"
)

// resolveOperand encodes one raw operand token for the given ArgKind,
// resolving registers, typed literals, vector literals, and (for
// ArgVec) bare label references into the relative vector from instrCoord
// to the label's coordinate.
func resolveOperand(kind vm.ArgKind, token string, dims int, instrCoord world.Coord, scopePath []string, sym *symtab) ([]uint32, string) {
	token = sym.expandDefine(token)

	if kind == vm.ArgCell {
		if isRegisterToken(token) {
			id, ok := parseRegisterName(token[1:], sym)
			if !ok {
				return nil, "unknown register " + token
			}
			return []uint32{molecule.New(molecule.Data, id).ToInt()}, ""
		}
		m, ok := parseTypedLiteral(token)
		if !ok {
			return nil, "invalid operand " + token
		}
		return []uint32{m.ToInt()}, ""
	}

	// ArgVec
	if isVectorLiteralToken(token) || (dims == 1 && isNumberToken(token)) {
		comps, ok := parseVectorLiteral(token)
		if !ok || len(comps) != dims {
			return nil, "invalid vector literal " + token
		}
		out := make([]uint32, dims)
		for i, v := range comps {
			out[i] = molecule.New(molecule.Data, v).ToInt()
		}
		return out, ""
	}
	target, ok := sym.resolveLabel(scopePath, token)
	if !ok {
		return nil, "undefined label " + token
	}
	out := make([]uint32, dims)
	for i := 0; i < dims; i++ {
		out[i] = molecule.New(molecule.Data, target[i]-instrCoord[i]).ToInt()
	}
	return out, ""
}

// layOutCells writes stmt's opcode and operand cells at 1-cell steps
// along dir starting at stmt.coord, matching Runtime.fetch's cursor
// walk exactly: one step per ArgCell, dims steps per ArgVec.
func layOutCells(stmt instrStmt, dims int, sym *symtab, diags *Diagnostics) []artifact.CellValue {
	cells := []artifact.CellValue{
		{Coord: stmt.coord.Clone(), Word: molecule.New(molecule.Code, int(stmt.instr.Opcode)).ToInt()},
	}
	offset := 1
	for i, kind := range stmt.instr.ArgKinds {
		words, errMsg := resolveOperand(kind, stmt.argTokens[i], dims, stmt.coord, stmt.scopePath, sym)
		if errMsg != "" {
			*diags = append(*diags, Diagnostic{Severity: SeverityError, Code: "bad-operand",
				Message: errMsg, File: stmt.file, Line: stmt.line})
			continue
		}
		for _, w := range words {
			cells = append(cells, artifact.CellValue{Coord: advance(stmt.coord, stmt.dir, offset), Word: w})
			offset++
		}
	}
	return cells
}

// inShape reports whether c names a cell within shape, per spec §3.4's
// "every coord in machine_code_layout ∪ initial_world_objects lies
// within the env shape" invariant.
func inShape(c world.Coord, shape []int) bool {
	if len(c) != len(shape) {
		return false
	}
	for i, v := range c {
		if v < 0 || v >= shape[i] {
			return false
		}
	}
	return true
}

// checkCellPlacement validates one emitted cell against the §3.4
// invariants: it must lie within env.WorldShape, and it must not
// collide with a coord already claimed by another cell (machine code
// or initial world object). seen is shared across every call for a
// single compilation so overlap is caught regardless of which set
// either cell came from.
func checkCellPlacement(cv artifact.CellValue, shape []int, file string, line int, seen map[string]world.Coord, diags *Diagnostics) {
	if !inShape(cv.Coord, shape) {
		*diags = append(*diags, Diagnostic{Severity: SeverityError, Code: "placement-out-of-bounds",
			Message: "placement at " + cv.Coord.String() + " lies outside the world shape", File: file, Line: line})
		return
	}
	key := cv.Coord.String()
	if _, dup := seen[key]; dup {
		*diags = append(*diags, Diagnostic{Severity: SeverityError, Code: "duplicate-placement",
			Message: "placement at " + cv.Coord.String() + " collides with another cell", File: file, Line: line})
		return
	}
	seen[key] = cv.Coord
}

// runCodegen resolves every instrStmt/placeStmt against the symbol
// table and assembles the final ProgramArtifact. Sources and Env are
// supplied by the caller; ProgramID is computed last.
func runCodegen(lr *layoutResult, dims int, sources []artifact.SourceFile, env artifact.EnvironmentProperties) (*artifact.ProgramArtifact, Diagnostics) {
	var diags Diagnostics
	seen := map[string]world.Coord{}

	art := &artifact.ProgramArtifact{
		Sources:              sources,
		LabelAddressToName:   map[int]string{},
		RegisterAliasMap:     map[string]int{},
		ProcNameToParamNames: map[string][]string{},
		CallSiteBindings:     map[int]artifact.CallSiteBinding{},
		LinearAddressToCoord: map[int]world.Coord{},
		Env:                  env,
	}

	for name, id := range lr.sym.regAliases {
		art.RegisterAliasMap[name] = id
	}
	for name, p := range lr.sym.procs {
		art.ProcNameToParamNames[name] = p.params
	}

	for _, stmt := range lr.instrs {
		cells := layOutCells(stmt, dims, lr.sym, &diags)
		for _, cv := range cells {
			checkCellPlacement(cv, env.WorldShape, stmt.file, stmt.line, seen, &diags)
		}
		art.MachineCodeLayout = append(art.MachineCodeLayout, cells...)
		art.LinearAddressToCoord[stmt.addr] = stmt.coord
		art.SourceMap = append(art.SourceMap, artifact.SourceLine{LinearAddress: stmt.addr, File: stmt.file, Line: stmt.line})

		if stmt.instr.Name == "CALL" && stmt.withTokens != nil {
			regs := make([]int, 0, len(stmt.withTokens))
			ok := true
			for _, tok := range stmt.withTokens {
				tok = lr.sym.expandDefine(tok)
				if !isRegisterToken(tok) {
					diags = append(diags, Diagnostic{Severity: SeverityError, Code: "bad-with-operand",
						Message: ".WITH operand must be a register, got " + tok, File: stmt.file, Line: stmt.line})
					ok = false
					break
				}
				id, regOk := parseRegisterName(tok[1:], lr.sym)
				if !regOk {
					diags = append(diags, Diagnostic{Severity: SeverityError, Code: "bad-with-operand",
						Message: "unknown register " + tok, File: stmt.file, Line: stmt.line})
					ok = false
					break
				}
				regs = append(regs, id)
			}
			if ok {
				procName := stmt.withTarget
				if p, known := lr.sym.procs[procName]; known && len(p.params) != len(regs) {
					diags = append(diags, Diagnostic{Severity: SeverityError, Code: "bad-with-arity",
						Message: "CALL .WITH supplies " + itoa(len(regs)) + " registers, proc " + procName + " expects " + itoa(len(p.params)),
						File: stmt.file, Line: stmt.line})
				}
				art.CallSiteBindings[stmt.addr] = artifact.CallSiteBinding{ProcName: procName, CallerRegs: regs}
			}
		}
	}

	for _, ps := range lr.places {
		cv := artifact.CellValue{Coord: ps.coord, Word: ps.value.ToInt()}
		checkCellPlacement(cv, env.WorldShape, ps.file, ps.line, seen, &diags)
		art.InitialWorldObjects = append(art.InitialWorldObjects, cv)
	}

	for name, coord := range lr.sym.labels {
		for _, stmt := range lr.instrs {
			if stmt.coord.Equal(coord) {
				// Several labels can share a coord; keep the lexically
				// smallest so the result does not depend on map order.
				if existing, ok := art.LabelAddressToName[stmt.addr]; !ok || name < existing {
					art.LabelAddressToName[stmt.addr] = name
				}
				break
			}
		}
	}

	for _, req := range lr.requires {
		if _, ok := lr.sym.resolveLabel(nil, req.name); ok {
			continue
		}
		if _, ok := lr.sym.procs[req.name]; ok {
			continue
		}
		diags = append(diags, Diagnostic{Severity: SeverityError, Code: "unsatisfied-require",
			Message: ".REQUIRE " + req.name + " could not be resolved", File: req.file, Line: req.line})
	}

	if diags.HasErrors() {
		return nil, diags
	}
	art.ProgramID = artifact.ComputeProgramID(art)
	return art, diags
}
