package vm

import (
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/world"
)

// vectorOperandFromReg, vectorOperandImmediate and vectorOperandFromStack
// decode the vector argument of a PEEK/SCAN/POKE/SEEK family instruction
// in register (1 cell), immediate (Dims cells), or stack (popped)
// addressing, validating it is a unit vector.
func vectorOperandFromReg(o *Organism, reg int) (world.Coord, string) {
	v, ok := getReg(o, reg)
	if !ok || !v.IsVector {
		return nil, "invalid operand"
	}
	if !world.IsUnitVector(v.Vector) {
		return nil, "non-unit vector"
	}
	return v.Vector, ""
}

func vectorOperandImmediate(vec world.Coord) (world.Coord, string) {
	if !world.IsUnitVector(vec) {
		return nil, "non-unit vector"
	}
	return vec, ""
}

func vectorOperandFromStack(o *Organism) (world.Coord, string) {
	v, ok := o.popDS()
	if !ok || !v.IsVector {
		return nil, "stack underflow"
	}
	if !world.IsUnitVector(v.Vector) {
		return nil, "non-unit vector"
	}
	return v.Vector, ""
}

// registerWorldInteraction wires PEEK/PEKI/PEKS, SCAN/SCNI/SCNS,
// POKE/POKI/POKS, SEEK/SEKI/SEKS. The bare root names the
// register-addressed form, matching the naming the spec itself uses
// (PEEK not PEEKR, SEEK not SEEKR).
func registerWorldInteraction() {
	registerPeek()
	registerScan()
	registerPoke()
	registerSeek()
}

func registerPeek() {
	do := func(rt *Runtime, o *Organism, dstID int, vec world.Coord, errMsg string) outcome {
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		target := o.ActiveDP().Add(vec)
		m := rt.World.Get(target)
		owner := rt.World.GetOwner(target)
		preCost := peekPreCost(m, owner, o.ID, o.ParentID)
		cl := &claim{organismID: o.ID, coord: target, commit: func() {
			rt.World.Clear(target)
			rt.applyPeekResult(o, dstID, m)
		}}
		return outcome{baseCost: 1, preCost: preCost, claim: cl}
	}
	register("PEEK", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandFromReg(o, regID(args[1]))
		return do(rt, o, regID(args[0]), vec, errMsg)
	})
	register("PEKI", []ArgKind{ArgCell, ArgVec}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandImmediate(args[1].vec)
		return do(rt, o, regID(args[0]), vec, errMsg)
	})
	register("PEKS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandFromStack(o)
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		target := o.ActiveDP().Add(vec)
		m := rt.World.Get(target)
		owner := rt.World.GetOwner(target)
		preCost := peekPreCost(m, owner, o.ID, o.ParentID)
		cl := &claim{organismID: o.ID, coord: target, commit: func() {
			rt.World.Clear(target)
			rt.creditEnergyIfNeeded(o, m)
			if !o.pushDS(ScalarValue(m)) {
				o.Fail("stack overflow")
			}
		}}
		return outcome{baseCost: 1, preCost: preCost, claim: cl}
	})
}

func peekPreCost(m molecule.Molecule, owner, actorID, parentID int) int {
	switch m.Type() {
	case molecule.Energy:
		return 0
	case molecule.Structure:
		if !world.Accessible(owner, actorID, parentID) {
			v := m.Value()
			if v < 0 {
				v = -v
			}
			return v
		}
		return 0
	case molecule.Code, molecule.Data:
		if owner == actorID {
			return 0
		}
		return 5
	default:
		return 0
	}
}

func (rt *Runtime) applyPeekResult(o *Organism, dstID int, m molecule.Molecule) {
	rt.creditEnergyIfNeeded(o, m)
	setReg(o, dstID, ScalarValue(m))
}

// creditEnergyIfNeeded implements SPEC_FULL.md §E.3: crediting an
// ENERGY molecule's value into ER clamps at MaxEnergy rather than
// overflowing.
func (rt *Runtime) creditEnergyIfNeeded(o *Organism, m molecule.Molecule) {
	if m.Type() != molecule.Energy {
		return
	}
	o.ER += int64(m.Value())
	if o.ER > rt.MaxEnergy {
		o.ER = rt.MaxEnergy
	}
}

func registerScan() {
	do := func(o *Organism, dstID int, target world.Coord, rt *Runtime, errMsg string) outcome {
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		m := rt.World.Get(target)
		setReg(o, dstID, ScalarValue(m))
		return noClaim(1)
	}
	register("SCAN", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandFromReg(o, regID(args[1]))
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		return do(o, regID(args[0]), o.ActiveDP().Add(vec), rt, "")
	})
	register("SCNI", []ArgKind{ArgCell, ArgVec}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandImmediate(args[1].vec)
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		return do(o, regID(args[0]), o.ActiveDP().Add(vec), rt, "")
	})
	register("SCNS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandFromStack(o)
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		m := rt.World.Get(o.ActiveDP().Add(vec))
		if !o.pushDS(ScalarValue(m)) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})
}

func pokePreCost(m molecule.Molecule) int {
	switch m.Type() {
	case molecule.Energy, molecule.Structure:
		v := m.Value()
		if v < 0 {
			v = -v
		}
		return v
	case molecule.Code, molecule.Data:
		return 5
	default:
		return 0
	}
}

func registerPoke() {
	plan := func(rt *Runtime, o *Organism, val molecule.Molecule, vec world.Coord, errMsg string) outcome {
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		target := o.ActiveDP().Add(vec)
		preCost := pokePreCost(val)
		cl := &claim{organismID: o.ID, coord: target, commit: func() {
			if !rt.World.Get(target).IsEmpty() {
				o.Fail("target occupied")
				return
			}
			rt.World.Set(target, val, o.ID)
		}}
		return outcome{baseCost: 1, preCost: preCost, claim: cl}
	}
	register("POKE", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		val, ok := getReg(o, regID(args[0]))
		vec, errMsg := vectorOperandFromReg(o, regID(args[1]))
		if !ok || val.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		return plan(rt, o, val.Scalar, vec, errMsg)
	})
	register("POKI", []ArgKind{ArgCell, ArgVec}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandImmediate(args[1].vec)
		return plan(rt, o, args[0].mol, vec, errMsg)
	})
	register("POKS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandFromStack(o)
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		val, ok := o.popDS()
		if !ok || val.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		return plan(rt, o, val.Scalar, vec, "")
	})
}

func registerSeek() {
	do := func(rt *Runtime, o *Organism, vec world.Coord, errMsg string) outcome {
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		target := o.ActiveDP().Add(vec)
		owner := rt.World.GetOwner(target)
		empty := rt.World.Get(target).IsEmpty()
		if !empty && !world.Accessible(owner, o.ID, o.ParentID) {
			o.Fail("inaccessible cell")
			return noClaim(1)
		}
		o.SetActiveDP(target)
		return noClaim(1)
	}
	register("SEEK", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandFromReg(o, regID(args[0]))
		return do(rt, o, vec, errMsg)
	})
	register("SEKI", []ArgKind{ArgVec}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandImmediate(args[0].vec)
		return do(rt, o, vec, errMsg)
	})
	register("SEKS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		vec, errMsg := vectorOperandFromStack(o)
		return do(rt, o, vec, errMsg)
	})
}
