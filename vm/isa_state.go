package vm

import (
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/world"
)

// registerStateLocation wires SYNC, TURN/TURI/TURS, POS, DIFF, NRG,
// RAND*, FORK, and ADP*.
func registerStateLocation() {
	register("SYNC", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		o.SetActiveDP(o.IP)
		return noClaim(1)
	})

	turn := func(o *Organism, vec world.Coord) string {
		if !world.IsUnitVector(vec) {
			return "non-unit vector"
		}
		return ""
	}
	register("TURN", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := getReg(o, regID(args[0]))
		if !ok || !v.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		if errMsg := turn(o, v.Vector); errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		o.DV = v.Vector
		return noClaim(1)
	})
	register("TURI", []ArgKind{ArgVec}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		if errMsg := turn(o, args[0].vec); errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		o.DV = args[0].vec
		return noClaim(1)
	})
	register("TURS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := o.popDS()
		if !ok || !v.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		if errMsg := turn(o, v.Vector); errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		o.DV = v.Vector
		return noClaim(1)
	})

	register("POS", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		setReg(o, regID(args[0]), VectorValue(o.Pos()))
		return noClaim(1)
	})
	register("DIFF", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		diff := o.ActiveDP().Add(negate(o.IP))
		setReg(o, regID(args[0]), VectorValue(diff))
		return noClaim(1)
	})
	register("NRG", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		setReg(o, regID(args[0]), ScalarValue(molecule.New(molecule.Energy, int(o.ER))))
		return noClaim(1)
	})

	registerRand()
	registerFork()
	registerADP()
}

func registerRand() {
	register("RANDR", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		id := regID(args[0])
		dst, ok := getReg(o, id)
		bound, ok2 := getReg(o, regID(args[1]))
		if !ok || !ok2 || dst.IsVector || bound.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		n := rt.RNG.IntN(bound.Scalar.Value())
		setReg(o, id, ScalarValue(molecule.New(dst.Scalar.Type(), n)))
		return noClaim(1)
	})
	register("RANDI", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		id := regID(args[0])
		dst, ok := getReg(o, id)
		if !ok || dst.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		n := rt.RNG.IntN(args[1].mol.Value())
		setReg(o, id, ScalarValue(molecule.New(dst.Scalar.Type(), n)))
		return noClaim(1)
	})
	register("RANDS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		bound, ok := o.popDS()
		if !ok || bound.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		n := rt.RNG.IntN(bound.Scalar.Value())
		if !o.pushDS(ScalarValue(molecule.New(bound.Scalar.Type(), n))) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})
}

// ForkCost is the flat energy cost of a FORK, charged in addition to
// the requested child energy.
const ForkCost = 10

// registerFork wires the single, register-addressed FORK form (see
// DESIGN.md: the spec lists FORK as one bare mnemonic, not an R/I/S
// family, so only the register-addressed form is implemented).
func registerFork() {
	register("FORK", []ArgKind{ArgCell, ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		energyReg, ok := getReg(o, regID(args[0]))
		offsetReg, ok2 := getReg(o, regID(args[1]))
		dvReg, ok3 := getReg(o, regID(args[2]))
		if !ok || !ok2 || !ok3 || energyReg.IsVector || !offsetReg.IsVector || !dvReg.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		childEnergy := int64(energyReg.Scalar.Value())
		if childEnergy < 0 {
			o.Fail("invalid child energy")
			return noClaim(1)
		}
		totalCost := ForkCost + childEnergy
		if o.ER < totalCost {
			o.Fail("insufficient energy")
			return noClaim(1)
		}
		if !world.IsUnitVector(dvReg.Vector) {
			o.Fail("non-unit vector")
			return noClaim(1)
		}
		target := o.ActiveDP().Add(offsetReg.Vector)

		cl := &claim{organismID: o.ID, coord: target, commit: func() {
			if !rt.World.Get(target).IsEmpty() {
				o.Fail("target not empty")
				return
			}
			o.ER -= totalCost
			rt.spawnChild(o, target, dvReg.Vector, childEnergy)
		}}
		return outcome{claim: cl}
	})
}

func registerADP() {
	register("ADPR", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		idxReg, ok := getReg(o, regID(args[0]))
		if !ok || idxReg.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		if !setActiveDPIndex(o, idxReg.Scalar.Value()) {
			o.Fail("invalid DP index")
		}
		return noClaim(1)
	})
	register("ADPI", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		if !setActiveDPIndex(o, args[0].mol.Value()) {
			o.Fail("invalid DP index")
		}
		return noClaim(1)
	})
	register("ADPS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		idx, ok := o.popDS()
		if !ok || idx.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		if !setActiveDPIndex(o, idx.Scalar.Value()) {
			o.Fail("invalid DP index")
		}
		return noClaim(1)
	})
}

func setActiveDPIndex(o *Organism, idx int) bool {
	if idx < 0 || idx >= len(o.DPs) {
		return false
	}
	o.ActiveDPIndex = idx
	return true
}

// registerLocationStackOps wires the vector-typed counterparts of the
// data-stack ops: DUPL/SWPL/DRPL/ROTL operate on LS; PUSL/POPL move
// values between LS and LR; DPLS/SKLS move the active DP to/from LS;
// LSDS moves an LS value onto DS (tagged as a vector); DPLR/SKLR move
// the active DP to/from an LR slot; LRDR copies between LR slots via
// the DR register file; LRDS pushes an LR value onto DS; LSDR pops an
// LS value into a DR-family register. See DESIGN.md for the full
// naming-convention decision record — the spec names this family only
// as "vector-typed counterparts of the data-stack ops" without per-op
// semantics.
func registerLocationStackOps() {
	register("DUPL", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		if len(o.LS) == 0 {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		if !o.pushLS(o.LS[len(o.LS)-1]) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})
	register("SWPL", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		n := len(o.LS)
		if n < 2 {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		o.LS[n-1], o.LS[n-2] = o.LS[n-2], o.LS[n-1]
		return noClaim(1)
	})
	register("DRPL", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		if _, ok := o.popLS(); !ok {
			o.Fail("stack underflow")
		}
		return noClaim(1)
	})
	register("ROTL", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		n := len(o.LS)
		if n < 3 {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		o.LS[n-3], o.LS[n-2], o.LS[n-1] = o.LS[n-2], o.LS[n-1], o.LS[n-3]
		return noClaim(1)
	})
	register("PUSL", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := getReg(o, regID(args[0]))
		if !ok || !v.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		if !o.pushLS(v.Vector) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})
	register("POPL", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := o.popLS()
		if !ok {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		setReg(o, regID(args[0]), VectorValue(v))
		return noClaim(1)
	})
	register("DPLS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		if !o.pushLS(o.ActiveDP()) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})
	register("SKLS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := o.popLS()
		if !ok {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		o.SetActiveDP(v)
		return noClaim(1)
	})
	register("LSDS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := o.popLS()
		if !ok {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		if !o.pushDS(VectorValue(v)) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})
	register("DPLR", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		setReg(o, regID(args[0]), VectorValue(o.ActiveDP()))
		return noClaim(1)
	})
	register("SKLR", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := getReg(o, regID(args[0]))
		if !ok || !v.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		o.SetActiveDP(v.Vector)
		return noClaim(1)
	})
	register("LRDR", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := getReg(o, regID(args[1]))
		if !ok || !v.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		setReg(o, regID(args[0]), v)
		return noClaim(1)
	})
	register("LRDS", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := getReg(o, regID(args[0]))
		if !ok || !v.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		if !o.pushDS(v) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})
	register("LSDR", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := o.popLS()
		if !ok {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		setReg(o, regID(args[0]), VectorValue(v))
		return noClaim(1)
	})
}
