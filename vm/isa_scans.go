package vm

import (
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/world"
)

// registerScans wires SPN* (passable-neighbor bitmask) and SNT*
// (type-matching-neighbor bitmask). Both require dims <= ValueBits/2 so
// every axis fits in two mask bits (bit 2d = +axis passable, bit 2d+1 =
// -axis passable), per spec §4.3.
func registerScans() {
	register("SPNR", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		mask, errMsg := rt.passableMask(o)
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, regID(args[0]), ScalarValue(molecule.New(molecule.Data, mask)))
		return noClaim(1)
	})
	register("SPNS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		mask, errMsg := rt.passableMask(o)
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		if !o.pushDS(ScalarValue(molecule.New(molecule.Data, mask))) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})

	register("SNTR", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		typeReg, ok := getReg(o, regID(args[1]))
		if !ok || typeReg.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		mask, errMsg := rt.typeMatchMask(o, typeReg.Scalar.Type())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, regID(args[0]), ScalarValue(molecule.New(molecule.Data, mask)))
		return noClaim(1)
	})
	register("SNTI", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		mask, errMsg := rt.typeMatchMask(o, args[1].mol.Type())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, regID(args[0]), ScalarValue(molecule.New(molecule.Data, mask)))
		return noClaim(1)
	})
	register("SNTS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		typed, ok := o.popDS()
		if !ok || typed.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		mask, errMsg := rt.typeMatchMask(o, typed.Scalar.Type())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		if !o.pushDS(ScalarValue(molecule.New(molecule.Data, mask))) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})
}

func (rt *Runtime) dimsCheckedForScan() (int, string) {
	dims := rt.Dims()
	if dims > molecule.MaxDimensions {
		return 0, "dimension limit exceeded"
	}
	return dims, ""
}

func (rt *Runtime) passableMask(o *Organism) (int, string) {
	dims, errMsg := rt.dimsCheckedForScan()
	if errMsg != "" {
		return 0, errMsg
	}
	mask := 0
	units := world.UnitVectors(dims)
	for i, u := range units {
		c := o.ActiveDP().Add(u)
		owner := rt.World.GetOwner(c)
		empty := rt.World.Get(c).IsEmpty()
		if empty || world.Accessible(owner, o.ID, o.ParentID) {
			mask |= 1 << uint(i)
		}
	}
	return mask, ""
}

func (rt *Runtime) typeMatchMask(o *Organism, want molecule.Type) (int, string) {
	dims, errMsg := rt.dimsCheckedForScan()
	if errMsg != "" {
		return 0, errMsg
	}
	mask := 0
	units := world.UnitVectors(dims)
	for i, u := range units {
		c := o.ActiveDP().Add(u)
		if rt.World.Get(c).Type() == want {
			mask |= 1 << uint(i)
		}
	}
	return mask, ""
}

// registerVectorComponentOps wires VGT*/VST*/VBLD/VBLS/B2V*/V2B*/RTR*.
func registerVectorComponentOps() {
	register("VGTR", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		id := regID(args[0])
		dst, ok := getReg(o, id)
		idxReg, ok2 := getReg(o, regID(args[1]))
		if !ok || !ok2 || !dst.IsVector || idxReg.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		v, errMsg := vectorComponent(dst.Vector, idxReg.Scalar.Value())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, id, ScalarValue(molecule.New(molecule.Data, v)))
		return noClaim(1)
	})
	register("VGTI", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		id := regID(args[0])
		dst, ok := getReg(o, id)
		if !ok || !dst.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		v, errMsg := vectorComponent(dst.Vector, args[1].mol.Value())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, id, ScalarValue(molecule.New(molecule.Data, v)))
		return noClaim(1)
	})
	register("VGTS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		idx, ok1 := o.popDS()
		vecVal, ok2 := o.popDS()
		if !ok1 || !ok2 || idx.IsVector || !vecVal.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		v, errMsg := vectorComponent(vecVal.Vector, idx.Scalar.Value())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		if !o.pushDS(ScalarValue(molecule.New(molecule.Data, v))) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})

	register("VSTR", []ArgKind{ArgCell, ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		id := regID(args[0])
		dst, ok := getReg(o, id)
		idxReg, ok2 := getReg(o, regID(args[1]))
		valReg, ok3 := getReg(o, regID(args[2]))
		if !ok || !ok2 || !ok3 || !dst.IsVector || idxReg.IsVector || valReg.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		updated, errMsg := vectorWithComponent(dst.Vector, idxReg.Scalar.Value(), valReg.Scalar.Value())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, id, VectorValue(updated))
		return noClaim(1)
	})
	register("VSTI", []ArgKind{ArgCell, ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		id := regID(args[0])
		dst, ok := getReg(o, id)
		if !ok || !dst.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		updated, errMsg := vectorWithComponent(dst.Vector, args[1].mol.Value(), args[2].mol.Value())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, id, VectorValue(updated))
		return noClaim(1)
	})
	register("VSTS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		val, ok1 := o.popDS()
		idx, ok2 := o.popDS()
		vecVal, ok3 := o.popDS()
		if !ok1 || !ok2 || !ok3 || val.IsVector || idx.IsVector || !vecVal.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		updated, errMsg := vectorWithComponent(vecVal.Vector, idx.Scalar.Value(), val.Scalar.Value())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		if !o.pushDS(VectorValue(updated)) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})

	register("VBLD", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, errMsg := popVectorFromStack(o, rt.Dims())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, regID(args[0]), VectorValue(v))
		return noClaim(1)
	})
	register("VBLS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, errMsg := popVectorFromStack(o, rt.Dims())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		if !o.pushDS(VectorValue(v)) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})

	register("B2VR", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		id := regID(args[0])
		src, ok := getReg(o, id)
		if !ok || src.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		v, errMsg := maskToUnitVector(src.Scalar.Value(), rt.Dims())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, id, VectorValue(v))
		return noClaim(1)
	})
	register("B2VI", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, errMsg := maskToUnitVector(args[1].mol.Value(), rt.Dims())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, regID(args[0]), VectorValue(v))
		return noClaim(1)
	})
	register("B2VS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		mask, ok := o.popDS()
		if !ok || mask.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		v, errMsg := maskToUnitVector(mask.Scalar.Value(), rt.Dims())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		if !o.pushDS(VectorValue(v)) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})

	register("V2BR", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		id := regID(args[0])
		src, ok := getReg(o, id)
		if !ok || !src.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		mask, errMsg := unitVectorToMask(src.Vector)
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, id, ScalarValue(molecule.New(molecule.Data, mask)))
		return noClaim(1)
	})
	register("V2BS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := o.popDS()
		if !ok || !v.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		mask, errMsg := unitVectorToMask(v.Vector)
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		if !o.pushDS(ScalarValue(molecule.New(molecule.Data, mask))) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})

	register("RTRR", []ArgKind{ArgCell, ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		id := regID(args[0])
		dst, ok := getReg(o, id)
		iReg, ok2 := getReg(o, regID(args[1]))
		jReg, ok3 := getReg(o, regID(args[2]))
		if !ok || !ok2 || !ok3 || !dst.IsVector || iReg.IsVector || jReg.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		v, errMsg := rotate90(dst.Vector, iReg.Scalar.Value(), jReg.Scalar.Value())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, id, VectorValue(v))
		return noClaim(1)
	})
	register("RTRI", []ArgKind{ArgCell, ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		id := regID(args[0])
		dst, ok := getReg(o, id)
		if !ok || !dst.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		v, errMsg := rotate90(dst.Vector, args[1].mol.Value(), args[2].mol.Value())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		setReg(o, id, VectorValue(v))
		return noClaim(1)
	})
	register("RTRS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		j, ok1 := o.popDS()
		i, ok2 := o.popDS()
		vecVal, ok3 := o.popDS()
		if !ok1 || !ok2 || !ok3 || j.IsVector || i.IsVector || !vecVal.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		v, errMsg := rotate90(vecVal.Vector, i.Scalar.Value(), j.Scalar.Value())
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		if !o.pushDS(VectorValue(v)) {
			o.Fail("stack overflow")
		}
		return noClaim(1)
	})
}

func vectorComponent(v world.Coord, idx int) (int, string) {
	if idx < 0 || idx >= len(v) {
		return 0, "axis out of range"
	}
	return v[idx], ""
}

func vectorWithComponent(v world.Coord, idx, val int) (world.Coord, string) {
	if idx < 0 || idx >= len(v) {
		return nil, "axis out of range"
	}
	out := v.Clone()
	out[idx] = val
	return out, ""
}

func popVectorFromStack(o *Organism, dims int) (world.Coord, string) {
	out := make(world.Coord, dims)
	for i := dims - 1; i >= 0; i-- {
		v, ok := o.popDS()
		if !ok || v.IsVector {
			return nil, "stack underflow"
		}
		out[i] = v.Scalar.Value()
	}
	return out, ""
}

func maskToUnitVector(mask, dims int) (world.Coord, string) {
	units := world.UnitVectors(dims)
	count := 0
	var found world.Coord
	for i, u := range units {
		if mask&(1<<uint(i)) != 0 {
			count++
			found = u
		}
	}
	if count != 1 {
		return nil, "mask must have exactly one bit set"
	}
	return found, ""
}

func unitVectorToMask(v world.Coord) (int, string) {
	if !world.IsUnitVector(v) {
		return 0, "vector is not a unit vector"
	}
	units := world.UnitVectors(len(v))
	for i, u := range units {
		if u.Equal(v) {
			return 1 << uint(i), ""
		}
	}
	return 0, "vector is not a unit vector"
}

func rotate90(v world.Coord, i, j int) (world.Coord, string) {
	if i == j {
		return nil, "axes must differ"
	}
	if i < 0 || i >= len(v) || j < 0 || j >= len(v) {
		return nil, "axis out of range"
	}
	out := v.Clone()
	out[i] = v[j]
	out[j] = -v[i]
	return out, ""
}
