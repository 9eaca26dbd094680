package vm

// registerControlFlow wires JMPI/JMPR/JMPS, CALL, and RET.
func registerControlFlow() {
	jump := func(rt *Runtime, o *Organism, vec []int) {
		o.IP = rt.wrapIP(stepCoordVec(o.IP, vec))
		o.SkipIPAdvance = true
	}

	register("JMPI", []ArgKind{ArgVec}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		jump(rt, o, args[0].vec)
		return noClaim(1)
	})
	register("JMPR", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := getReg(o, regID(args[0]))
		if !ok || !v.IsVector {
			o.Fail("invalid operand")
			return noClaim(1)
		}
		jump(rt, o, v.Vector)
		return noClaim(1)
	})
	register("JMPS", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		v, ok := o.popDS()
		if !ok || !v.IsVector {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		jump(rt, o, v.Vector)
		return noClaim(1)
	})

	register("CALL", []ArgKind{ArgVec}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		ownArity := rt.Dims() // CALL's single ArgVec occupies Dims cells
		target := rt.wrapIP(stepCoordVec(o.IP, args[0].vec))

		binding, hasBinding := rt.lookupCallBinding(o)

		if len(o.CS) >= o.maxDepth() {
			o.Fail("call stack overflow")
			return noClaim(1)
		}

		frame := CallFrame{
			ReturnIP: rt.wrapIP(stepCoord(o.IP, o.DV, 1+ownArity)),
			SavedPR:  o.Regs.PR,
			SavedFPR: o.Regs.FPR,
		}
		if hasBinding {
			frame.ProcName = binding.ProcName
			frame.FPRBindings = make(map[int]int, len(binding.CallerRegs))
			for i, callerReg := range binding.CallerRegs {
				v, ok := getReg(o, callerReg)
				if !ok {
					o.Fail("invalid register")
					return noClaim(1)
				}
				frame.FPRBindings[i] = callerReg
				o.Regs.FPR[i] = v
			}
		}
		o.pushCS(frame)
		o.IP = target
		o.SkipIPAdvance = true
		return noClaim(1)
	})

	register("RET", nil, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		frame, ok := o.popCS()
		if !ok {
			o.Fail("call stack underflow")
			return noClaim(1)
		}
		for slot, callerReg := range frame.FPRBindings {
			setReg(o, callerReg, o.Regs.FPR[slot])
		}
		o.Regs.PR = frame.SavedPR
		o.IP = frame.ReturnIP
		o.SkipIPAdvance = true
		return noClaim(1)
	})
}

func stepCoordVec(c []int, v []int) []int {
	out := make([]int, len(c))
	copy(out, c)
	for i, d := range v {
		out[i] += d
	}
	return out
}

// compareOp evaluates a conditional test between a (dst) and b
// (operand), returning the boolean test result or a failure reason.
type compareOp func(a, b RegValue) (bool, string)

func eqTest(a, b RegValue) (bool, string) {
	if a.IsVector != b.IsVector {
		return false, "operand shape mismatch"
	}
	if a.IsVector {
		if len(a.Vector) != len(b.Vector) {
			return false, "dimension mismatch"
		}
		return a.Vector.Equal(b.Vector), ""
	}
	return a.Scalar.Value() == b.Scalar.Value(), ""
}

func ltTest(a, b RegValue) (bool, string) {
	if a.IsVector || b.IsVector {
		return false, "vector operand not allowed"
	}
	return a.Scalar.Value() < b.Scalar.Value(), ""
}

func gtTest(a, b RegValue) (bool, string) {
	if a.IsVector || b.IsVector {
		return false, "vector operand not allowed"
	}
	return a.Scalar.Value() > b.Scalar.Value(), ""
}

func typeTest(a, b RegValue) (bool, string) {
	if a.IsVector || b.IsVector {
		return false, "vector operand not allowed"
	}
	return a.Scalar.Type() == b.Scalar.Type(), ""
}

func maskTest(a, b RegValue) (bool, string) {
	if a.IsVector || b.IsVector {
		return false, "vector operand not allowed"
	}
	return a.Scalar.Value()&b.Scalar.Value() != 0, ""
}

// registerConditionals wires IF*/LT*/GT*/IFT*/IFM* and their negated
// forms IN*/LET*/GET*/INT*/INM*, each with R/I/S operand addressing.
func registerConditionals() {
	families := []struct {
		pos, neg string
		test     compareOp
	}{
		{"IF", "IN", eqTest},
		{"LT", "LET", ltTest},
		{"GT", "GET", gtTest},
		{"IFT", "INT", typeTest},
		{"IFM", "INM", maskTest},
	}
	for _, f := range families {
		registerConditional(f.pos, f.test, false)
		registerConditional(f.neg, f.test, true)
	}
}

func registerConditional(root string, test compareOp, negate bool) {
	eval := func(a, b RegValue) (bool, string) {
		pass, errMsg := test(a, b)
		if errMsg != "" {
			return false, errMsg
		}
		if negate {
			pass = !pass
		}
		return pass, ""
	}

	register(root+"R", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		dst, ok := getReg(o, regID(args[0]))
		operand, ok2 := getReg(o, regID(args[1]))
		if !ok || !ok2 {
			o.Fail("invalid register")
			return noClaim(1)
		}
		pass, errMsg := eval(dst, operand)
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		applyConditionalSkip(rt, o, pass, 2)
		return noClaim(1)
	})
	register(root+"I", []ArgKind{ArgCell, ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		dst, ok := getReg(o, regID(args[0]))
		if !ok {
			o.Fail("invalid register")
			return noClaim(1)
		}
		pass, errMsg := eval(dst, ScalarValue(args[1].mol))
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		applyConditionalSkip(rt, o, pass, 2)
		return noClaim(1)
	})
	register(root+"S", []ArgKind{ArgCell}, func(rt *Runtime, o *Organism, args []decodedArg) outcome {
		dst, ok := getReg(o, regID(args[0]))
		if !ok {
			o.Fail("invalid register")
			return noClaim(1)
		}
		operand, ok2 := o.popDS()
		if !ok2 {
			o.Fail("stack underflow")
			return noClaim(1)
		}
		pass, errMsg := eval(dst, operand)
		if errMsg != "" {
			o.Fail(errMsg)
			return noClaim(1)
		}
		applyConditionalSkip(rt, o, pass, 1)
		return noClaim(1)
	})
}

// applyConditionalSkip implements spec §4.3's skip semantics: when the
// (possibly negated) test is false, IP advances past this instruction
// AND the one immediately following it.
func applyConditionalSkip(rt *Runtime, o *Organism, pass bool, ownArity int) {
	if pass {
		return
	}
	ownLen := 1 + ownArity
	afterOwn := rt.wrapIP(stepCoord(o.IP, o.DV, ownLen))
	nextLen := rt.instrLenAt(afterOwn)
	o.IP = rt.wrapIP(stepCoord(o.IP, o.DV, ownLen+nextLen))
	o.SkipIPAdvance = true
}
