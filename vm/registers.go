// Package vm implements the per-organism virtual machine: register file,
// instruction set, and the deterministic tick scheduler that runs every
// living organism against a shared world.Grid.
package vm

import (
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/world"
)

// Register id space, per the partitioning sketched in spec design notes:
// DR/PR/FPR share the scalar-or-vector representation, LR is vector-only.
const (
	DRBase  = 0
	DRCount = 8
	PRBase  = DRBase + DRCount // 8
	PRCount = 2
	FPRBase = PRBase + PRCount // 10
	FPRCount = 8
	LRBase  = FPRBase + FPRCount // 18
	LRCount = 4

	RegisterCount = LRBase + LRCount
)

// RegValue is the heterogeneous value every DR/PR/FPR slot (and the data
// stack) holds: either a scalar Molecule or an n-D vector. LR slots and
// the location stack only ever hold the vector variant.
type RegValue struct {
	IsVector bool
	Scalar   molecule.Molecule
	Vector   world.Coord
}

// ScalarValue builds a scalar RegValue.
func ScalarValue(m molecule.Molecule) RegValue { return RegValue{Scalar: m} }

// VectorValue builds a vector RegValue.
func VectorValue(v world.Coord) RegValue { return RegValue{IsVector: true, Vector: v} }

// Registers holds one organism's full register file.
type Registers struct {
	DR  [DRCount]RegValue
	PR  [PRCount]RegValue
	FPR [FPRCount]RegValue
	LR  [LRCount]world.Coord
}

// validID reports whether id names a register in this file.
func validID(id int) bool { return id >= 0 && id < RegisterCount }

// Get returns the value at global register id id, and whether id was
// valid. LR registers are returned as a vector RegValue.
func (r *Registers) Get(id int) (RegValue, bool) {
	switch {
	case id >= DRBase && id < DRBase+DRCount:
		return r.DR[id-DRBase], true
	case id >= PRBase && id < PRBase+PRCount:
		return r.PR[id-PRBase], true
	case id >= FPRBase && id < FPRBase+FPRCount:
		return r.FPR[id-FPRBase], true
	case id >= LRBase && id < LRBase+LRCount:
		return VectorValue(r.LR[id-LRBase]), true
	default:
		return RegValue{}, false
	}
}

// Set writes v at global register id id. Writing a non-vector RegValue
// to an LR slot fails (LR is vector-only); any other register id
// accepts both scalar and vector values. Returns false for an invalid
// id or an LR/non-vector mismatch — both are "invalid register" per
// spec's CALL/RET failure conditions.
func (r *Registers) Set(id int, v RegValue) bool {
	switch {
	case id >= DRBase && id < DRBase+DRCount:
		r.DR[id-DRBase] = v
		return true
	case id >= PRBase && id < PRBase+PRCount:
		r.PR[id-PRBase] = v
		return true
	case id >= FPRBase && id < FPRBase+FPRCount:
		r.FPR[id-FPRBase] = v
		return true
	case id >= LRBase && id < LRBase+LRCount:
		if !v.IsVector {
			return false
		}
		r.LR[id-LRBase] = v.Vector
		return true
	default:
		return false
	}
}

// IsFPR reports whether id names a formal-parameter register, and its
// 0-based slot index within FPR if so.
func IsFPR(id int) (slot int, ok bool) {
	if id >= FPRBase && id < FPRBase+FPRCount {
		return id - FPRBase, true
	}
	return 0, false
}
