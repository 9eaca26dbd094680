package vm

import "github.com/evochora/evochora/world"

// CallFrame is pushed by CALL and popped by RET; it carries everything
// needed to restore caller state and copy results back out.
type CallFrame struct {
	ReturnIP    world.Coord
	SavedPR     [PRCount]RegValue
	SavedFPR    [FPRCount]RegValue
	FPRBindings map[int]int // fpr slot -> caller's global register id
	ProcName    string
}

// DefaultStackDepth bounds DS/LS/CS when a Runtime isn't configured with
// an explicit depth.
const DefaultStackDepth = 64

// Organism is one running program instance: its position and direction
// in the world, its full register file, its three stacks, its energy
// balance, and the bookkeeping flags the tick loop needs.
type Organism struct {
	ID       int
	ParentID int
	BirthTick int
	ProgramID string

	IP            world.Coord
	DV            world.Coord
	DPs           []world.Coord
	ActiveDPIndex int
	InitialIP     world.Coord

	ER int64

	Regs Registers
	DS   []RegValue
	LS   []world.Coord
	CS   []CallFrame

	Dead              bool
	InstructionFailed bool
	FailureReason     string
	SkipIPAdvance     bool
	IPBeforeFetch     world.Coord
	DVBeforeFetch     world.Coord

	MaxStackDepth int
}

// ActiveDP returns the organism's currently selected data pointer.
func (o *Organism) ActiveDP() world.Coord {
	if o.ActiveDPIndex < 0 || o.ActiveDPIndex >= len(o.DPs) {
		return o.IP
	}
	return o.DPs[o.ActiveDPIndex]
}

// SetActiveDP overwrites the currently selected data pointer.
func (o *Organism) SetActiveDP(c world.Coord) {
	if o.ActiveDPIndex >= 0 && o.ActiveDPIndex < len(o.DPs) {
		o.DPs[o.ActiveDPIndex] = c
	}
}

// Pos returns the organism's position relative to its birth coordinate,
// per spec's `POS` operation: `ip - initial_ip`.
func (o *Organism) Pos() world.Coord { return o.IP.Add(negate(o.InitialIP)) }

func negate(c world.Coord) world.Coord {
	out := make(world.Coord, len(c))
	for i, v := range c {
		out[i] = -v
	}
	return out
}

// Fail marks the current instruction as failed for reason, matching
// spec's RuntimeInstructionFailure handling: the organism is not
// killed by this alone (only er<=0 at end of tick kills it).
func (o *Organism) Fail(reason string) {
	o.InstructionFailed = true
	o.FailureReason = reason
}

func (o *Organism) pushDS(v RegValue) bool {
	if len(o.DS) >= o.maxDepth() {
		return false
	}
	o.DS = append(o.DS, v)
	return true
}

func (o *Organism) popDS() (RegValue, bool) {
	if len(o.DS) == 0 {
		return RegValue{}, false
	}
	v := o.DS[len(o.DS)-1]
	o.DS = o.DS[:len(o.DS)-1]
	return v, true
}

func (o *Organism) pushLS(v world.Coord) bool {
	if len(o.LS) >= o.maxDepth() {
		return false
	}
	o.LS = append(o.LS, v)
	return true
}

func (o *Organism) popLS() (world.Coord, bool) {
	if len(o.LS) == 0 {
		return nil, false
	}
	v := o.LS[len(o.LS)-1]
	o.LS = o.LS[:len(o.LS)-1]
	return v, true
}

func (o *Organism) pushCS(f CallFrame) bool {
	if len(o.CS) >= o.maxDepth() {
		return false
	}
	o.CS = append(o.CS, f)
	return true
}

func (o *Organism) popCS() (CallFrame, bool) {
	if len(o.CS) == 0 {
		return CallFrame{}, false
	}
	f := o.CS[len(o.CS)-1]
	o.CS = o.CS[:len(o.CS)-1]
	return f, true
}

func (o *Organism) maxDepth() int {
	if o.MaxStackDepth > 0 {
		return o.MaxStackDepth
	}
	return DefaultStackDepth
}
