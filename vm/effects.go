package vm

import "github.com/evochora/evochora/world"

// outcome is what executing one instruction produces during the plan
// phase of a tick: costs to deduct and, for the handful of opcodes that
// touch a shared world cell, a claim that must clear conflict
// resolution before its effect is committed. Every other effect
// (register writes, stack pushes, IP/DV changes) is organism-local and
// is applied directly by the exec function with no conflict possible,
// matching spec §5's "plan vs effect" split: only same-cell writes need
// the separation.
type outcome struct {
	baseCost int // waived entirely if this organism loses a claim
	preCost  int // charged regardless of claim outcome
	claim    *claim
}

// claim is a single organism's tentative touch of one world cell this
// tick. Exactly one claim per coordinate wins arbitration each tick;
// its commit runs, and every other claim on that coordinate is treated
// as instruction_failed with its base cost waived.
type claim struct {
	organismID int
	coord      world.Coord
	commit     func()
}

func noClaim(cost int) outcome { return outcome{baseCost: cost} }
