package vm

import (
	"sort"

	"github.com/evochora/evochora/artifact"
	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/world"
)

// MaxOrganismEnergy is the default energy ceiling a PEEK of an ENERGY
// molecule clamps to, per SPEC_FULL.md §E.3. Runtime.MaxEnergy may
// override it at construction.
const MaxOrganismEnergy = int64(1) << 30

// placement records what a living organism was compiled from and where
// it was placed, so CALL can resolve call-site bindings. The Runtime has
// no snapshot method; state is read through Organism, LiveIDs and World.
type placement struct {
	artifact *artifact.ProgramArtifact
	origin   world.Coord
}

// Observer is notified of the events a persistence/telemetry
// collaborator needs to reconstruct organism lineage without replaying
// every tick: a birth (via Place or FORK), a death, and an instruction
// failure. Calls are synchronous. OnBirth for a placed organism comes
// from Place, outside Tick; every other call comes from within Tick,
// after conflict resolution for that tick has been decided, with the
// deaths of a tick reported after its failures.
type Observer interface {
	OnBirth(o *Organism)
	OnDeath(o *Organism, tick int)
	OnInstructionFailed(o *Organism, reason string)
}

// Runtime is the deterministic, single-threaded tick scheduler: it owns
// the shared World, the live organism set, the seeded RNG stream, and
// the tick counter. It is the sole mutator of World.
type Runtime struct {
	World *world.Grid
	RNG   *RNG
	ISA   *InstructionSet

	MaxEnergy     int64
	MaxStackDepth int
	Observer      Observer // optional; nil means no notifications are sent

	tick          int
	nextOrganism  int
	organisms     map[int]*Organism
	placements    map[int]placement
	order         []int // ascending id, maintained as organisms are placed
	fingerprint   uint64
}

// NewRuntime constructs a Runtime over a pre-built world.Grid, seeded
// deterministically. seed 0 is a valid seed (not treated as "unset").
func NewRuntime(g *world.Grid, seed uint64) *Runtime {
	return &Runtime{
		World:         g,
		RNG:           NewRNG(seed),
		ISA:           GetInstructionSet(),
		MaxEnergy:     MaxOrganismEnergy,
		MaxStackDepth: DefaultStackDepth,
		nextOrganism:  1,
		organisms:     map[int]*Organism{},
		placements:    map[int]placement{},
		fingerprint:   0xcbf29ce484222325, // FNV-1a offset basis
	}
}

// Dims returns the world's dimensionality.
func (rt *Runtime) Dims() int { return rt.World.Dimensions() }

// wrapIP canonicalizes an IP coordinate on a toroidal world so reported
// positions (snapshots, Pos(), test assertions) agree with the wrapped
// cell a read/write at that coordinate would actually touch. On a
// bounded world it is a no-op: running off the edge there is simply an
// inaccessible fetch, handled by instrLenAt/fetch returning NOP/failure.
func (rt *Runtime) wrapIP(c world.Coord) world.Coord {
	if !rt.World.Toroidal() {
		return c
	}
	return rt.World.Wrap(c)
}

// Place stamps art's machine code and initial world objects into the
// World at origin (owner = the new organism's id) and creates a living
// Organism for it. Returns the new organism's id.
func (rt *Runtime) Place(art *artifact.ProgramArtifact, origin world.Coord, initialEnergy int64) int {
	id := rt.nextOrganism
	rt.nextOrganism++

	for _, cv := range art.MachineCodeLayout {
		rt.World.Set(origin.Add(cv.Coord), molecule.FromInt(cv.Word), id)
	}
	for _, cv := range art.InitialWorldObjects {
		rt.World.Set(origin.Add(cv.Coord), molecule.FromInt(cv.Word), id)
	}

	o := rt.newOrganism(id, 0, art, origin, origin, initialEnergy)
	rt.organisms[id] = o
	rt.placements[id] = placement{artifact: art, origin: origin}
	rt.order = append(rt.order, id)
	sort.Ints(rt.order)
	if rt.Observer != nil {
		rt.Observer.OnBirth(o)
	}
	return id
}

func (rt *Runtime) newOrganism(id, parentID int, art *artifact.ProgramArtifact, origin, ip world.Coord, energy int64) *Organism {
	dv := make(world.Coord, rt.Dims())
	if len(dv) > 0 {
		dv[0] = 1
	}
	o := &Organism{
		ID:            id,
		ParentID:      parentID,
		BirthTick:     rt.tick,
		ProgramID:     art.ProgramID,
		IP:            ip.Clone(),
		DV:            dv,
		DPs:           []world.Coord{ip.Clone()},
		ActiveDPIndex: 0,
		InitialIP:     ip.Clone(),
		ER:            energy,
		MaxStackDepth: rt.MaxStackDepth,
	}
	return o
}

// spawnChild is called from FORK's commit closure (so it only runs when
// the placement cell claim wins arbitration). The child runs the same
// program as its parent, fresh registers, placed at target with dv.
func (rt *Runtime) spawnChild(parent *Organism, target, dv world.Coord, energy int64) {
	pl, ok := rt.placements[parent.ID]
	if !ok {
		parent.Fail("unknown program")
		return
	}
	id := rt.nextOrganism
	rt.nextOrganism++
	child := rt.newOrganism(id, parent.ID, pl.artifact, pl.origin, target, energy)
	child.DV = dv
	rt.organisms[id] = child
	rt.placements[id] = pl
	rt.order = append(rt.order, id)
	sort.Ints(rt.order)
	if rt.Observer != nil {
		rt.Observer.OnBirth(child)
	}
}

// lookupCallBinding resolves the CallSiteBinding for the CALL
// instruction currently at o.IP, if any.
func (rt *Runtime) lookupCallBinding(o *Organism) (artifact.CallSiteBinding, bool) {
	pl, ok := rt.placements[o.ID]
	if !ok {
		return artifact.CallSiteBinding{}, false
	}
	rel := make(world.Coord, len(o.IP))
	for i := range rel {
		rel[i] = o.IP[i] - pl.origin[i]
	}
	addr, ok := pl.artifact.CoordToLinearAddress(rel)
	if !ok {
		return artifact.CallSiteBinding{}, false
	}
	b, ok := pl.artifact.CallSiteBindings[addr]
	return b, ok
}

// instrLenAt returns 1+arity (in cells) of the instruction encoded at
// coord, treating an unrecognized opcode as a zero-arity NOP so a
// conditional skip never runs off a program's end.
func (rt *Runtime) instrLenAt(coord world.Coord) int {
	m := rt.World.Get(coord)
	instr, ok := rt.ISA.Lookup(Opcode(m.Value()))
	if !ok {
		return 1
	}
	return 1 + instr.Arity(rt.Dims())
}

// fetch reads the opcode and decodes its arguments starting at o.IP,
// stepping a cursor by o.DV one cell at a time, per spec §4.3.
func (rt *Runtime) fetch(o *Organism) (*Instruction, []decodedArg, bool) {
	opMol := rt.World.Get(o.IP)
	instr, ok := rt.ISA.Lookup(Opcode(opMol.Value()))
	if !ok {
		return nil, nil, false
	}
	cursor := o.IP
	args := make([]decodedArg, 0, len(instr.ArgKinds))
	dims := rt.Dims()
	for _, kind := range instr.ArgKinds {
		if kind == ArgVec {
			vec := make(world.Coord, dims)
			for i := 0; i < dims; i++ {
				cursor = stepCoord(cursor, o.DV, 1)
				vec[i] = rt.World.Get(cursor).Value()
			}
			args = append(args, vecArg(vec))
		} else {
			cursor = stepCoord(cursor, o.DV, 1)
			args = append(args, cellArg(rt.World.Get(cursor)))
		}
	}
	return instr, args, true
}

// Tick advances the simulation by exactly one step, per spec §5:
// snapshot the living set, plan every organism's instruction, resolve
// same-cell conflicts, commit writes and deduct costs, advance IP,
// then remove organisms whose energy reached zero.
func (rt *Runtime) Tick() {
	rt.tick++

	ids := make([]int, len(rt.order))
	copy(ids, rt.order)

	type planned struct {
		org       *Organism
		instr     *Instruction
		out       outcome
		ownLength int
	}
	plans := make([]planned, 0, len(ids))
	claimsByCoord := map[string][]*claim{}

	for _, id := range ids {
		o, ok := rt.organisms[id]
		if !ok || o.Dead {
			continue
		}
		o.InstructionFailed = false
		o.FailureReason = ""
		o.SkipIPAdvance = false
		o.IPBeforeFetch = o.IP
		o.DVBeforeFetch = o.DV

		instr, args, ok := rt.fetch(o)
		if !ok {
			o.Fail("unknown opcode")
			plans = append(plans, planned{org: o, instr: nil, out: noClaim(1), ownLength: 1})
			continue
		}
		out := instr.Exec(rt, o, args)
		ownLength := 1 + instr.Arity(rt.Dims())
		plans = append(plans, planned{org: o, instr: instr, out: out, ownLength: ownLength})
		if out.claim != nil {
			key := out.claim.coord.String()
			claimsByCoord[key] = append(claimsByCoord[key], out.claim)
		}
	}

	// Resolve conflicts: lower organism id wins, per SPEC_FULL.md §E.1.
	winners := map[*claim]bool{}
	for _, claims := range claimsByCoord {
		if len(claims) == 1 {
			winners[claims[0]] = true
			continue
		}
		ids := make([]int, len(claims))
		for i, c := range claims {
			ids[i] = c.organismID
		}
		winnerID := rt.RNG.TieBreak(ids)
		for _, c := range claims {
			if c.organismID == winnerID {
				winners[c] = true
			}
		}
	}

	for _, p := range plans {
		o := p.org
		cost := p.out.preCost
		if p.out.claim != nil {
			if winners[p.out.claim] {
				p.out.claim.commit()
				cost += p.out.baseCost
			} else {
				o.Fail("conflict")
			}
		} else {
			cost += p.out.baseCost
		}
		o.ER -= int64(cost)

		if !o.SkipIPAdvance {
			o.IP = rt.wrapIP(stepCoord(o.IP, o.DVBeforeFetch, p.ownLength))
		}
		if rt.Observer != nil && o.InstructionFailed {
			rt.Observer.OnInstructionFailed(o, o.FailureReason)
		}
	}

	for _, id := range ids {
		o, ok := rt.organisms[id]
		if !ok {
			continue
		}
		if o.ER <= 0 {
			o.Dead = true
			if rt.Observer != nil {
				rt.Observer.OnDeath(o, rt.tick)
			}
		}
	}

	rt.removeDead()
	rt.updateFingerprint()
}

func (rt *Runtime) removeDead() {
	live := rt.order[:0]
	for _, id := range rt.order {
		if o, ok := rt.organisms[id]; ok && !o.Dead {
			live = append(live, id)
		} else {
			delete(rt.organisms, id)
			delete(rt.placements, id)
		}
	}
	rt.order = live
}

// Fingerprint returns a rolling FNV-1a hash, updated every tick over the
// tick count and each live organism's id, ER and IP, so two independent
// runs can be compared cheaply (SPEC_FULL.md §D.4). World cells and
// registers are not part of the hash.
func (rt *Runtime) Fingerprint() uint64 { return rt.fingerprint }

func (rt *Runtime) updateFingerprint() {
	h := rt.fingerprint
	mix := func(v uint64) {
		h ^= v
		h *= 0x100000001b3
	}
	mix(uint64(rt.tick))
	for _, id := range rt.order {
		o := rt.organisms[id]
		mix(uint64(id))
		mix(uint64(o.ER))
		for _, c := range o.IP {
			mix(uint64(int64(c)))
		}
	}
	rt.fingerprint = h
}

// Organism returns the live organism with the given id, if any.
func (rt *Runtime) Organism(id int) (*Organism, bool) {
	o, ok := rt.organisms[id]
	return o, ok
}

// LiveIDs returns the ids of every living organism, ascending.
func (rt *Runtime) LiveIDs() []int {
	out := make([]int, len(rt.order))
	copy(out, rt.order)
	return out
}

// TickCount returns the number of ticks applied so far.
func (rt *Runtime) TickCount() int { return rt.tick }
