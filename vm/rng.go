package vm

import "math/rand/v2"

// RNG is the single seeded, reproducible stream a Runtime draws from, in
// the fixed order documented in spec §5: by organism id, then by
// instruction evaluation point within that organism's step. Wrapping
// math/rand/v2's PCG source (rather than hand-rolling a generator) gives
// a real, modern, explicitly-seedable stream — the teacher has no RNG
// need at all, so this is grounded in the standard library's own
// purpose-built reproducible-stream type instead of a third-party PRNG,
// per DESIGN.md.
type RNG struct {
	r *rand.Rand
}

// NewRNG seeds a stream deterministically from a single uint64 seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Uint64 draws one raw value from the stream, advancing it.
func (g *RNG) Uint64() uint64 { return g.r.Uint64() }

// IntN draws a uniform value in [0, n), advancing the stream. n<=0
// returns 0 without consuming a draw.
func (g *RNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return g.r.IntN(n)
}

// TieBreak consults the stream for a conflict tie-break among ids,
// still advancing it even when the outcome is fully determined by id
// order — see SPEC_FULL.md §E.1: trace determinism must not depend on
// whether a tie-break happened to be decided by id alone.
func (g *RNG) TieBreak(ids []int) int {
	lowest := ids[0]
	for _, id := range ids[1:] {
		if id < lowest {
			lowest = id
		}
	}
	_ = g.r.Uint64()
	return lowest
}
