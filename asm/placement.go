package asm

import (
	"strings"

	"github.com/evochora/evochora/world"
)

// expandPlacement parses a `.PLACE` placement spec, one `|`-separated
// component per axis, where each component is a single integer, a `*`
// wildcard (every index along that axis, per shape), an inclusive range
// `a..b`, or a stepped range `a:s:b`. It returns the cross product of
// every axis's index list as concrete coordinates.
func expandPlacement(spec string, dims int, shape []int) ([]world.Coord, bool) {
	axes := strings.Split(spec, "|")
	if len(axes) != dims {
		return nil, false
	}
	perAxis := make([][]int, dims)
	for i, a := range axes {
		indices, ok := expandAxisSpec(a, i, shape)
		if !ok {
			return nil, false
		}
		perAxis[i] = indices
	}

	total := 1
	for _, idx := range perAxis {
		total *= len(idx)
	}
	coords := make([]world.Coord, 0, total)
	cur := make([]int, dims)
	var rec func(axis int)
	rec = func(axis int) {
		if axis == dims {
			c := make(world.Coord, dims)
			copy(c, cur)
			coords = append(coords, c)
			return
		}
		for _, v := range perAxis[axis] {
			cur[axis] = v
			rec(axis + 1)
		}
	}
	rec(0)
	return coords, true
}

func expandAxisSpec(s string, axis int, shape []int) ([]int, bool) {
	s = strings.TrimSpace(s)
	switch {
	case s == "*":
		if axis >= len(shape) {
			return nil, false
		}
		out := make([]int, shape[axis])
		for i := range out {
			out[i] = i
		}
		return out, true
	case strings.Contains(s, ".."):
		parts := strings.SplitN(s, "..", 2)
		a, ok1 := parseNumber(parts[0])
		b, ok2 := parseNumber(parts[1])
		if !ok1 || !ok2 || b < a {
			return nil, false
		}
		out := make([]int, 0, b-a+1)
		for v := a; v <= b; v++ {
			out = append(out, v)
		}
		return out, true
	case strings.Count(s, ":") == 2:
		parts := strings.SplitN(s, ":", 3)
		a, ok1 := parseNumber(parts[0])
		step, ok2 := parseNumber(parts[1])
		b, ok3 := parseNumber(parts[2])
		if !ok1 || !ok2 || !ok3 || step == 0 {
			return nil, false
		}
		var out []int
		if step > 0 {
			for v := a; v <= b; v += step {
				out = append(out, v)
			}
		} else {
			for v := a; v >= b; v += step {
				out = append(out, v)
			}
		}
		return out, true
	default:
		v, ok := parseNumber(s)
		if !ok {
			return nil, false
		}
		return []int{v}, true
	}
}
