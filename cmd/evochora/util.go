package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/evochora/evochora/world"
)

func stringToBool(s string) (bool, error) {
	s = strings.ToLower(s)
	switch s {
	case "0", "false":
		return false, nil
	case "1", "true":
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value '%s'", s)
	}
}

// parseCoord parses a "|"-separated coordinate literal ("3|4") into a
// world.Coord of exactly dims components.
func parseCoord(s string, dims int) (world.Coord, error) {
	parts := strings.Split(s, "|")
	if len(parts) != dims {
		return nil, fmt.Errorf("coordinate %q needs %d components, got %d", s, dims, len(parts))
	}
	c := make(world.Coord, dims)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate component %q", p)
		}
		c[i] = v
	}
	return c, nil
}

func indentWrap(indent int, s string) string {
	ss := strings.Fields(s)
	if len(ss) == 0 {
		return ""
	}

	counts := make([]int, 0)
	count := 1
	l := indent + len(ss[0])
	for i := 1; i < len(ss); i++ {
		if l+1+len(ss[i]) < 80 {
			count++
			l += 1 + len(ss[i])
			continue
		}
		counts = append(counts, count)
		count = 1
		l = indent + len(ss[i])
	}
	counts = append(counts, count)

	var lines []string
	i := 0
	for _, c := range counts {
		line := strings.Repeat(" ", indent) + strings.Join(ss[i:i+c], " ")
		lines = append(lines, line)
		i += c
	}
	return strings.Join(lines, "\n")
}
