package asm

import (
	"strconv"
	"strings"

	"github.com/evochora/evochora/molecule"
)

// parseNumber parses a decimal, 0x-hex, 0b-binary or 0o-octal signed
// integer literal.
func parseNumber(s string) (int, bool) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	var base int
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0b"), strings.HasPrefix(s, "0B"):
		base, s = 2, s[2:]
	case strings.HasPrefix(s, "0o"), strings.HasPrefix(s, "0O"):
		base, s = 8, s[2:]
	default:
		base = 10
	}
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return int(v), true
}

// isNumberToken reports whether s looks like a numeric literal, so
// callers can distinguish it from an identifier (label reference).
func isNumberToken(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' || s[0] == '+' {
		i++
	}
	return i < len(s) && decimal(s[i])
}

// parseTypedLiteral parses a "TYPE:VALUE" token, e.g. "DATA:10" or
// "ENERGY:-5". The type name is case-insensitive.
func parseTypedLiteral(s string) (molecule.Molecule, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return molecule.Molecule{}, false
	}
	typ, ok := molecule.ParseType(strings.ToUpper(parts[0]))
	if !ok {
		return molecule.Molecule{}, false
	}
	v, ok := parseNumber(parts[1])
	if !ok {
		return molecule.Molecule{}, false
	}
	return molecule.New(typ, v), true
}

func isTypedLiteralToken(s string) bool {
	_, ok := parseTypedLiteral(s)
	return ok
}

// parseVectorLiteral parses a "v0|v1|...|vn-1" token into its integer
// components.
func parseVectorLiteral(s string) ([]int, bool) {
	parts := strings.Split(s, "|")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, ok := parseNumber(strings.TrimSpace(p))
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func isVectorLiteralToken(s string) bool {
	return strings.Contains(s, "|")
}

// isRegisterToken reports whether s names a register reference, i.e.
// starts with '%'.
func isRegisterToken(s string) bool {
	return strings.HasPrefix(s, "%")
}
