package asm

import (
	"strconv"
	"strings"

	"github.com/evochora/evochora/vm"
	"github.com/evochora/evochora/world"
)

// parseRegisterName resolves a register reference's name (with the
// leading '%' already stripped) to its global register id: either a
// built-in "DRn"/"PRn"/"FPRn"/"LRn" name, a `.REG` global alias, or a
// `.PREG` alias local to the currently open `.PROC`.
func parseRegisterName(name string, aliases *symtab) (int, bool) {
	upper := strings.ToUpper(name)
	if id, ok := builtinRegisterName(upper); ok {
		return id, true
	}
	if len(aliases.procAliases) > 0 {
		if id, ok := aliases.procAliases[len(aliases.procAliases)-1][upper]; ok {
			return id, true
		}
	}
	if id, ok := aliases.regAliases[upper]; ok {
		return id, true
	}
	return 0, false
}

func builtinRegisterName(upper string) (int, bool) {
	prefixes := []struct {
		prefix string
		base   int
		count  int
	}{
		{"FPR", vm.FPRBase, vm.FPRCount},
		{"DR", vm.DRBase, vm.DRCount},
		{"PR", vm.PRBase, vm.PRCount},
		{"LR", vm.LRBase, vm.LRCount},
	}
	for _, p := range prefixes {
		if strings.HasPrefix(upper, p.prefix) {
			n, err := strconv.Atoi(upper[len(p.prefix):])
			if err != nil || n < 0 || n >= p.count {
				continue
			}
			return p.base + n, true
		}
	}
	return 0, false
}

// procInfo is a compiled `.PROC NAME .WITH p1 p2 ...` declaration.
type procInfo struct {
	name   string
	params []string
}

// symtab is the assembler's hierarchical symbol table: labels are keyed
// by their fully scope-qualified name; lookups walk from the innermost
// open scope outward to the global scope.
type symtab struct {
	labels  map[string]world.Coord
	defines map[string]string
	procs   map[string]*procInfo

	regAliases  map[string]int   // global, set by .REG
	procAliases []map[string]int // stack, pushed by .PROC, set by .PREG
}

func newSymtab() *symtab {
	return &symtab{
		labels:     map[string]world.Coord{},
		defines:    map[string]string{},
		procs:      map[string]*procInfo{},
		regAliases: map[string]int{},
	}
}

func qualify(scopePath []string, name string) string {
	if len(scopePath) == 0 {
		return name
	}
	return strings.Join(scopePath, ".") + "." + name
}

func (s *symtab) defineLabel(scopePath []string, name string, c world.Coord) {
	s.labels[qualify(scopePath, name)] = c
}

// resolveLabel looks up name from innermost scope outward.
func (s *symtab) resolveLabel(scopePath []string, name string) (world.Coord, bool) {
	for i := len(scopePath); i >= 0; i-- {
		if c, ok := s.labels[qualify(scopePath[:i], name)]; ok {
			return c, true
		}
	}
	return nil, false
}

// expandDefine performs one level of `.DEFINE` textual substitution on a
// single token.
func (s *symtab) expandDefine(token string) string {
	if rep, ok := s.defines[token]; ok {
		return rep
	}
	return token
}
