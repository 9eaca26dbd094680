package asm

import (
	"strings"

	"github.com/evochora/evochora/molecule"
	"github.com/evochora/evochora/vm"
	"github.com/evochora/evochora/world"
)

// instrStmt is one laid-out instruction: its coordinate, its linear
// address, the opcode table entry, and the raw operand tokens (still
// unresolved — label references and defines are resolved in codegen).
type instrStmt struct {
	coord      world.Coord
	dir        world.Coord // the .DIR vector active when this instruction was laid out
	addr       int
	instr      *vm.Instruction
	argTokens  []string
	withTokens []string // CALL's ".WITH %r1, %r2" register tokens, nil otherwise
	withTarget string    // CALL's raw target token, for ProcName lookup
	scopePath  []string
	file       string
	line       int
}

// placeStmt is one resolved `.PLACE` cell: value is already a concrete
// Molecule since placement directives take only literal operands.
type placeStmt struct {
	coord world.Coord
	value molecule.Molecule
	file  string
	line  int
}

type requireStmt struct {
	name string
	file string
	line int
}

// layoutResult is everything the layout pass produces for codegen.
type layoutResult struct {
	sym       *symtab
	instrs    []instrStmt
	places    []placeStmt
	requires  []requireStmt
}

func advance(pc, dir world.Coord, n int) world.Coord {
	out := make(world.Coord, len(pc))
	for i := range pc {
		out[i] = pc[i] + dir[i]*n
	}
	return out
}

func zeroCoord(dims int) world.Coord { return make(world.Coord, dims) }

func unitCoord(dims int) world.Coord {
	c := make(world.Coord, dims)
	if dims > 0 {
		c[0] = 1
	}
	return c
}

func splitFields(s string) []string {
	var fields []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == ',' {
			flush()
			continue
		}
		cur.WriteByte(c)
	}
	flush()
	return fields
}

// parseLabelPrefix splits "LABEL: rest of line" into ("LABEL", "rest of
// line"). It returns ("", text) when text has no label prefix.
func parseLabelPrefix(text string) (string, string) {
	if len(text) == 0 || !identStartChar(text[0]) {
		return "", text
	}
	j := 1
	for j < len(text) && identChar(text[j]) {
		j++
	}
	if j < len(text) && text[j] == ':' {
		return text[:j], strings.TrimLeft(text[j+1:], " \t")
	}
	return "", text
}

func copyScope(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// runLayout walks the macro/include-expanded line stream, interpreting
// directives and laying out instructions along the current `.DIR`
// vector from the current `.ORG`, building the symbol table as it goes.
func runLayout(lines []rawLine, dims int, shape []int) (*layoutResult, Diagnostics) {
	res := &layoutResult{sym: newSymtab()}
	var diags Diagnostics

	pc := zeroCoord(dims)
	dir := unitCoord(dims)
	var scopePath []string
	addrCounter := 0

	errf := func(l rawLine, code, msg string) {
		diags = append(diags, Diagnostic{Severity: SeverityError, Code: code, Message: msg, File: l.file, Line: l.lineNo})
	}

	for _, l := range lines {
		text := l.text
		if strings.TrimSpace(text) == "" {
			continue
		}
		label, rest := parseLabelPrefix(text)
		if label != "" {
			res.sym.defineLabel(scopePath, label, pc.Clone())
		}
		rest = strings.TrimSpace(rest)
		if rest == "" {
			continue
		}

		if strings.HasPrefix(rest, ".") {
			fields := splitFields(rest)
			directive := strings.ToUpper(fields[0])
			args := fields[1:]
			switch directive {
			case ".ORG":
				v, ok := parseVectorLiteral(strings.Join(args, "|"))
				if !ok && len(args) == dims {
					v = make([]int, dims)
					ok = true
					for i, a := range args {
						n, nok := parseNumber(a)
						if !nok {
							ok = false
							break
						}
						v[i] = n
					}
				}
				if !ok || len(v) != dims {
					errf(l, "bad-org", ".ORG requires "+itoa(dims)+" integer components")
					continue
				}
				pc = world.Coord(v)
			case ".DIR":
				v, ok := parseVectorLiteral(strings.Join(args, "|"))
				if !ok || len(v) != dims {
					errf(l, "bad-dir", ".DIR requires "+itoa(dims)+" integer components")
					continue
				}
				dir = world.Coord(v)
			case ".DEFINE":
				if len(args) < 2 {
					errf(l, "bad-define", ".DEFINE requires a name and a value")
					continue
				}
				res.sym.defines[strings.ToUpper(args[0])] = strings.Join(args[1:], " ")
			case ".REG":
				if len(args) != 2 || !isRegisterToken(args[1]) {
					errf(l, "bad-reg", ".REG requires NAME %REGISTER")
					continue
				}
				id, ok := parseRegisterName(args[1][1:], res.sym)
				if !ok {
					errf(l, "bad-reg", "unknown register "+args[1])
					continue
				}
				res.sym.regAliases[strings.ToUpper(args[0])] = id
			case ".PREG":
				if len(res.sym.procAliases) == 0 {
					errf(l, "preg-outside-proc", ".PREG is only valid inside a .PROC")
					continue
				}
				if len(args) != 2 || !isRegisterToken(args[1]) {
					errf(l, "bad-preg", ".PREG requires NAME %REGISTER")
					continue
				}
				id, ok := parseRegisterName(args[1][1:], res.sym)
				if !ok {
					errf(l, "bad-preg", "unknown register "+args[1])
					continue
				}
				res.sym.procAliases[len(res.sym.procAliases)-1][strings.ToUpper(args[0])] = id
			case ".SCOPE":
				if len(args) != 1 {
					errf(l, "bad-scope", ".SCOPE requires a name")
					continue
				}
				scopePath = append(scopePath, args[0])
			case ".ENDS":
				if len(scopePath) == 0 {
					errf(l, "unmatched-ends", ".ENDS without matching .SCOPE")
					continue
				}
				scopePath = scopePath[:len(scopePath)-1]
			case ".PROC":
				if len(args) == 0 {
					errf(l, "bad-proc", ".PROC requires a name")
					continue
				}
				name := args[0]
				var params []string
				for i := 1; i < len(args); i++ {
					if strings.EqualFold(args[i], ".WITH") {
						params = append(params, args[i+1:]...)
						break
					}
				}
				res.sym.defineLabel(scopePath, name, pc.Clone())
				res.sym.procs[name] = &procInfo{name: name, params: params}
				scopePath = append(scopePath, name)
				res.sym.procAliases = append(res.sym.procAliases, map[string]int{})
			case ".ENDP":
				if len(scopePath) == 0 {
					errf(l, "unmatched-endp", ".ENDP without matching .PROC")
					continue
				}
				scopePath = scopePath[:len(scopePath)-1]
				res.sym.procAliases = res.sym.procAliases[:len(res.sym.procAliases)-1]
			case ".REQUIRE":
				if len(args) != 1 {
					errf(l, "bad-require", ".REQUIRE requires a single name")
					continue
				}
				res.requires = append(res.requires, requireStmt{name: args[0], file: l.file, line: l.lineNo})
			case ".PLACE":
				if len(args) < 2 {
					errf(l, "bad-place", ".PLACE requires a typed literal and a placement")
					continue
				}
				m, ok := parseTypedLiteral(res.sym.expandDefine(args[0]))
				if !ok {
					errf(l, "bad-place", "invalid typed literal "+args[0])
					continue
				}
				coords, ok := expandPlacement(args[1], dims, shape)
				if !ok {
					errf(l, "bad-place", "invalid placement "+args[1])
					continue
				}
				for _, c := range coords {
					res.places = append(res.places, placeStmt{coord: c, value: m, file: l.file, line: l.lineNo})
				}
			case ".MACRO", ".ENDM", ".INCLUDE":
				errf(l, "directive-out-of-order", directive+" must not appear here")
			default:
				errf(l, "unknown-directive", "unknown directive "+directive)
			}
			continue
		}

		fields := splitFields(rest)
		mnemonic := strings.ToUpper(fields[0])
		instr, ok := vm.GetInstructionSet().LookupName(mnemonic)
		if !ok {
			errf(l, "unknown-mnemonic", "unknown instruction "+mnemonic)
			continue
		}

		var argTokens, withTokens []string
		var withTarget string
		if mnemonic == "CALL" {
			rem := fields[1:]
			withIdx := -1
			for i, f := range rem {
				if strings.EqualFold(f, ".WITH") {
					withIdx = i
					break
				}
			}
			if withIdx >= 0 {
				argTokens = rem[:withIdx]
				withTokens = rem[withIdx+1:]
			} else {
				argTokens = rem
			}
			if len(argTokens) == 1 {
				withTarget = argTokens[0]
			}
		} else {
			argTokens = fields[1:]
		}

		if len(argTokens) != len(instr.ArgKinds) {
			errf(l, "bad-arity", mnemonic+" expects "+itoa(len(instr.ArgKinds))+" operands, got "+itoa(len(argTokens)))
			continue
		}

		res.instrs = append(res.instrs, instrStmt{
			coord:      pc.Clone(),
			dir:        dir.Clone(),
			addr:       addrCounter,
			instr:      instr,
			argTokens:  argTokens,
			withTokens: withTokens,
			withTarget: withTarget,
			scopePath:  copyScope(scopePath),
			file:       l.file,
			line:       l.lineNo,
		})
		addrCounter++
		pc = advance(pc, dir, 1+instr.Arity(dims))
	}

	if len(scopePath) != 0 {
		diags = append(diags, Diagnostic{Severity: SeverityError, Code: "unclosed-scope",
			Message: "unclosed .SCOPE/.PROC at end of file: " + strings.Join(scopePath, ".")})
	}
	return res, diags
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
