package asm

import "strings"

// Loader resolves an `.INCLUDE "path"` argument to source text. The CLI
// wires a filesystem-backed Loader; tests wire an in-memory map.
type Loader interface {
	Load(path string) (text string, ok bool)
}

// MapLoader is a Loader backed by an in-memory path->text map, used by
// tests and by callers that have already read every source file.
type MapLoader map[string]string

func (m MapLoader) Load(path string) (string, bool) {
	text, ok := m[path]
	return text, ok
}

type rawLine struct {
	file   string
	lineNo int
	text   string // comment-stripped, right-trimmed
}

// flattenIncludes reads entryPath via loader and recursively inlines
// every `.INCLUDE "path"` line's content at the point of inclusion,
// depth-first, detecting cycles along the current include chain.
func flattenIncludes(entryPath string, loader Loader) ([]rawLine, map[string]string, Diagnostics) {
	sources := map[string]string{}
	var diags Diagnostics
	var walk func(path string, chain map[string]bool) []rawLine
	walk = func(path string, chain map[string]bool) []rawLine {
		text, ok := loader.Load(path)
		if !ok {
			diags = append(diags, Diagnostic{Severity: SeverityError, Code: "include-not-found",
				Message: "cannot load source " + path, File: path, Line: 0})
			return nil
		}
		sources[path] = text
		if chain[path] {
			diags = append(diags, Diagnostic{Severity: SeverityError, Code: "include-cycle",
				Message: "include cycle detected at " + path, File: path, Line: 0})
			return nil
		}
		chain = mergeChain(chain, path)

		var out []rawLine
		for i, raw := range strings.Split(text, "\n") {
			stripped := newFstring(0, i+1, raw).stripTrailingComment()
			trimmed := strings.TrimRight(stripped.String(), " \t\r")
			fields := strings.Fields(trimmed)
			if len(fields) >= 2 && strings.EqualFold(fields[0], ".INCLUDE") {
				incPath := strings.Trim(fields[1], `"`)
				out = append(out, walk(incPath, chain)...)
				continue
			}
			out = append(out, rawLine{file: path, lineNo: i + 1, text: trimmed})
		}
		return out
	}
	lines := walk(entryPath, map[string]bool{})
	return lines, sources, diags
}

func mergeChain(chain map[string]bool, path string) map[string]bool {
	out := make(map[string]bool, len(chain)+1)
	for k := range chain {
		out[k] = true
	}
	out[path] = true
	return out
}
