// Package asm compiles evochora assembly source into an
// artifact.ProgramArtifact: tokenize, expand macros, resolve includes,
// interpret directives while laying out instructions along the current
// `.DIR` vector, then resolve every label/define reference into
// position-independent, relative-vector machine code.
//
// Re-running Assemble on the same sources and EnvironmentProperties
// always yields a byte-identical ProgramArtifact (same ProgramID):
// every pass is a pure function of the source text and the
// environment, with no reliance on map iteration order for anything
// that reaches the emitted artifact.
package asm

import (
	"sort"

	"github.com/evochora/evochora/artifact"
)

// Assemble compiles the program rooted at entryPath, resolving
// `.INCLUDE` via loader, against the given environment. On success it
// returns a ProgramArtifact with ProgramID populated; on any Error
// diagnostic it returns (nil, diags).
func Assemble(entryPath string, loader Loader, env artifact.EnvironmentProperties) (*artifact.ProgramArtifact, Diagnostics) {
	dims := env.Dimensions()
	if dims == 0 {
		return nil, Diagnostics{{Severity: SeverityError, Code: "bad-environment", Message: "environment has no dimensions"}}
	}

	lines, sources, diags := flattenIncludes(entryPath, loader)
	if diags.HasErrors() {
		return nil, diags
	}

	withoutMacros, macros, macroDiags := collectMacros(lines)
	diags = append(diags, macroDiags...)
	if diags.HasErrors() {
		return nil, diags
	}

	expanded, expandDiags := expandMacros(withoutMacros, macros)
	diags = append(diags, expandDiags...)
	if diags.HasErrors() {
		return nil, diags
	}

	lr, layoutDiags := runLayout(expanded, dims, env.WorldShape)
	diags = append(diags, layoutDiags...)
	if diags.HasErrors() {
		return nil, diags
	}

	var srcFiles []artifact.SourceFile
	paths := make([]string, 0, len(sources))
	for p := range sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		srcFiles = append(srcFiles, artifact.SourceFile{Path: p, Text: sources[p]})
	}

	art, codegenDiags := runCodegen(lr, dims, srcFiles, env)
	diags = append(diags, codegenDiags...)
	if diags.HasErrors() {
		return nil, diags
	}
	return art, diags
}

// AssembleSource is a convenience entry point for a single in-memory
// source string with no includes, used by tests and simple callers.
func AssembleSource(source string, env artifact.EnvironmentProperties) (*artifact.ProgramArtifact, Diagnostics) {
	return Assemble("main.asm", MapLoader{"main.asm": source}, env)
}
