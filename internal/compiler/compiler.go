package compiler

import (
	"fmt"
	"os"

	"github.com/termfx/gglang/internal/analyzer"
	"github.com/termfx/gglang/internal/ast"
	"github.com/termfx/gglang/internal/diag"
	"github.com/termfx/gglang/internal/emitter"
	"github.com/termfx/gglang/internal/lexer"
	"github.com/termfx/gglang/internal/parser"
)

// Options is the configuration bundle the driver hands to a
// compilation.
type Options struct {
	// File names the source in diagnostics.
	File string
	// GCDisabled turns off the collector in the emitted program.
	GCDisabled bool
	// MemoryLimit caps the runtime heap, in bytes. Zero means
	// unlimited.
	MemoryLimit int64
}

// Result is the outcome of one compilation: the C translation unit
// when no errors occurred, plus the full diagnostic list either way.
type Result struct {
	CSource     string
	Diagnostics []diag.Diagnostic
	Errors      int
	Warnings    int
	Unit        *ast.CompilationUnit
}

// Ok reports whether the compilation produced output.
func (r Result) Ok() bool { return r.Errors == 0 }

// Compile runs the full pipeline on a source string: lex, parse,
// analyze, then emit. The emitter only runs when the diagnostic bag
// holds no errors. Compilation is deterministic and synchronous; all
// state is scoped to this call.
func Compile(source string, opts Options) Result {
	bag := diag.NewBag()

	tokens := lexer.New(source, opts.File, bag).Tokenize()
	unit := parser.New(tokens, bag).ParseCompilationUnit()

	a := analyzer.New(bag)
	a.Analyze(unit)

	result := Result{
		Diagnostics: bag.Sorted(),
		Errors:      bag.ErrorCount(),
		Warnings:    bag.WarningCount(),
		Unit:        unit,
	}
	if bag.HasErrors() {
		return result
	}

	em := emitter.New(a.Classes(), a.ClassOrder(), emitter.Options{
		GCDisabled:  opts.GCDisabled,
		MemoryLimit: opts.MemoryLimit,
	})
	result.CSource = em.Emit()
	return result
}

// CompileFile reads a source file and compiles it.
func CompileFile(path string, opts Options) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading source: %w", err)
	}
	if opts.File == "" {
		opts.File = path
	}
	return Compile(string(data), opts), nil
}
