package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloWorld = `
class Program {
    static void main() {
        Console.writeLine("Hello, World!");
    }
}`

func TestCompileHelloWorld(t *testing.T) {
	result := Compile(helloWorld, Options{File: "hello.gg"})
	require.True(t, result.Ok(), "diagnostics: %v", result.Diagnostics)
	assert.Contains(t, result.CSource, "Hello, World!")
	assert.Contains(t, result.CSource, `#include "gg_runtime.h"`)
	assert.Contains(t, result.CSource, "void gg_user_main(void)")
	assert.Equal(t, 0, result.Errors)
}

func TestEmitterIsGatedOnErrors(t *testing.T) {
	result := Compile(`
class Program {
    static void main() {
        int a = "teste";
    }
}`, Options{})
	assert.False(t, result.Ok())
	assert.Empty(t, result.CSource, "no output when the bag holds errors")
	assert.Equal(t, 1, result.Errors)
}

func TestWarningsDoNotGateEmission(t *testing.T) {
	result := Compile(`
class Program {
    static void main() {
        Console.writeLine(mystery);
    }
}`, Options{})
	assert.True(t, result.Ok())
	assert.Equal(t, 1, result.Warnings)
	assert.NotEmpty(t, result.CSource)
	// The unresolved identifier lowers verbatim for the C compiler.
	assert.Contains(t, result.CSource, "mystery")
}

func TestDiagnosticsAreSorted(t *testing.T) {
	result := Compile(`
class A {}
class A {}
class Program {
    static void main() {
        int x = "a";
        bool y = "b";
    }
}`, Options{})
	require.GreaterOrEqual(t, len(result.Diagnostics), 3)
	for i := 1; i < len(result.Diagnostics); i++ {
		prev, cur := result.Diagnostics[i-1], result.Diagnostics[i]
		ordered := prev.Line < cur.Line || (prev.Line == cur.Line && prev.Column <= cur.Column)
		assert.True(t, ordered, "diagnostics out of order at %d", i)
	}
}

func TestOptionsFlowToEmitter(t *testing.T) {
	limited := Compile(helloWorld, Options{MemoryLimit: 1})
	assert.Contains(t, limited.CSource, "gg_gc_set_memory_limit(1);")

	noGC := Compile(helloWorld, Options{GCDisabled: true})
	assert.Contains(t, noGC.CSource, "#define GG_NO_GC")
}

func TestCompileIsDeterministic(t *testing.T) {
	first := Compile(helloWorld, Options{})
	second := Compile(helloWorld, Options{})
	assert.Equal(t, first.CSource, second.CSource)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.gg")
	require.NoError(t, os.WriteFile(path, []byte(helloWorld), 0o644))

	result, err := CompileFile(path, Options{})
	require.NoError(t, err)
	assert.True(t, result.Ok())

	_, err = CompileFile(filepath.Join(dir, "missing.gg"), Options{})
	assert.Error(t, err)
}
