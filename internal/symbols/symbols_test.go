package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineAndLookup(t *testing.T) {
	scope := NewScope(nil)
	require.NoError(t, scope.Define(&Symbol{Name: "x", Kind: KindVariable, Type: NewType("int")}))

	sym, ok := scope.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, "int", sym.Type.Name)

	_, ok = scope.Lookup("y")
	assert.False(t, ok)
}

func TestDuplicateDefineFails(t *testing.T) {
	scope := NewScope(nil)
	require.NoError(t, scope.Define(&Symbol{Name: "x"}))
	err := scope.Define(&Symbol{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared")
}

func TestLookupWalksParentChain(t *testing.T) {
	global := NewScope(nil)
	require.NoError(t, global.Define(&Symbol{Name: "g", Type: NewType("string")}))
	inner := NewScope(NewScope(global))

	sym, ok := inner.Lookup("g")
	require.True(t, ok)
	assert.Equal(t, "string", sym.Type.Name)

	_, ok = inner.LookupLocal("g")
	assert.False(t, ok, "local lookup must not walk parents")
}

func TestShadowing(t *testing.T) {
	outer := NewScope(nil)
	require.NoError(t, outer.Define(&Symbol{Name: "v", Type: NewType("int")}))
	inner := NewScope(outer)
	require.NoError(t, inner.Define(&Symbol{Name: "v", Type: NewType("string")}))

	sym, _ := inner.Lookup("v")
	assert.Equal(t, "string", sym.Type.Name)
	sym, _ = outer.Lookup("v")
	assert.Equal(t, "int", sym.Type.Name)
}

func TestGlobalScopeHasBuiltins(t *testing.T) {
	global := NewGlobalScope()
	for _, name := range []string{"int", "double", "string", "void", "object", "Console", "Math", "Memory"} {
		_, ok := global.Lookup(name)
		assert.True(t, ok, "builtin %q", name)
	}
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, NewType("int").IsNumeric())
	assert.True(t, NewType("double").IsNumeric())
	assert.False(t, NewType("bool").IsNumeric())
	assert.False(t, NewArrayType("int").IsNumeric())

	assert.True(t, NewType("bool").IsPrimitive())
	assert.True(t, NewType("string").IsPrimitive())
	assert.True(t, NewType("long").IsPrimitive())
	assert.False(t, NewType("Dog").IsPrimitive())

	assert.True(t, NewType("void").IsVoid())
	assert.False(t, NewType("int").IsVoid())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "int", NewType("int").String())
	assert.Equal(t, "int[]", NewArrayType("int").String())
	assert.Equal(t, "Dog?", NewNullableType("Dog").String())
}

func TestWideningLattice(t *testing.T) {
	accepted := []struct{ from, to string }{
		{"byte", "short"}, {"byte", "int"}, {"byte", "long"}, {"byte", "float"}, {"byte", "double"},
		{"short", "int"}, {"short", "long"}, {"short", "float"}, {"short", "double"},
		{"int", "long"}, {"int", "float"}, {"int", "double"},
		{"long", "float"}, {"long", "double"},
		{"float", "double"},
	}
	for _, pair := range accepted {
		assert.True(t, Widens(pair.from, pair.to), "%s -> %s", pair.from, pair.to)
	}

	rejected := []struct{ from, to string }{
		{"double", "float"}, {"long", "int"}, {"int", "byte"},
		{"short", "byte"}, {"double", "int"}, {"int", "int"},
		{"bool", "int"}, {"string", "double"},
	}
	for _, pair := range rejected {
		assert.False(t, Widens(pair.from, pair.to), "%s -> %s", pair.from, pair.to)
	}
}
