package symbols

import (
	"fmt"

	"github.com/termfx/gglang/internal/ast"
)

// SymbolKind classifies a name in the symbol table.
type SymbolKind int

const (
	KindVariable SymbolKind = iota
	KindParameter
	KindField
	KindMethod
	KindConstructor
	KindClass
	KindInterface
	KindEnum
	KindModule
)

func (k SymbolKind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindParameter:
		return "parameter"
	case KindField:
		return "field"
	case KindMethod:
		return "method"
	case KindConstructor:
		return "constructor"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindEnum:
		return "enum"
	case KindModule:
		return "module"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Symbol is a resolved name: its kind, declared type, access level and
// declaration position.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Type       TypeInfo
	Access     string
	IsStatic   bool
	IsReadonly bool
	Pos        ast.Pos
}

// Scope is one node of the lexical scope tree. Names are unique within
// a scope; lookups walk the parent chain.
type Scope struct {
	parent  *Scope
	symbols map[string]*Symbol
}

func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent:  parent,
		symbols: make(map[string]*Symbol),
	}
}

// BuiltinClasses are the static class names every program can see
// without declaring them. The emitter lowers calls on them directly to
// runtime functions.
var BuiltinClasses = map[string]bool{
	"Console": true,
	"Math":    true,
	"Memory":  true,
}

// NewGlobalScope creates the root scope pre-populated with the
// built-in type registry.
func NewGlobalScope() *Scope {
	s := NewScope(nil)
	for _, name := range []string{
		"int", "long", "byte", "short", "float", "double",
		"bool", "char", "string", "void", "object",
	} {
		s.symbols[name] = &Symbol{Name: name, Kind: KindClass, Type: NewType(name)}
	}
	for name := range BuiltinClasses {
		s.symbols[name] = &Symbol{Name: name, Kind: KindClass, IsStatic: true, Type: NewType(name)}
	}
	return s
}

// Define adds a symbol to this scope. It fails when the name is
// already taken in the same scope; shadowing an outer scope is fine.
func (s *Scope) Define(sym *Symbol) error {
	if _, exists := s.symbols[sym.Name]; exists {
		return fmt.Errorf("'%s' is already declared in this scope", sym.Name)
	}
	s.symbols[sym.Name] = sym
	return nil
}

// Lookup resolves a name through the scope chain, innermost first.
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if sym, ok := scope.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal resolves a name in this scope only.
func (s *Scope) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Parent returns the enclosing scope, or nil for the global scope.
func (s *Scope) Parent() *Scope { return s.parent }
