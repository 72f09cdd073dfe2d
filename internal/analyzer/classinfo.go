package analyzer

import (
	"github.com/termfx/gglang/internal/ast"
	"github.com/termfx/gglang/internal/symbols"
)

// FieldInfo is a fully resolved field, including fields copied down
// from base classes. DeclaredIn names the class that declared it.
type FieldInfo struct {
	Name       string
	Type       symbols.TypeInfo
	Access     string
	IsStatic   bool
	IsReadonly bool
	DeclaredIn string
	Decl       *ast.FieldDecl
}

// ParamInfo is one method or constructor parameter.
type ParamInfo struct {
	Name string
	Type symbols.TypeInfo
}

// MethodInfo is a fully resolved method. DeclaredIn names the class
// whose implementation this entry refers to, which after inheritance
// resolution may be a base class.
type MethodInfo struct {
	Name       string
	ReturnType symbols.TypeInfo
	Params     []ParamInfo
	Access     string
	IsStatic   bool
	IsAbstract bool
	IsVirtual  bool
	IsOverride bool
	DeclaredIn string
	Decl       *ast.MethodDecl
}

// ClassInfo is the analyzer's per-class record. Fields and Methods
// hold the resolved member set after inheritance propagation; the
// order slices keep base members first so struct layout and vtable
// slots stay prefix-compatible with the base class.
type ClassInfo struct {
	Name           string
	BaseClass      string
	Interfaces     []string
	Fields         map[string]*FieldInfo
	FieldOrder     []string
	Methods        map[string]*MethodInfo
	MethodOrder    []string
	HasConstructor bool
	IsAbstract     bool
	IsSealed       bool
	Decl           *ast.ClassDecl
}

func newClassInfo(decl *ast.ClassDecl) *ClassInfo {
	return &ClassInfo{
		Name:       decl.Name,
		BaseClass:  decl.BaseClass,
		Interfaces: append([]string(nil), decl.Interfaces...),
		Fields:     make(map[string]*FieldInfo),
		Methods:    make(map[string]*MethodInfo),
		IsAbstract: decl.IsAbstract,
		IsSealed:   decl.IsSealed,
		Decl:       decl,
	}
}

// HasVirtual reports whether the class carries any virtual or override
// method anywhere in its resolved member set.
func (c *ClassInfo) HasVirtual() bool {
	for _, m := range c.Methods {
		if m.IsVirtual || m.IsOverride {
			return true
		}
	}
	return false
}

// VirtualMethods returns the virtual slot names in stable order: base
// slots first, then slots introduced by this class.
func (c *ClassInfo) VirtualMethods() []*MethodInfo {
	var out []*MethodInfo
	for _, name := range c.MethodOrder {
		m := c.Methods[name]
		if m.IsVirtual || m.IsOverride {
			out = append(out, m)
		}
	}
	return out
}
