package analyzer

import (
	"github.com/termfx/gglang/internal/ast"
	"github.com/termfx/gglang/internal/diag"
	"github.com/termfx/gglang/internal/symbols"
)

// Analyzer populates the class table, resolves inheritance and
// validates declarations and bodies in three passes over the AST. It
// never stops early: every pass appends to the shared bag and runs to
// completion.
type Analyzer struct {
	bag     *diag.Bag
	global  *symbols.Scope
	classes map[string]*ClassInfo
	order   []string

	deprecatedClasses map[string]DeprecationInfo
	removedClasses    map[string]DeprecationInfo
	deprecatedMethods map[string]DeprecationInfo
	removedMethods    map[string]DeprecationInfo

	currentClass *ClassInfo
}

// DeprecationInfo carries the optional message and version arguments
// of a [@Deprecated] or [@Removed] annotation.
type DeprecationInfo struct {
	Message string
	Version string
}

func New(bag *diag.Bag) *Analyzer {
	return &Analyzer{
		bag:               bag,
		global:            symbols.NewGlobalScope(),
		classes:           make(map[string]*ClassInfo),
		deprecatedClasses: make(map[string]DeprecationInfo),
		removedClasses:    make(map[string]DeprecationInfo),
		deprecatedMethods: make(map[string]DeprecationInfo),
		removedMethods:    make(map[string]DeprecationInfo),
	}
}

// Classes returns the resolved class table.
func (a *Analyzer) Classes() map[string]*ClassInfo { return a.classes }

// ClassOrder returns class names in declaration order.
func (a *Analyzer) ClassOrder() []string { return a.order }

// GlobalScope returns the global symbol scope, pre-populated with the
// built-in type registry.
func (a *Analyzer) GlobalScope() *symbols.Scope { return a.global }

// Analyze runs the three passes: type registration, member
// registration with inheritance resolution, then body analysis.
func (a *Analyzer) Analyze(unit *ast.CompilationUnit) {
	a.registerTypes(unit)
	a.registerMembers(unit)
	a.resolveInheritance()
	a.analyzeBodies(unit)
}

// ---------------------------------------------------------------------------
// Pass 1 — type registration

func (a *Analyzer) registerTypes(unit *ast.CompilationUnit) {
	for _, decl := range unit.Types {
		switch d := decl.(type) {
		case *ast.ClassDecl:
			a.defineType(d.Name, symbols.KindClass, d.Pos)
			if _, dup := a.classes[d.Name]; !dup {
				a.classes[d.Name] = newClassInfo(d)
				a.order = append(a.order, d.Name)
			}
			a.checkAnnotations(d.Annotations, d.Name, "", d.Pos)
		case *ast.InterfaceDecl:
			a.defineType(d.Name, symbols.KindInterface, d.Pos)
			a.checkAnnotations(d.Annotations, d.Name, "", d.Pos)
		case *ast.EnumDecl:
			a.defineType(d.Name, symbols.KindEnum, d.Pos)
			a.checkAnnotations(d.Annotations, d.Name, "", d.Pos)
		}
	}
}

func (a *Analyzer) defineType(name string, kind symbols.SymbolKind, pos ast.Pos) {
	err := a.global.Define(&symbols.Symbol{
		Name: name,
		Kind: kind,
		Type: symbols.NewType(name),
		Pos:  pos,
	})
	if err != nil {
		a.bag.Errorf(pos.Line, pos.Column, "type '%s' is already declared", name)
	}
}

// ---------------------------------------------------------------------------
// Pass 2 — member registration and inheritance resolution

func (a *Analyzer) registerMembers(unit *ast.CompilationUnit) {
	for _, decl := range unit.Types {
		class, ok := decl.(*ast.ClassDecl)
		if !ok {
			continue
		}
		info, ok := a.classes[class.Name]
		if !ok || info.Decl != class {
			// A duplicate declaration; members of the first one win.
			continue
		}

		for _, f := range class.Fields {
			if _, exists := info.Fields[f.Name]; exists {
				a.bag.Errorf(f.Pos.Line, f.Pos.Column, "duplicate field '%s' in class '%s'", f.Name, class.Name)
				continue
			}
			info.Fields[f.Name] = &FieldInfo{
				Name:       f.Name,
				Type:       a.resolveTypeRef(f.Type),
				Access:     f.Access,
				IsStatic:   f.IsStatic,
				IsReadonly: f.IsReadonly,
				DeclaredIn: class.Name,
				Decl:       f,
			}
			info.FieldOrder = append(info.FieldOrder, f.Name)
			a.checkAnnotations(f.Annotations, class.Name, f.Name, f.Pos)
		}

		for _, m := range class.Methods {
			if _, exists := info.Methods[m.Name]; exists {
				// Overloads are not supported; the first declaration wins.
				continue
			}
			params := make([]ParamInfo, 0, len(m.Params))
			for _, param := range m.Params {
				params = append(params, ParamInfo{Name: param.Name, Type: a.resolveTypeRef(param.Type)})
			}
			info.Methods[m.Name] = &MethodInfo{
				Name:       m.Name,
				ReturnType: a.resolveTypeRef(m.ReturnType),
				Params:     params,
				Access:     m.Access,
				IsStatic:   m.IsStatic,
				IsAbstract: m.IsAbstract,
				IsVirtual:  m.IsVirtual,
				IsOverride: m.IsOverride,
				DeclaredIn: class.Name,
				Decl:       m,
			}
			info.MethodOrder = append(info.MethodOrder, m.Name)
			a.checkAnnotations(m.Annotations, class.Name, m.Name, m.Pos)
		}

		if len(class.Constructors) > 0 {
			info.HasConstructor = true
		}
	}
}

// resolveInheritance walks the classes topologically, copying base
// members into each derived class. The resolved set guarantees each
// class is visited once, which also neutralizes inheritance cycles:
// the walk simply stops inheriting at the first repeated node.
func (a *Analyzer) resolveInheritance() {
	resolved := make(map[string]bool)
	for _, name := range a.order {
		a.resolveClass(name, resolved)
	}
}

func (a *Analyzer) resolveClass(name string, resolved map[string]bool) {
	if resolved[name] {
		return
	}
	resolved[name] = true

	info := a.classes[name]
	if info.BaseClass == "" {
		return
	}
	base, ok := a.classes[info.BaseClass]
	if !ok {
		pos := info.Decl.Pos
		a.bag.Errorf(pos.Line, pos.Column, "undefined base class '%s' for class '%s'", info.BaseClass, name)
		return
	}
	a.resolveClass(base.Name, resolved)

	// Base members come first in the resolved order so the derived
	// struct layout and vtable share the base prefix.
	fieldOrder := make([]string, 0, len(base.FieldOrder)+len(info.FieldOrder))
	for _, fname := range base.FieldOrder {
		if _, declared := info.Fields[fname]; declared {
			continue
		}
		info.Fields[fname] = base.Fields[fname]
		fieldOrder = append(fieldOrder, fname)
	}
	info.FieldOrder = append(fieldOrder, info.FieldOrder...)

	methodOrder := make([]string, 0, len(base.MethodOrder)+len(info.MethodOrder))
	own := make(map[string]bool, len(info.MethodOrder))
	for _, mname := range info.MethodOrder {
		own[mname] = true
	}
	for _, mname := range base.MethodOrder {
		if own[mname] {
			methodOrder = append(methodOrder, mname)
			continue
		}
		info.Methods[mname] = base.Methods[mname]
		methodOrder = append(methodOrder, mname)
	}
	for _, mname := range info.MethodOrder {
		inBase := false
		for _, bname := range base.MethodOrder {
			if bname == mname {
				inBase = true
				break
			}
		}
		if !inBase {
			methodOrder = append(methodOrder, mname)
		}
	}
	info.MethodOrder = methodOrder

	for _, iface := range base.Interfaces {
		found := false
		for _, existing := range info.Interfaces {
			if existing == iface {
				found = true
				break
			}
		}
		if !found {
			info.Interfaces = append(info.Interfaces, iface)
		}
	}
}

func (a *Analyzer) resolveTypeRef(ref *ast.TypeRef) symbols.TypeInfo {
	if ref == nil {
		return symbols.NewType("object")
	}
	return symbols.TypeInfo{Name: ref.Name, IsArray: ref.IsArray, Nullable: ref.Nullable}
}

// ---------------------------------------------------------------------------
// Annotations

type annotationRule struct {
	minArgs int
	maxArgs int
}

var annotationRules = map[string]annotationRule{
	"Library":    {2, 2},
	"Deprecated": {0, 2},
	"Removed":    {0, 2},
	"Test":       {0, 0},
}

// checkAnnotations validates arity and records deprecation state. The
// key is the class name for class-level annotations and
// "Class.method" for members. Unknown annotation names pass silently.
func (a *Analyzer) checkAnnotations(anns []*ast.Annotation, className, memberName string, pos ast.Pos) {
	var deprecated, removed *ast.Annotation
	for _, ann := range anns {
		rule, known := annotationRules[ann.Name]
		if !known {
			continue
		}
		if len(ann.Args) < rule.minArgs || len(ann.Args) > rule.maxArgs {
			a.bag.Errorf(ann.Pos.Line, ann.Pos.Column,
				"annotation '%s' expects between %d and %d arguments, got %d",
				ann.Name, rule.minArgs, rule.maxArgs, len(ann.Args))
			continue
		}
		switch ann.Name {
		case "Deprecated":
			deprecated = ann
		case "Removed":
			removed = ann
		}
	}

	if deprecated != nil && removed != nil {
		a.bag.Errorf(pos.Line, pos.Column,
			"'%s' cannot be marked both [@Deprecated] and [@Removed]", a.subjectName(className, memberName))
		return
	}

	key := className
	if memberName != "" {
		key = className + "." + memberName
	}

	if deprecated != nil {
		info := deprecationInfo(deprecated)
		if memberName != "" {
			a.deprecatedMethods[key] = info
		} else {
			a.deprecatedClasses[key] = info
		}
		a.bag.Infof(deprecated.Pos.Line, deprecated.Pos.Column,
			"'%s' is marked as deprecated", a.subjectName(className, memberName))
	}
	if removed != nil {
		info := deprecationInfo(removed)
		if memberName != "" {
			a.removedMethods[key] = info
		} else {
			a.removedClasses[key] = info
		}
		a.bag.Errorf(removed.Pos.Line, removed.Pos.Column,
			"'%s' is marked as removed", a.subjectName(className, memberName))
	}
}

func (a *Analyzer) subjectName(className, memberName string) string {
	if memberName != "" {
		return className + "." + memberName
	}
	return className
}

func deprecationInfo(ann *ast.Annotation) DeprecationInfo {
	var info DeprecationInfo
	if len(ann.Args) > 0 {
		info.Message = ast.ExprString(ann.Args[0])
	}
	if len(ann.Args) > 1 {
		info.Version = ast.ExprString(ann.Args[1])
	}
	return info
}

// ---------------------------------------------------------------------------
// Pass 3 — body analysis

func (a *Analyzer) analyzeBodies(unit *ast.CompilationUnit) {
	for _, decl := range unit.Types {
		class, ok := decl.(*ast.ClassDecl)
		if !ok {
			continue
		}
		info, ok := a.classes[class.Name]
		if !ok || info.Decl != class {
			continue
		}
		a.currentClass = info

		classScope := symbols.NewScope(a.global)
		_ = classScope.Define(&symbols.Symbol{
			Name: "this",
			Kind: symbols.KindVariable,
			Type: symbols.NewType(class.Name),
		})
		for _, fname := range info.FieldOrder {
			f := info.Fields[fname]
			_ = classScope.Define(&symbols.Symbol{
				Name:       f.Name,
				Kind:       symbols.KindField,
				Type:       f.Type,
				Access:     f.Access,
				IsStatic:   f.IsStatic,
				IsReadonly: f.IsReadonly,
			})
		}

		for _, m := range class.Methods {
			a.analyzeCallable(classScope, m.Params, m.Body)
		}
		for _, c := range class.Constructors {
			a.analyzeCallable(classScope, c.Params, c.Body)
			for _, arg := range c.BaseArgs {
				a.analyzeExpr(classScope, arg)
			}
		}

		for _, f := range class.Fields {
			if f.Initializer != nil {
				a.analyzeExpr(classScope, f.Initializer)
			}
		}
	}
	a.currentClass = nil
}

func (a *Analyzer) analyzeCallable(classScope *symbols.Scope, params []*ast.Param, body *ast.BlockStmt) {
	scope := symbols.NewScope(classScope)
	for _, param := range params {
		err := scope.Define(&symbols.Symbol{
			Name: param.Name,
			Kind: symbols.KindParameter,
			Type: a.resolveTypeRef(param.Type),
			Pos:  param.Pos,
		})
		if err != nil {
			a.bag.Errorf(param.Pos.Line, param.Pos.Column, "duplicate parameter '%s'", param.Name)
		}
	}
	if body == nil {
		return
	}
	for _, stmt := range body.Statements {
		a.analyzeStmt(scope, stmt)
	}
}

func (a *Analyzer) analyzeStmt(scope *symbols.Scope, stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		inner := symbols.NewScope(scope)
		for _, st := range s.Statements {
			a.analyzeStmt(inner, st)
		}
	case *ast.VarDeclStmt:
		a.analyzeVarDecl(scope, s)
	case *ast.ExprStmt:
		a.analyzeExpr(scope, s.Expr)
	case *ast.IfStmt:
		a.analyzeExpr(scope, s.Condition)
		a.analyzeStmt(scope, s.Then)
		if s.Else != nil {
			a.analyzeStmt(scope, s.Else)
		}
	case *ast.WhileStmt:
		a.analyzeExpr(scope, s.Condition)
		a.analyzeStmt(scope, s.Body)
	case *ast.ForStmt:
		inner := symbols.NewScope(scope)
		if s.Init != nil {
			a.analyzeStmt(inner, s.Init)
		}
		if s.Condition != nil {
			a.analyzeExpr(inner, s.Condition)
		}
		if s.Step != nil {
			a.analyzeExpr(inner, s.Step)
		}
		a.analyzeStmt(inner, s.Body)
	case *ast.ForeachStmt:
		inner := symbols.NewScope(scope)
		varType := symbols.NewType("object")
		if s.VarType != nil {
			varType = a.resolveTypeRef(s.VarType)
		}
		_ = inner.Define(&symbols.Symbol{Name: s.VarName, Kind: symbols.KindVariable, Type: varType, Pos: s.Pos})
		a.analyzeExpr(inner, s.Iterable)
		a.analyzeStmt(inner, s.Body)
	case *ast.ReturnStmt:
		if s.Value != nil {
			a.analyzeExpr(scope, s.Value)
		}
	case *ast.BreakStmt, *ast.ContinueStmt:
		// Nothing to resolve.
	}
}

func (a *Analyzer) analyzeVarDecl(scope *symbols.Scope, s *ast.VarDeclStmt) {
	var declared symbols.TypeInfo

	switch {
	case s.Type != nil:
		declared = a.resolveTypeRef(s.Type)
		if s.Initializer != nil {
			a.analyzeExpr(scope, s.Initializer)
			initType := a.inferType(scope, s.Initializer)
			a.checkCompatible(declared, initType, s.Pos)
		}
	case s.Initializer != nil:
		a.analyzeExpr(scope, s.Initializer)
		declared = a.inferType(scope, s.Initializer)
	default:
		a.bag.Errorf(s.Pos.Line, s.Pos.Column,
			"variable '%s' needs a type or an initializer", s.Name)
		declared = symbols.NewType("object")
	}

	err := scope.Define(&symbols.Symbol{
		Name: s.Name,
		Kind: symbols.KindVariable,
		Type: declared,
		Pos:  s.Pos,
	})
	if err != nil {
		a.bag.Errorf(s.Pos.Line, s.Pos.Column, "variable '%s' is already declared in this scope", s.Name)
	}
}

// checkCompatible applies the declared-type vs initializer-type rules:
// object/void are unverifiable, array flags must agree, equal names
// match, numeric initializers may widen, and nullable initializers fit
// any non-primitive target.
func (a *Analyzer) checkCompatible(declared, init symbols.TypeInfo, pos ast.Pos) {
	if declared.Name == "object" || init.Name == "object" || declared.IsVoid() || init.IsVoid() {
		return
	}
	if declared.IsArray != init.IsArray {
		a.bag.Errorf(pos.Line, pos.Column,
			"type mismatch: cannot assign '%s' to '%s'", init, declared)
		return
	}
	if declared.Name == init.Name {
		return
	}
	if declared.IsNumeric() && init.IsNumeric() && symbols.Widens(init.Name, declared.Name) {
		return
	}
	if init.Nullable && !declared.IsPrimitive() {
		return
	}
	a.bag.Errorf(pos.Line, pos.Column,
		"type mismatch: cannot assign '%s' to '%s' (add an explicit cast)", init, declared)
}

// inferType implements the initializer inference table.
func (a *Analyzer) inferType(scope *symbols.Scope, expr ast.Expr) symbols.TypeInfo {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return symbols.NewType("int")
	case *ast.FloatLiteral:
		return symbols.NewType("double")
	case *ast.StringLiteral:
		return symbols.NewType("string")
	case *ast.CharLiteral:
		return symbols.NewType("char")
	case *ast.BoolLiteral:
		return symbols.NewType("bool")
	case *ast.NullLiteral:
		return symbols.NewNullableType("object")
	case *ast.NewExpr:
		return symbols.NewType(e.TypeName)
	case *ast.NewArrayExpr:
		return symbols.NewArrayType(e.ElementType)
	case *ast.IdentifierExpr:
		if sym, ok := scope.Lookup(e.Name); ok {
			return sym.Type
		}
		return symbols.NewType("object")
	default:
		return symbols.NewType("object")
	}
}

func (a *Analyzer) analyzeExpr(scope *symbols.Scope, expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.IdentifierExpr:
		sym, ok := scope.Lookup(e.Name)
		if ok {
			if e.Resolved == nil {
				e.Resolved = &ast.ResolvedType{
					TypeName: sym.Type.Name,
					IsArray:  sym.Type.IsArray,
					Nullable: sym.Type.Nullable,
				}
			}
			return
		}
		if _, isClass := a.classes[e.Name]; isClass {
			return
		}
		if symbols.BuiltinClasses[e.Name] {
			return
		}
		a.bag.Warnf(e.Pos.Line, e.Pos.Column, "undefined identifier '%s'", e.Name)
	case *ast.UnaryExpr:
		a.analyzeExpr(scope, e.Operand)
	case *ast.PostfixExpr:
		a.analyzeExpr(scope, e.Operand)
	case *ast.BinaryExpr:
		a.analyzeExpr(scope, e.Left)
		a.analyzeExpr(scope, e.Right)
	case *ast.AssignExpr:
		a.analyzeExpr(scope, e.Target)
		a.analyzeExpr(scope, e.Value)
	case *ast.CallExpr:
		a.analyzeCall(scope, e)
	case *ast.MemberAccessExpr:
		a.analyzeExpr(scope, e.Target)
	case *ast.NewExpr:
		a.analyzeNew(scope, e)
	case *ast.NewArrayExpr:
		a.analyzeExpr(scope, e.Size)
	case *ast.IndexExpr:
		a.analyzeExpr(scope, e.Target)
		a.analyzeExpr(scope, e.Index)
	case *ast.CastExpr:
		a.analyzeExpr(scope, e.Target)
	}
}

func (a *Analyzer) analyzeCall(scope *symbols.Scope, call *ast.CallExpr) {
	if access, ok := call.Callee.(*ast.MemberAccessExpr); ok {
		a.analyzeExpr(scope, access.Target)
		if className := a.targetClassName(scope, access.Target); className != "" {
			key := className + "." + access.Name
			if info, removed := a.removedMethods[key]; removed {
				a.bag.Errorf(call.Pos.Line, call.Pos.Column,
					"call to removed method '%s'%s", key, deprecationSuffix(info))
			} else if info, deprecated := a.deprecatedMethods[key]; deprecated {
				a.bag.Warnf(call.Pos.Line, call.Pos.Column,
					"call to deprecated method '%s'%s", key, deprecationSuffix(info))
			}
		}
	} else {
		a.analyzeExpr(scope, call.Callee)
	}
	for _, arg := range call.Args {
		a.analyzeExpr(scope, arg)
	}
}

// targetClassName infers the class a member call dispatches on: the
// static type of a local, parameter or field; a class name used
// directly; or the current class for `this`.
func (a *Analyzer) targetClassName(scope *symbols.Scope, target ast.Expr) string {
	switch t := target.(type) {
	case *ast.IdentifierExpr:
		if sym, ok := scope.Lookup(t.Name); ok {
			switch sym.Kind {
			case symbols.KindVariable, symbols.KindParameter, symbols.KindField:
				return sym.Type.Name
			}
		}
		if _, isClass := a.classes[t.Name]; isClass {
			return t.Name
		}
	case *ast.ThisExpr:
		if a.currentClass != nil {
			return a.currentClass.Name
		}
	}
	return ""
}

func (a *Analyzer) analyzeNew(scope *symbols.Scope, e *ast.NewExpr) {
	_, isClass := a.classes[e.TypeName]
	_, isKnown := a.global.Lookup(e.TypeName)
	if !isClass && !isKnown {
		a.bag.Warnf(e.Pos.Line, e.Pos.Column, "unknown type '%s' in new expression", e.TypeName)
	}

	if info, removed := a.removedClasses[e.TypeName]; removed {
		a.bag.Errorf(e.Pos.Line, e.Pos.Column,
			"use of removed class '%s'%s", e.TypeName, deprecationSuffix(info))
	} else if info, deprecated := a.deprecatedClasses[e.TypeName]; deprecated {
		a.bag.Warnf(e.Pos.Line, e.Pos.Column,
			"use of deprecated class '%s'%s", e.TypeName, deprecationSuffix(info))
	}

	for _, arg := range e.Args {
		a.analyzeExpr(scope, arg)
	}
}

func deprecationSuffix(info DeprecationInfo) string {
	switch {
	case info.Message != "" && info.Version != "":
		return ": " + info.Message + " (since " + info.Version + ")"
	case info.Message != "":
		return ": " + info.Message
	case info.Version != "":
		return " (since " + info.Version + ")"
	}
	return ""
}
