package emitter

import (
	"fmt"
	"strings"

	"github.com/termfx/gglang/internal/analyzer"
	"github.com/termfx/gglang/internal/ast"
	"github.com/termfx/gglang/internal/symbols"
)

// Options selects emission behavior sourced from the project
// configuration.
type Options struct {
	// GCDisabled emits the no-GC preprocessor guard before the runtime
	// header include.
	GCDisabled bool
	// MemoryLimit, when positive, emits a runtime limit call before the
	// user entry point. Bytes.
	MemoryLimit int64
}

// Emitter lowers an analyzed AST to a single C translation unit. It
// assumes the tree passed semantic analysis; identifiers that only
// drew warnings lower verbatim and are left to the C compiler.
type Emitter struct {
	classes map[string]*analyzer.ClassInfo
	order   []string
	opts    Options

	typedefs *sectionWriter
	structs  *sectionWriter
	protos   *sectionWriter
	impls    *sectionWriter

	current  *analyzer.ClassInfo
	inStatic bool
	retType  symbols.TypeInfo
	env      *funcEnv
	tempSeq  int
}

// funcEnv tracks local and parameter types during the emission of one
// function, one map per open block.
type funcEnv struct {
	scopes []map[string]symbols.TypeInfo
}

func (e *funcEnv) push() { e.scopes = append(e.scopes, map[string]symbols.TypeInfo{}) }
func (e *funcEnv) pop()  { e.scopes = e.scopes[:len(e.scopes)-1] }

func (e *funcEnv) define(name string, t symbols.TypeInfo) {
	e.scopes[len(e.scopes)-1][name] = t
}

func (e *funcEnv) lookup(name string) (symbols.TypeInfo, bool) {
	if e == nil {
		return symbols.TypeInfo{}, false
	}
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if t, ok := e.scopes[i][name]; ok {
			return t, true
		}
	}
	return symbols.TypeInfo{}, false
}

func New(classes map[string]*analyzer.ClassInfo, order []string, opts Options) *Emitter {
	return &Emitter{
		classes:  classes,
		order:    order,
		opts:     opts,
		typedefs: newSectionWriter(),
		structs:  newSectionWriter(),
		protos:   newSectionWriter(),
		impls:    newSectionWriter(),
	}
}

// Emit produces the complete translation unit.
func (e *Emitter) Emit() string {
	for _, name := range e.order {
		e.emitClass(e.classes[name])
	}
	e.emitEntryPoint()

	var out strings.Builder
	out.WriteString("/* Generated by the gg compiler. Do not edit. */\n")
	out.WriteString("#include <stdio.h>\n")
	out.WriteString("#include <stdlib.h>\n")
	out.WriteString("#include <string.h>\n")
	out.WriteString("#include <stdbool.h>\n")
	if e.opts.GCDisabled {
		out.WriteString("#define " + noGCDefine + "\n")
	}
	out.WriteString("#include \"" + runtimeHeader + "\"\n\n")
	out.WriteString(e.typedefs.String())
	out.WriteString("\n")
	out.WriteString(e.structs.String())
	out.WriteString("\n")
	out.WriteString(e.protos.String())
	out.WriteString("\n")
	out.WriteString(e.impls.String())
	return out.String()
}

// ---------------------------------------------------------------------------
// Type mapping

func (e *Emitter) cType(t symbols.TypeInfo) string {
	base, ok := cTypes[t.Name]
	if !ok {
		base = t.Name + "*"
	}
	if t.IsArray {
		return base + "*"
	}
	return base
}

// isReference reports whether values of the type live on the GC heap:
// arrays, strings, object and every class type.
func (e *Emitter) isReference(t symbols.TypeInfo) bool {
	if t.IsArray {
		return true
	}
	switch t.Name {
	case "int", "long", "byte", "short", "float", "double", "bool", "char", "void":
		return false
	}
	return true
}

func (e *Emitter) defaultValue(t symbols.TypeInfo) string {
	if e.isReference(t) {
		return "NULL"
	}
	if t.Name == "bool" {
		return "false"
	}
	return "0"
}

// ---------------------------------------------------------------------------
// Class emission

func (e *Emitter) emitClass(ci *analyzer.ClassInfo) {
	e.current = ci

	e.typedefs.writel("typedef struct " + ci.Name + " " + ci.Name + ";")
	e.typedefs.writel("typedef struct " + ci.Name + "_VTable " + ci.Name + "_VTable;")

	e.emitVTableStruct(ci)
	e.emitStruct(ci)
	e.emitStaticFields(ci)
	e.emitVTableInstance(ci)
	e.emitConstructor(ci)
	e.emitMethods(ci)

	e.current = nil
}

func (e *Emitter) emitVTableStruct(ci *analyzer.ClassInfo) {
	e.structs.writel("struct " + ci.Name + "_VTable {")
	e.structs.indent()
	slots := ci.VirtualMethods()
	if len(slots) == 0 {
		e.structs.writeil("char reserved;")
	}
	for _, m := range slots {
		e.structs.writeil(e.vtableSlot(ci, m))
	}
	e.structs.unindent()
	e.structs.writel("};")
}

func (e *Emitter) vtableSlot(ci *analyzer.ClassInfo, m *analyzer.MethodInfo) string {
	var params []string
	params = append(params, ci.Name+"* self")
	for _, p := range m.Params {
		params = append(params, e.cType(p.Type)+" "+p.Name)
	}
	return fmt.Sprintf("%s (*%s)(%s);", e.cType(m.ReturnType), m.Name, strings.Join(params, ", "))
}

func (e *Emitter) emitStruct(ci *analyzer.ClassInfo) {
	e.structs.writel("struct " + ci.Name + " {")
	e.structs.indent()
	e.structs.writeil("const " + ci.Name + "_VTable* vtable;")
	for _, fname := range ci.FieldOrder {
		f := ci.Fields[fname]
		if f.IsStatic {
			continue
		}
		e.structs.writeil(e.cType(f.Type) + " " + f.Name + ";")
	}
	e.structs.unindent()
	e.structs.writel("};")
}

func (e *Emitter) emitStaticFields(ci *analyzer.ClassInfo) {
	for _, fname := range ci.FieldOrder {
		f := ci.Fields[fname]
		if !f.IsStatic || f.DeclaredIn != ci.Name {
			continue
		}
		value := e.defaultValue(f.Type)
		if f.Decl != nil && f.Decl.Initializer != nil {
			value = e.emitExpr(f.Decl.Initializer)
		}
		e.structs.writel("static " + e.cType(f.Type) + " " + ci.Name + "_" + f.Name + " = " + value + ";")
	}
}

// emitVTableInstance writes the thunks for inherited slots and the
// statically allocated vtable. A derived class reuses the base
// implementation through a thin wrapper that casts self back to the
// base pointer type, keeping every slot typed against this class.
func (e *Emitter) emitVTableInstance(ci *analyzer.ClassInfo) {
	slots := ci.VirtualMethods()

	for _, m := range slots {
		if m.DeclaredIn == ci.Name || e.isAbstractSlot(m) {
			continue
		}
		var params, args []string
		params = append(params, ci.Name+"* self")
		args = append(args, "("+m.DeclaredIn+"*)self")
		for _, p := range m.Params {
			params = append(params, e.cType(p.Type)+" "+p.Name)
			args = append(args, p.Name)
		}
		e.impls.writel(fmt.Sprintf("static %s %s(%s) {",
			e.cType(m.ReturnType), e.thunkName(ci, m), strings.Join(params, ", ")))
		e.impls.indent()
		callLine := fmt.Sprintf("%s_%s(%s);", m.DeclaredIn, m.Name, strings.Join(args, ", "))
		if !m.ReturnType.IsVoid() {
			callLine = "return " + callLine[:len(callLine)-1] + ";"
		}
		e.impls.writeil(callLine)
		e.impls.unindent()
		e.impls.writel("}")
	}

	e.impls.writel("static const " + ci.Name + "_VTable " + ci.Name + "_vtable = {")
	e.impls.indent()
	if len(slots) == 0 {
		e.impls.writeil(".reserved = 0,")
	}
	for _, m := range slots {
		switch {
		case e.isAbstractSlot(m):
			e.impls.writeil("." + m.Name + " = NULL,")
		case m.DeclaredIn == ci.Name:
			e.impls.writeil("." + m.Name + " = " + ci.Name + "_" + m.Name + ",")
		default:
			e.impls.writeil("." + m.Name + " = " + e.thunkName(ci, m) + ",")
		}
	}
	e.impls.unindent()
	e.impls.writel("};")
}

func (e *Emitter) thunkName(ci *analyzer.ClassInfo, m *analyzer.MethodInfo) string {
	return ci.Name + "_" + m.Name + "_thunk"
}

func (e *Emitter) isAbstractSlot(m *analyzer.MethodInfo) bool {
	return m.IsAbstract || (m.Decl != nil && m.Decl.Body == nil)
}

// ---------------------------------------------------------------------------
// Constructor and factory

func (e *Emitter) emitConstructor(ci *analyzer.ClassInfo) {
	var ctor *ast.ConstructorDecl
	if ci.Decl != nil && len(ci.Decl.Constructors) > 0 {
		ctor = ci.Decl.Constructors[0]
	}

	var params []*ast.Param
	if ctor != nil {
		params = ctor.Params
	}

	signature := e.constructSignature(ci, params)
	factory := e.factorySignature(ci, params)
	e.protos.writel(signature + ";")
	e.protos.writel(factory + ";")

	// Constructor: base chain first, then the vtable pointer, then
	// declared-field initialization, then the constructor body.
	e.beginFunction(params, symbols.NewType("void"), false)
	e.impls.writel(signature + " {")
	e.impls.indent()
	e.impls.writeil("size_t __frame = " + fnPushRootFrame + "();")
	e.rootParams(params)

	if ci.BaseClass != "" {
		if _, known := e.classes[ci.BaseClass]; known {
			args := []string{"(" + ci.BaseClass + "*)self"}
			if ctor != nil && ctor.HasBaseCall {
				for _, a := range ctor.BaseArgs {
					args = append(args, e.emitExpr(a))
				}
			}
			e.impls.writeil(ci.BaseClass + "_construct(" + strings.Join(args, ", ") + ");")
		}
	}
	e.impls.writeil("self->vtable = &" + ci.Name + "_vtable;")

	for _, fname := range ci.FieldOrder {
		f := ci.Fields[fname]
		if f.IsStatic || f.DeclaredIn != ci.Name {
			continue
		}
		if f.Decl != nil && f.Decl.Initializer != nil {
			e.impls.writeil("self->" + f.Name + " = " + e.emitExpr(f.Decl.Initializer) + ";")
		}
	}
	for _, p := range params {
		if f, ok := ci.Fields[p.Name]; ok && !f.IsStatic {
			e.impls.writeil("self->" + p.Name + " = " + p.Name + ";")
		}
	}

	if ctor != nil && ctor.Body != nil {
		for _, stmt := range ctor.Body.Statements {
			e.emitStmt(stmt)
		}
	}
	e.impls.writeil(fnPopRootFrame + "(__frame);")
	e.impls.unindent()
	e.impls.writel("}")
	e.endFunction()

	// Factory: allocate through the GC-aware allocator, then construct.
	e.beginFunction(params, symbols.NewType(ci.Name), true)
	e.impls.writel(factory + " {")
	e.impls.indent()
	e.impls.writeil("size_t __frame = " + fnPushRootFrame + "();")
	e.impls.writeil(ci.Name + "* self = (" + ci.Name + "*)" + fnAlloc + "(sizeof(" + ci.Name + "));")
	e.impls.writeil(fnAddRoot + "((void**)&self);")
	args := make([]string, 0, len(params)+1)
	args = append(args, "self")
	for _, p := range params {
		args = append(args, p.Name)
	}
	e.impls.writeil(ci.Name + "_construct(" + strings.Join(args, ", ") + ");")
	e.impls.writeil(fnPopRootFrame + "(__frame);")
	e.impls.writeil("return self;")
	e.impls.unindent()
	e.impls.writel("}")
	e.endFunction()
}

func (e *Emitter) constructSignature(ci *analyzer.ClassInfo, params []*ast.Param) string {
	parts := []string{ci.Name + "* self"}
	for _, p := range params {
		parts = append(parts, e.cType(e.refType(p.Type))+" "+p.Name)
	}
	return "void " + ci.Name + "_construct(" + strings.Join(parts, ", ") + ")"
}

func (e *Emitter) factorySignature(ci *analyzer.ClassInfo, params []*ast.Param) string {
	var parts []string
	for _, p := range params {
		parts = append(parts, e.cType(e.refType(p.Type))+" "+p.Name)
	}
	if len(parts) == 0 {
		parts = append(parts, "void")
	}
	return ci.Name + "* " + ci.Name + "_create(" + strings.Join(parts, ", ") + ")"
}

func (e *Emitter) refType(ref *ast.TypeRef) symbols.TypeInfo {
	if ref == nil {
		return symbols.NewType("object")
	}
	return symbols.TypeInfo{Name: ref.Name, IsArray: ref.IsArray, Nullable: ref.Nullable}
}

// ---------------------------------------------------------------------------
// Methods

func (e *Emitter) emitMethods(ci *analyzer.ClassInfo) {
	for _, mname := range ci.MethodOrder {
		m := ci.Methods[mname]
		if m.DeclaredIn != ci.Name {
			continue // inherited; the base class emitted it
		}
		signature := e.methodSignature(ci, m)
		e.protos.writel(signature + ";")
		if m.Decl == nil || m.Decl.Body == nil {
			continue
		}

		e.beginFunction(m.Decl.Params, m.ReturnType, m.IsStatic)
		e.impls.writel(signature + " {")
		e.impls.indent()
		e.impls.writeil("size_t __frame = " + fnPushRootFrame + "();")
		e.rootParams(m.Decl.Params)
		for _, stmt := range m.Decl.Body.Statements {
			e.emitStmt(stmt)
		}
		e.impls.writeil(fnPopRootFrame + "(__frame);")
		e.impls.unindent()
		e.impls.writel("}")
		e.endFunction()
	}
}

func (e *Emitter) methodSignature(ci *analyzer.ClassInfo, m *analyzer.MethodInfo) string {
	var parts []string
	if !m.IsStatic {
		parts = append(parts, ci.Name+"* self")
	}
	for _, p := range m.Params {
		parts = append(parts, e.cType(p.Type)+" "+p.Name)
	}
	if len(parts) == 0 {
		parts = append(parts, "void")
	}
	return e.cType(m.ReturnType) + " " + ci.Name + "_" + m.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (e *Emitter) beginFunction(params []*ast.Param, ret symbols.TypeInfo, isStatic bool) {
	e.env = &funcEnv{}
	e.env.push()
	for _, p := range params {
		e.env.define(p.Name, e.refType(p.Type))
	}
	e.retType = ret
	e.inStatic = isStatic
	e.tempSeq = 0
}

func (e *Emitter) endFunction() {
	e.env = nil
}

// rootParams registers every reference-typed parameter with the
// collector's root frame.
func (e *Emitter) rootParams(params []*ast.Param) {
	for _, p := range params {
		if e.isReference(e.refType(p.Type)) {
			e.impls.writeil(fnAddRoot + "((void**)&" + p.Name + ");")
		}
	}
}

// ---------------------------------------------------------------------------
// Entry point

// emitEntryPoint defines the zero-argument function the runtime's main
// calls after its own initialization.
func (e *Emitter) emitEntryPoint() {
	for _, name := range e.order {
		ci := e.classes[name]
		m, ok := ci.Methods["main"]
		if !ok || !m.IsStatic || m.DeclaredIn != ci.Name {
			continue
		}
		e.protos.writel("void " + userEntryPoint + "(void);")
		e.impls.writel("void " + userEntryPoint + "(void) {")
		e.impls.indent()
		if e.opts.MemoryLimit > 0 {
			e.impls.writeil(fmt.Sprintf("%s(%d);", fnSetMemoryLimit, e.opts.MemoryLimit))
		}
		e.impls.writeil(ci.Name + "_main();")
		e.impls.unindent()
		e.impls.writel("}")
		return
	}
}

// ---------------------------------------------------------------------------
// Statements

func (e *Emitter) emitStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		e.impls.writeil("{")
		e.impls.indent()
		e.env.push()
		for _, st := range s.Statements {
			e.emitStmt(st)
		}
		e.env.pop()
		e.impls.unindent()
		e.impls.writeil("}")
	case *ast.VarDeclStmt:
		e.emitVarDecl(s)
	case *ast.ExprStmt:
		e.emitExprStmt(s)
	case *ast.IfStmt:
		e.impls.writeil("if (" + e.emitExpr(s.Condition) + ") {")
		e.impls.indent()
		e.emitEmbedded(s.Then)
		e.impls.unindent()
		if s.Else != nil {
			e.impls.writeil("} else {")
			e.impls.indent()
			e.emitEmbedded(s.Else)
			e.impls.unindent()
		}
		e.impls.writeil("}")
	case *ast.WhileStmt:
		e.impls.writeil("while (" + e.emitExpr(s.Condition) + ") {")
		e.impls.indent()
		e.emitEmbedded(s.Body)
		e.impls.unindent()
		e.impls.writeil("}")
	case *ast.ForStmt:
		e.emitFor(s)
	case *ast.ForeachStmt:
		e.emitForeach(s)
	case *ast.ReturnStmt:
		e.emitReturn(s)
	case *ast.BreakStmt:
		e.impls.writeil("break;")
	case *ast.ContinueStmt:
		e.impls.writeil("continue;")
	}
}

// emitEmbedded writes a branch or loop body, opening a scope for the
// single-statement form as well.
func (e *Emitter) emitEmbedded(stmt ast.Stmt) {
	if block, ok := stmt.(*ast.BlockStmt); ok {
		e.env.push()
		for _, st := range block.Statements {
			e.emitStmt(st)
		}
		e.env.pop()
		return
	}
	e.env.push()
	e.emitStmt(stmt)
	e.env.pop()
}

func (e *Emitter) emitVarDecl(s *ast.VarDeclStmt) {
	var t symbols.TypeInfo
	if s.Type != nil {
		t = e.refType(s.Type)
	} else if s.Initializer != nil {
		t = e.inferType(s.Initializer)
	} else {
		t = symbols.NewType("object")
	}

	value := e.defaultValue(t)
	if s.Initializer != nil {
		value = e.emitExpr(s.Initializer)
	}
	e.impls.writeil(e.cType(t) + " " + s.Name + " = " + value + ";")
	e.env.define(s.Name, t)
	if e.isReference(t) {
		e.impls.writeil(fnAddRoot + "((void**)&" + s.Name + ");")
	}
}

// emitExprStmt lowers a top-level statement expression. A plain
// assignment into a reference slot goes through the write-barrier
// hook; the barrier receives the slot address and the freshly stored
// value.
func (e *Emitter) emitExprStmt(s *ast.ExprStmt) {
	if assign, ok := s.Expr.(*ast.AssignExpr); ok {
		lhs := e.emitExpr(assign.Target)
		op, rhs := e.desugarAssign(assign)
		if op == "=" && e.isReference(e.inferType(assign.Target)) && e.isBarrierTarget(assign.Target) {
			e.impls.writeil(fnWriteBarrier + "((void**)&(" + lhs + "), (void*)(" + lhs + " = " + rhs + "));")
			return
		}
		e.impls.writeil(lhs + " " + op + " " + rhs + ";")
		return
	}
	e.impls.writeil(e.emitExpr(s.Expr) + ";")
}

// desugarAssign resolves the operator and stored value of an
// assignment. A compound operator on a reference-typed target rewrites
// to a plain store of the combined value, so `s += x` on a string goes
// through the runtime concat and the store reaches the write barrier.
func (e *Emitter) desugarAssign(assign *ast.AssignExpr) (string, string) {
	if assign.Operator == "=" {
		return "=", e.emitExpr(assign.Value)
	}
	if e.isReference(e.inferType(assign.Target)) {
		combined := &ast.BinaryExpr{
			Pos:      assign.Pos,
			Operator: strings.TrimSuffix(assign.Operator, "="),
			Left:     assign.Target,
			Right:    assign.Value,
		}
		return "=", e.emitBinary(combined)
	}
	return assign.Operator, e.emitExpr(assign.Value)
}

// isBarrierTarget limits barrier emission to slots with a stable
// address expression.
func (e *Emitter) isBarrierTarget(target ast.Expr) bool {
	switch t := target.(type) {
	case *ast.IdentifierExpr:
		return true
	case *ast.MemberAccessExpr:
		switch t.Target.(type) {
		case *ast.ThisExpr, *ast.IdentifierExpr:
			return true
		}
	case *ast.IndexExpr:
		return true
	}
	return false
}

func (e *Emitter) emitFor(s *ast.ForStmt) {
	e.impls.writeil("{")
	e.impls.indent()
	e.env.push()
	if s.Init != nil {
		e.emitStmt(s.Init)
	}
	cond := "1"
	if s.Condition != nil {
		cond = e.emitExpr(s.Condition)
	}
	step := ""
	if s.Step != nil {
		step = e.emitExpr(s.Step)
	}
	e.impls.writeil("for (; " + cond + "; " + step + ") {")
	e.impls.indent()
	e.emitEmbedded(s.Body)
	e.impls.unindent()
	e.impls.writeil("}")
	e.env.pop()
	e.impls.unindent()
	e.impls.writeil("}")
}

func (e *Emitter) emitForeach(s *ast.ForeachStmt) {
	seqType := e.inferType(s.Iterable)
	elemType := symbols.NewType(seqType.Name)
	if s.VarType != nil {
		elemType = e.refType(s.VarType)
	}

	seq := fmt.Sprintf("__seq%d", e.tempSeq)
	idx := fmt.Sprintf("__i%d", e.tempSeq)
	e.tempSeq++

	e.impls.writeil("{")
	e.impls.indent()
	e.env.push()
	e.impls.writeil(e.cType(seqType) + " " + seq + " = " + e.emitExpr(s.Iterable) + ";")
	e.impls.writeil("for (long long " + idx + " = 0; " + idx + " < " + fnArrayLength + "(" + seq + "); " + idx + "++) {")
	e.impls.indent()
	e.impls.writeil(e.cType(elemType) + " " + s.VarName + " = " + seq + "[" + idx + "];")
	e.env.define(s.VarName, elemType)
	if e.isReference(elemType) {
		e.impls.writeil(fnAddRoot + "((void**)&" + s.VarName + ");")
	}
	e.emitEmbedded(s.Body)
	e.impls.unindent()
	e.impls.writeil("}")
	e.env.pop()
	e.impls.unindent()
	e.impls.writeil("}")
}

func (e *Emitter) emitReturn(s *ast.ReturnStmt) {
	if s.Value == nil {
		e.impls.writeil(fnPopRootFrame + "(__frame);")
		e.impls.writeil("return;")
		return
	}
	value := e.emitExpr(s.Value)
	retC := e.cType(e.retType)
	if e.retType.IsVoid() {
		e.impls.writeil(value + ";")
		e.impls.writeil(fnPopRootFrame + "(__frame);")
		e.impls.writeil("return;")
		return
	}
	e.impls.writeil("{")
	e.impls.indent()
	e.impls.writeil(retC + " __ret = " + value + ";")
	e.impls.writeil(fnPopRootFrame + "(__frame);")
	e.impls.writeil("return __ret;")
	e.impls.unindent()
	e.impls.writeil("}")
}

// ---------------------------------------------------------------------------
// Expressions

func (e *Emitter) emitExpr(expr ast.Expr) string {
	switch x := expr.(type) {
	case *ast.IntLiteral:
		return x.Value
	case *ast.FloatLiteral:
		return x.Value
	case *ast.StringLiteral:
		return fnStringFromCstr + "(\"" + cEscape(x.Value) + "\")"
	case *ast.CharLiteral:
		return "'" + cEscapeChar(x.Value) + "'"
	case *ast.BoolLiteral:
		if x.Value {
			return "true"
		}
		return "false"
	case *ast.NullLiteral:
		return "NULL"
	case *ast.IdentifierExpr:
		return e.emitIdentifier(x)
	case *ast.UnaryExpr:
		return x.Operator + "(" + e.emitExpr(x.Operand) + ")"
	case *ast.PostfixExpr:
		return e.emitExpr(x.Operand) + x.Operator
	case *ast.BinaryExpr:
		return e.emitBinary(x)
	case *ast.AssignExpr:
		op, rhs := e.desugarAssign(x)
		return "(" + e.emitExpr(x.Target) + " " + op + " " + rhs + ")"
	case *ast.CallExpr:
		return e.emitCall(x)
	case *ast.MemberAccessExpr:
		return e.emitMemberAccess(x)
	case *ast.NewExpr:
		return e.emitNew(x)
	case *ast.NewArrayExpr:
		elem := e.cType(symbols.NewType(x.ElementType))
		return "(" + elem + "*)" + fnArrayAlloc + "(sizeof(" + elem + "), " + e.emitExpr(x.Size) + ")"
	case *ast.IndexExpr:
		return "(" + e.emitExpr(x.Target) + ")[" + e.emitExpr(x.Index) + "]"
	case *ast.CastExpr:
		return "((" + e.cType(e.refType(x.Type)) + ")(" + e.emitExpr(x.Target) + "))"
	case *ast.ThisExpr:
		return "self"
	case *ast.BaseExpr:
		if e.current != nil && e.current.BaseClass != "" {
			return "((" + e.current.BaseClass + "*)self)"
		}
		return "self"
	}
	return "0"
}

func (e *Emitter) emitIdentifier(x *ast.IdentifierExpr) string {
	if _, ok := e.env.lookup(x.Name); ok {
		return x.Name
	}
	if e.current != nil {
		if f, ok := e.current.Fields[x.Name]; ok {
			if f.IsStatic {
				return e.staticFieldRef(f)
			}
			if !e.inStatic {
				return "self->" + x.Name
			}
		}
	}
	// Unresolved names lower verbatim; the C compiler owns them now.
	return x.Name
}

func (e *Emitter) staticFieldRef(f *analyzer.FieldInfo) string {
	return f.DeclaredIn + "_" + f.Name
}

func (e *Emitter) emitBinary(x *ast.BinaryExpr) string {
	left := e.emitExpr(x.Left)
	right := e.emitExpr(x.Right)
	leftType := e.inferType(x.Left)
	rightType := e.inferType(x.Right)
	isString := leftType.Name == "string" || rightType.Name == "string"

	switch x.Operator {
	case "+":
		if isString {
			return fnStringConcat + "(" + e.asString(x.Left, left) + ", " + e.asString(x.Right, right) + ")"
		}
	case "==":
		if isString {
			return fnStringEquals + "(" + left + ", " + right + ")"
		}
	case "!=":
		if isString {
			return "!" + fnStringEquals + "(" + left + ", " + right + ")"
		}
	}
	return "(" + left + " " + x.Operator + " " + right + ")"
}

// asString coerces a concat operand to the runtime string type using
// the conversion family.
func (e *Emitter) asString(expr ast.Expr, emitted string) string {
	t := e.inferType(expr)
	switch t.Name {
	case "string":
		return emitted
	case "int", "short", "byte":
		return "gg_int_to_string(" + emitted + ")"
	case "long":
		return "gg_long_to_string(" + emitted + ")"
	case "float":
		return "gg_float_to_string(" + emitted + ")"
	case "double":
		return "gg_double_to_string(" + emitted + ")"
	case "bool":
		return "gg_bool_to_string(" + emitted + ")"
	case "char":
		return "gg_char_to_string(" + emitted + ")"
	}
	return emitted
}

func (e *Emitter) emitMemberAccess(x *ast.MemberAccessExpr) string {
	if ident, ok := x.Target.(*ast.IdentifierExpr); ok {
		if _, isLocal := e.env.lookup(ident.Name); !isLocal {
			if ci, isClass := e.classes[ident.Name]; isClass {
				if f, ok := ci.Fields[x.Name]; ok && f.IsStatic {
					return e.staticFieldRef(f)
				}
			}
		}
	}

	targetType := e.inferType(x.Target)
	if targetType.IsArray && x.Name == "length" {
		return fnArrayLength + "(" + e.emitExpr(x.Target) + ")"
	}
	if targetType.Name == "string" && x.Name == "length" {
		return "gg_string_length(" + e.emitExpr(x.Target) + ")"
	}

	switch x.Target.(type) {
	case *ast.ThisExpr:
		return "self->" + x.Name
	case *ast.BaseExpr:
		return e.emitExpr(x.Target) + "->" + x.Name
	}
	return "(" + e.emitExpr(x.Target) + ")->" + x.Name
}

func (e *Emitter) emitNew(x *ast.NewExpr) string {
	args := make([]string, 0, len(x.Args))
	for _, a := range x.Args {
		args = append(args, e.emitExpr(a))
	}
	return x.TypeName + "_create(" + strings.Join(args, ", ") + ")"
}

// ---------------------------------------------------------------------------
// Calls

func (e *Emitter) emitCall(call *ast.CallExpr) string {
	args := make([]string, 0, len(call.Args))
	for _, a := range call.Args {
		args = append(args, e.emitExpr(a))
	}

	if access, ok := call.Callee.(*ast.MemberAccessExpr); ok {
		return e.emitMemberCall(access, call, args)
	}

	if ident, ok := call.Callee.(*ast.IdentifierExpr); ok {
		// Bare call: a method of the current class.
		if e.current != nil {
			if m, ok := e.current.Methods[ident.Name]; ok {
				return e.dispatch("self", e.current, m, args)
			}
		}
		return ident.Name + "(" + strings.Join(args, ", ") + ")"
	}

	return e.emitExpr(call.Callee) + "(" + strings.Join(args, ", ") + ")"
}

func (e *Emitter) emitMemberCall(access *ast.MemberAccessExpr, call *ast.CallExpr, args []string) string {
	name := access.Name

	if ident, ok := access.Target.(*ast.IdentifierExpr); ok {
		if _, isLocal := e.env.lookup(ident.Name); !isLocal {
			switch ident.Name {
			case "Console":
				return e.emitConsoleCall(name, call.Args, args)
			case "Math":
				return "gg_math_" + name + "(" + strings.Join(args, ", ") + ")"
			case "Memory":
				switch name {
				case "alloc":
					return "Memory_alloc(" + strings.Join(args, ", ") + ")"
				case "free":
					return "Memory_free(" + strings.Join(args, ", ") + ")"
				}
			}
			if ci, isClass := e.classes[ident.Name]; isClass {
				if m, ok := ci.Methods[name]; ok && m.IsStatic {
					return m.DeclaredIn + "_" + name + "(" + strings.Join(args, ", ") + ")"
				}
			}
		}
	}

	if _, ok := access.Target.(*ast.BaseExpr); ok {
		if e.current != nil && e.current.BaseClass != "" {
			if base, known := e.classes[e.current.BaseClass]; known {
				if m, ok := base.Methods[name]; ok {
					callArgs := append([]string{"(" + m.DeclaredIn + "*)self"}, args...)
					return m.DeclaredIn + "_" + name + "(" + strings.Join(callArgs, ", ") + ")"
				}
			}
		}
	}

	targetType := e.inferType(access.Target)
	target := e.emitExpr(access.Target)

	if ci, isClass := e.classes[targetType.Name]; isClass && !targetType.IsArray {
		if m, ok := ci.Methods[name]; ok {
			return e.dispatch(target, ci, m, args)
		}
		return targetType.Name + "_" + name + "(" + strings.Join(append([]string{target}, args...), ", ") + ")"
	}

	if !targetType.IsArray {
		switch targetType.Name {
		case "int", "long", "byte", "short", "float", "double", "bool", "char", "string":
			callArgs := append([]string{target}, args...)
			return "gg_ext_" + targetType.Name + "_" + name + "(" + strings.Join(callArgs, ", ") + ")"
		}
	}

	return name + "(" + strings.Join(append([]string{target}, args...), ", ") + ")"
}

// dispatch lowers an instance call: virtual methods go through the
// receiver's vtable, everything else calls the owning class directly.
func (e *Emitter) dispatch(target string, ci *analyzer.ClassInfo, m *analyzer.MethodInfo, args []string) string {
	if m.IsStatic {
		return m.DeclaredIn + "_" + m.Name + "(" + strings.Join(args, ", ") + ")"
	}
	if m.IsVirtual || m.IsOverride {
		callArgs := append([]string{target}, args...)
		return "(" + target + ")->vtable->" + m.Name + "(" + strings.Join(callArgs, ", ") + ")"
	}
	self := target
	if m.DeclaredIn != ci.Name {
		self = "(" + m.DeclaredIn + "*)" + target
	}
	callArgs := append([]string{self}, args...)
	return m.DeclaredIn + "_" + m.Name + "(" + strings.Join(callArgs, ", ") + ")"
}

// emitConsoleCall lowers the Console built-in. writeLine and write
// pick a printf specifier from the argument's resolved type; string
// expressions that are not literals go through the runtime console.
func (e *Emitter) emitConsoleCall(name string, argExprs []ast.Expr, args []string) string {
	switch name {
	case "readLine":
		return "gg_console_readLine()"
	case "readInt":
		return "gg_console_readInt()"
	case "write", "writeLine":
		// Handled below.
	default:
		return "gg_console_" + name + "(" + strings.Join(args, ", ") + ")"
	}

	newline := ""
	if name == "writeLine" {
		newline = "\\n"
	}
	if len(argExprs) == 0 {
		return "printf(\"" + newline + "\")"
	}

	arg := args[0]
	t := e.inferType(argExprs[0])
	switch t.Name {
	case "int", "long", "byte", "short":
		return "printf(\"%lld" + newline + "\", (long long)(" + arg + "))"
	case "float", "double":
		return "printf(\"%g" + newline + "\", " + arg + ")"
	case "bool":
		return "printf(\"%s" + newline + "\", (" + arg + ") ? \"true\" : \"false\")"
	case "char":
		return "printf(\"%c" + newline + "\", " + arg + ")"
	case "string":
		if lit, ok := argExprs[0].(*ast.StringLiteral); ok {
			return "printf(\"%s" + newline + "\", \"" + cEscape(lit.Value) + "\")"
		}
	}
	if name == "writeLine" {
		return "gg_console_writeLine(" + arg + ")"
	}
	return "gg_console_write(" + arg + ")"
}

// ---------------------------------------------------------------------------
// Local type inference

var numericRank = map[string]int{
	"byte":   1,
	"short":  2,
	"int":    3,
	"long":   4,
	"float":  5,
	"double": 6,
}

// inferType mirrors the analyzer's inference table, extended with the
// built-in return-type tables the printf specifier choice needs.
func (e *Emitter) inferType(expr ast.Expr) symbols.TypeInfo {
	switch x := expr.(type) {
	case *ast.IntLiteral:
		if strings.HasSuffix(x.Value, "l") || strings.HasSuffix(x.Value, "L") {
			return symbols.NewType("long")
		}
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
	case *ast.IdentifierExpr:
		if t, ok := e.env.lookup(x.Name); ok {
			return t
		}
		if e.current != nil {
			if f, ok := e.current.Fields[x.Name]; ok {
				return f.Type
			}
		}
		if _, isClass := e.classes[x.Name]; isClass {
			return symbols.NewType(x.Name)
		}
		return symbols.NewType("object")
	case *ast.ThisExpr:
		if e.current != nil {
			return symbols.NewType(e.current.Name)
		}
		return symbols.NewType("object")
	case *ast.BaseExpr:
		if e.current != nil && e.current.BaseClass != "" {
			return symbols.NewType(e.current.BaseClass)
		}
		return symbols.NewType("object")
	case *ast.UnaryExpr:
		if x.Operator == "!" {
			return symbols.NewType("bool")
		}
		return e.inferType(x.Operand)
	case *ast.PostfixExpr:
		return e.inferType(x.Operand)
	case *ast.BinaryExpr:
		return e.inferBinary(x)
	case *ast.AssignExpr:
		return e.inferType(x.Target)
	case *ast.CallExpr:
		return e.inferCall(x)
	case *ast.MemberAccessExpr:
		return e.inferMember(x)
	case *ast.NewExpr:
		return symbols.NewType(x.TypeName)
	case *ast.NewArrayExpr:
		return symbols.NewArrayType(x.ElementType)
	case *ast.IndexExpr:
		t := e.inferType(x.Target)
		t.IsArray = false
		return t
	case *ast.CastExpr:
		return e.refType(x.Type)
	}
	return symbols.NewType("object")
}

func (e *Emitter) inferBinary(x *ast.BinaryExpr) symbols.TypeInfo {
	switch x.Operator {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return symbols.NewType("bool")
	}
	left := e.inferType(x.Left)
	right := e.inferType(x.Right)
	if x.Operator == "+" && (left.Name == "string" || right.Name == "string") {
		return symbols.NewType("string")
	}
	if numericRank[left.Name] > 0 && numericRank[right.Name] > 0 {
		if numericRank[right.Name] > numericRank[left.Name] {
			return right
		}
		return left
	}
	return left
}

func (e *Emitter) inferCall(x *ast.CallExpr) symbols.TypeInfo {
	access, ok := x.Callee.(*ast.MemberAccessExpr)
	if !ok {
		if ident, ok := x.Callee.(*ast.IdentifierExpr); ok && e.current != nil {
			if m, found := e.current.Methods[ident.Name]; found {
				return m.ReturnType
			}
		}
		return symbols.NewType("object")
	}

	if ident, ok := access.Target.(*ast.IdentifierExpr); ok {
		if _, isLocal := e.env.lookup(ident.Name); !isLocal {
			switch ident.Name {
			case "Console":
				if ret, found := consoleReturnTypes[access.Name]; found {
					return symbols.NewType(ret)
				}
			case "Math":
				if mathFunctions[access.Name] {
					return symbols.NewType("double")
				}
			case "Memory":
				if access.Name == "alloc" {
					return symbols.NewType("object")
				}
				return symbols.NewType("void")
			}
			if ci, isClass := e.classes[ident.Name]; isClass {
				if m, found := ci.Methods[access.Name]; found {
					return m.ReturnType
				}
			}
		}
	}

	targetType := e.inferType(access.Target)
	if ci, isClass := e.classes[targetType.Name]; isClass && !targetType.IsArray {
		if m, found := ci.Methods[access.Name]; found {
			return m.ReturnType
		}
	}
	if ret, found := extensionReturnTypes[access.Name]; found {
		return symbols.NewType(ret)
	}
	return symbols.NewType("object")
}

func (e *Emitter) inferMember(x *ast.MemberAccessExpr) symbols.TypeInfo {
	targetType := e.inferType(x.Target)
	if targetType.IsArray && x.Name == "length" {
		return symbols.NewType("int")
	}
	if ci, isClass := e.classes[targetType.Name]; isClass {
		if f, ok := ci.Fields[x.Name]; ok {
			return f.Type
		}
	}
	if ident, ok := x.Target.(*ast.IdentifierExpr); ok {
		if ci, isClass := e.classes[ident.Name]; isClass {
			if f, found := ci.Fields[x.Name]; found && f.IsStatic {
				return f.Type
			}
		}
	}
	return symbols.NewType("object")
}

// ---------------------------------------------------------------------------
// Escaping

func cEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		case '\r':
			b.WriteString("\\r")
		case '\\':
			b.WriteString("\\\\")
		case '"':
			b.WriteString("\\\"")
		case 0:
			b.WriteString("\\0")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cEscapeChar(s string) string {
	switch s {
	case "\n":
		return "\\n"
	case "\t":
		return "\\t"
	case "\r":
		return "\\r"
	case "\\":
		return "\\\\"
	case "'":
		return "\\'"
	case "\x00":
		return "\\0"
	}
	return s
}
